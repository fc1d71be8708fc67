package imageops

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Exif returns every EXIF field found in data keyed by tag name. Scalar
// strings, integers and rationals are unpacked; other values use the tag's
// string form.
func Exif(data []byte) (map[string]any, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := x.Walk(walker(out)); err != nil {
		return nil, err
	}
	return out, nil
}

type walker map[string]any

func (w walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w[string(name)] = tagValue(tag)
	return nil
}

func tagValue(tag *tiff.Tag) any {
	switch tag.Format() {
	case tiff.StringVal:
		if s, err := tag.StringVal(); err == nil {
			return s
		}
	case tiff.IntVal:
		if tag.Count == 1 {
			if v, err := tag.Int64(0); err == nil {
				return v
			}
		}
	case tiff.RatVal:
		if tag.Count == 1 {
			if num, den, err := tag.Rat2(0); err == nil && den != 0 {
				return float64(num) / float64(den)
			}
		}
	case tiff.FloatVal:
		if tag.Count == 1 {
			if v, err := tag.Float(0); err == nil {
				return v
			}
		}
	}
	return tag.String()
}
