// Package geometry computes the affine transform that fits or fills a source
// image into a target box. It does no pixel work.
package geometry

import (
	"errors"
	"math"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Transform is a uniform scale followed by a translation, plus the output
// canvas size.
type Transform struct {
	Scale  float64
	Tx     float64
	Ty     float64
	Width  float64
	Height float64
}

// ErrEmpty is returned for zero, negative or non-finite dimensions.
var ErrEmpty = errors.New("geometry: dimensions must be positive")

// Fit scales src uniformly into box. With fill unset the whole image fits
// inside box and the output is the scaled size. With fill set the image
// covers box, is center-cropped along the overflowing axis and the output is
// exactly box.
func Fit(src, box Size, fill bool) (Transform, error) {
	if !positive(src.Width) || !positive(src.Height) || !positive(box.Width) || !positive(box.Height) {
		return Transform{}, ErrEmpty
	}
	sx := box.Width / src.Width
	sy := box.Height / src.Height
	if !fill {
		scale := math.Min(sx, sy)
		return Transform{
			Scale:  scale,
			Width:  src.Width * scale,
			Height: src.Height * scale,
		}, nil
	}
	scale := math.Max(sx, sy)
	t := Transform{
		Scale:  scale,
		Width:  src.Width * scale,
		Height: src.Height * scale,
	}
	if t.Width > box.Width {
		t.Tx = -(t.Width - box.Width) / 2
		t.Width = box.Width
	}
	if t.Height > box.Height {
		t.Ty = -(t.Height - box.Height) / 2
		t.Height = box.Height
	}
	return t, nil
}

// Matrix returns the row-major 3x3 affine matrix
// [[scale,0,tx],[0,scale,ty],[0,0,1]].
func (t Transform) Matrix() [9]float64 {
	return [9]float64{
		t.Scale, 0, t.Tx,
		0, t.Scale, t.Ty,
		0, 0, 1,
	}
}

// positive is false for NaN.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
