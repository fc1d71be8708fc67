package mofs

import (
	"context"
	"fmt"
	"math"

	"github.com/jacktea/mofs/pkg/blob"
	"github.com/jacktea/mofs/pkg/geometry"
	"github.com/jacktea/mofs/pkg/native"
)

// GetImageSize returns the pixel dimensions of an image blob.
func (f *Fs) GetImageSize(ctx context.Context, b *blob.Blob) (native.ImageSize, error) {
	var out native.ImageSize
	err := f.do(ctx, "getImageSize", "", func(d driver) error {
		data, err := blobData("getImageSize", b)
		if err != nil {
			return err
		}
		out, err = d.common().GetImageSize(ctx, data)
		return err
	})
	return out, err
}

// GetExif returns the EXIF metadata of an image blob. Backend parse
// failures yield an empty map rather than an error.
func (f *Fs) GetExif(ctx context.Context, b *blob.Blob) (map[string]any, error) {
	out := map[string]any{}
	err := f.do(ctx, "getExif", "", func(d driver) error {
		data, err := blobData("getExif", b)
		if err != nil {
			return err
		}
		exif, err := d.common().GetExif(ctx, data)
		if err != nil {
			f.log.V(1).Info("no exif metadata", "blob", data.ID, "reason", err.Error())
			return nil
		}
		for k, v := range exif {
			out[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateImageOutput(op string, enc native.Encoding, quality *float64) error {
	if quality != nil && !(*quality >= 0 && *quality <= 1) {
		return invalid(op, "", "quality must be 0..1")
	}
	if !enc.Valid() {
		return invalid(op, "", fmt.Sprintf("unknown encoding %q", enc))
	}
	return nil
}

// UpdateImage applies args.Matrix to the pixels of b, crops to the requested
// size and encodes the result as a new blob.
func (f *Fs) UpdateImage(ctx context.Context, b *blob.Blob, args UpdateImageArgs) (*blob.Blob, error) {
	if err := validateImageOutput("updateImage", args.Encoding, args.Quality); err != nil {
		return nil, err
	}
	if !nonNegative(args.Width) || !nonNegative(args.Height) {
		return nil, invalid("updateImage", "", "width and height must not be negative")
	}
	var out *blob.Blob
	err := f.do(ctx, "updateImage", "", func(d driver) error {
		data, err := blobData("updateImage", b)
		if err != nil {
			return err
		}
		nargs := native.UpdateImageArgs{Matrix: args.Matrix, Encoding: args.Encoding, Quality: args.Quality}
		if args.Width > 0 {
			w := args.Width
			nargs.Width = &w
		}
		if args.Height > 0 {
			h := args.Height
			nargs.Height = &h
		}
		res, err := d.common().UpdateImage(ctx, data, nargs)
		if err != nil {
			return err
		}
		out = f.newBlob(res)
		return nil
	})
	return out, err
}

// ResizeImage fits b into the box described by args and returns the
// re-encoded image as a new blob.
func (f *Fs) ResizeImage(ctx context.Context, b *blob.Blob, args ResizeImageArgs) (*blob.Blob, error) {
	if err := validateImageOutput("resizeImage", args.Encoding, args.Quality); err != nil {
		return nil, err
	}
	if !positive(args.MaxWidth) || !positive(args.MaxHeight) {
		return nil, invalid("resizeImage", "", "maxWidth and maxHeight must be positive")
	}
	size, err := f.GetImageSize(ctx, b)
	if err != nil {
		return nil, err
	}
	t, err := geometry.Fit(
		geometry.Size{Width: float64(size.Width), Height: float64(size.Height)},
		geometry.Size{Width: args.MaxWidth, Height: args.MaxHeight},
		args.Fill,
	)
	if err != nil {
		return nil, invalid("resizeImage", "", err.Error())
	}
	m := t.Matrix()
	f.log.V(1).Info("resize", "src", size, "scale", t.Scale, "tx", t.Tx, "ty", t.Ty, "width", t.Width, "height", t.Height)
	return f.UpdateImage(ctx, b, UpdateImageArgs{
		Width:    t.Width,
		Height:   t.Height,
		Matrix:   &m,
		Encoding: args.Encoding,
		Quality:  args.Quality,
	})
}

// Both comparisons are false for NaN.
func positive(v float64) bool { return v > 0 && !math.IsInf(v, 1) }

func nonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 1) }
