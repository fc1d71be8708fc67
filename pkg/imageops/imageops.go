// Package imageops provides the pixel primitives the bundled backends
// expose through getImageSize, getExif and updateImage.
package imageops

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decoder registration
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	_ "golang.org/x/image/webp" // decoder registration

	"github.com/jacktea/mofs/pkg/native"
)

// ErrNotImage is returned when data cannot be decoded as an image.
var ErrNotImage = errors.New("imageops: blob not an image")

// Size reads the image header only.
func Size(data []byte) (native.ImageSize, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return native.ImageSize{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return native.ImageSize{Width: cfg.Width, Height: cfg.Height}, nil
}

// Args mirrors native.UpdateImageArgs with defaults resolved.
type Args struct {
	// Width and Height of the output canvas. Zero keeps the source size.
	Width, Height int
	// Matrix maps source pixels into the output canvas, row-major.
	Matrix *[9]float64
	// Encoding defaults to jpeg.
	Encoding native.Encoding
	// Quality in [0,1]. Negative means maximum.
	Quality float64
}

// FromUpdateArgs resolves the optional fields of a.
func FromUpdateArgs(a native.UpdateImageArgs) Args {
	out := Args{Matrix: a.Matrix, Encoding: a.Encoding, Quality: -1}
	if a.Width != nil {
		out.Width = int(*a.Width + 0.5)
	}
	if a.Height != nil {
		out.Height = int(*a.Height + 0.5)
	}
	if a.Quality != nil {
		out.Quality = *a.Quality
	}
	return out
}

// Transform decodes data, draws it through the affine matrix onto a canvas
// of the requested size and encodes the result. It returns the encoded
// bytes and their MIME type.
func Transform(data []byte, args Args) ([]byte, string, error) {
	enc := args.Encoding
	if enc == "" {
		enc = native.EncodingJPEG
	}
	if enc == native.EncodingWEBP {
		return nil, "", fmt.Errorf("imageops: webp encoding: %w", native.ErrNotSupported)
	}
	if !enc.Valid() {
		return nil, "", fmt.Errorf("imageops: unknown encoding %q", enc)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	w, h := args.Width, args.Height
	if w <= 0 {
		w = src.Bounds().Dx()
	}
	if h <= 0 {
		h = src.Bounds().Dy()
	}
	m := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	if args.Matrix != nil {
		m = *args.Matrix
	}
	// Source coordinates are relative to the image origin.
	b := src.Bounds()
	aff := f64.Aff3{
		m[0], m[1], m[2] - m[0]*float64(b.Min.X) - m[1]*float64(b.Min.Y),
		m[3], m[4], m[5] - m[3]*float64(b.Min.X) - m[4]*float64(b.Min.Y),
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Transform(dst, aff, src, b, draw.Over, nil)

	var buf bytes.Buffer
	switch enc {
	case native.EncodingPNG:
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(args.Quality)})
	}
	if err != nil {
		return nil, "", fmt.Errorf("imageops: encode %s: %w", enc, err)
	}
	return buf.Bytes(), enc.MimeType(), nil
}

func jpegQuality(q float64) int {
	if q < 0 {
		return 100
	}
	v := int(q * 100)
	switch {
	case v < 1:
		return 1
	case v > 100:
		return 100
	}
	return v
}
