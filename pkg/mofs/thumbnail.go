package mofs

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/jacktea/mofs/pkg/blob"
	"github.com/jacktea/mofs/pkg/native"
)

// TempPrefix starts the name of every file the façade stages in the cache
// directory.
const TempPrefix = "mofs-"

// ThumbnailArgs sizes a thumbnail.
type ThumbnailArgs = ResizeImageArgs

// CreateThumbnail renders a still thumbnail of an image or video blob. It
// returns nil without error when b is neither and a backend is bound.
func (f *Fs) CreateThumbnail(ctx context.Context, b *blob.Blob, args ThumbnailArgs) (*blob.Blob, error) {
	if err := validateImageOutput("createThumbnail", args.Encoding, args.Quality); err != nil {
		return nil, err
	}
	if !positive(args.MaxWidth) || !positive(args.MaxHeight) {
		return nil, invalid("createThumbnail", "", "maxWidth and maxHeight must be positive")
	}
	if err := f.requireBackend("createThumbnail"); err != nil {
		return nil, err
	}
	data, err := blobData("createThumbnail", b)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasPrefix(data.Type, "image/"):
		dup, err := b.Dup()
		if err != nil {
			return nil, err
		}
		return blob.WithResult(dup, func(dup *blob.Blob) (*blob.Blob, error) {
			return f.ResizeImage(ctx, dup, args)
		})
	case strings.HasPrefix(data.Type, "video/"):
		frame, err := f.videoFrame(ctx, b, data.Type, args)
		if err != nil {
			return nil, err
		}
		return blob.WithResult(frame, func(frame *blob.Blob) (*blob.Blob, error) {
			return f.ResizeImage(ctx, frame, args)
		})
	default:
		return nil, nil
	}
}

// videoFrame stages b in a temp file, extracts a still and removes the temp
// file whether or not extraction succeeded.
// A failed removal is logged; the gc sweeper collects what is left behind.
func (f *Fs) videoFrame(ctx context.Context, b *blob.Blob, mimeType string, args ThumbnailArgs) (*blob.Blob, error) {
	ext, ok, err := f.GetExtensionForMimeType(ctx, mimeType)
	if err != nil || !ok {
		ext = f.drv.videoExtension()
	}
	tmp := path.Join(f.paths.Cache, TempPrefix+uuid.NewString()+"."+ext)
	if err := f.WriteFile(ctx, tmp, b); err != nil {
		return nil, err
	}
	defer func() {
		if err := f.DeleteFile(context.WithoutCancel(ctx), tmp, false); err != nil {
			f.log.Error(err, "remove staged video", "path", tmp)
		}
	}()
	var out *blob.Blob
	err = f.do(ctx, "videoFrame", tmp, func(d driver) error {
		data, err := d.videoFrame(ctx, tmp, native.FrameArgs{Encoding: args.Encoding, Quality: args.Quality})
		if err != nil {
			return err
		}
		out = f.newBlob(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
