package core

import (
	"context"
	"fmt"

	"github.com/jacktea/mofs/pkg/blobstore"
	"github.com/jacktea/mofs/pkg/imageops"
	"github.com/jacktea/mofs/pkg/native"
)

func (b *Backend) GetImageSize(ctx context.Context, blob native.BlobData) (native.ImageSize, error) {
	key := fmt.Sprintf("%s:%d:%d", blob.ID, blob.Offset, blob.Size)
	return b.sizes.GetOrLoad(key, func() (native.ImageSize, error) {
		data, err := b.Bytes(ctx, blob)
		if err != nil {
			return native.ImageSize{}, err
		}
		return imageops.Size(data)
	})
}

func (b *Backend) GetExif(ctx context.Context, blob native.BlobData) (map[string]any, error) {
	data, err := b.Bytes(ctx, blob)
	if err != nil {
		return nil, err
	}
	return imageops.Exif(data)
}

func (b *Backend) UpdateImage(ctx context.Context, blob native.BlobData, args native.UpdateImageArgs) (native.BlobData, error) {
	data, err := b.Bytes(ctx, blob)
	if err != nil {
		return native.BlobData{}, err
	}
	out, mimeType, err := imageops.Transform(data, imageops.FromUpdateArgs(args))
	if err != nil {
		return native.BlobData{}, err
	}
	return b.Put(ctx, out, blobstore.Meta{Type: mimeType})
}

// Frame extracts a still from the video at p into a new blob.
func (b *Backend) Frame(ctx context.Context, p string, args native.FrameArgs) (native.BlobData, error) {
	local, cleanup, err := b.LocalPath(p)
	if err != nil {
		return native.BlobData{}, err
	}
	defer cleanup()
	data, mimeType, err := b.frames.Frame(ctx, local, args)
	if err != nil {
		return native.BlobData{}, err
	}
	return b.Put(ctx, data, blobstore.Meta{Type: mimeType})
}
