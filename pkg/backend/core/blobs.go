package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jacktea/mofs/pkg/blobstore"
	"github.com/jacktea/mofs/pkg/digest"
	"github.com/jacktea/mofs/pkg/encryption"
	"github.com/jacktea/mofs/pkg/native"
)

// Put stores data as a new blob.
func (b *Backend) Put(ctx context.Context, data []byte, meta blobstore.Meta) (native.BlobData, error) {
	id, err := b.blobs.Put(ctx, data, meta)
	if err != nil {
		return native.BlobData{}, err
	}
	b.Debug("blob stored", "id", id, "size", len(data))
	return native.BlobData{
		ID:           id,
		Size:         int64(len(data)),
		Name:         meta.Name,
		Type:         meta.Type,
		LastModified: meta.LastModified,
	}, nil
}

// Bytes reads the range of the table entry blob refers to.
func (b *Backend) Bytes(ctx context.Context, blob native.BlobData) ([]byte, error) {
	if blob.Offset < 0 || blob.Size < 0 {
		return nil, native.ErrOutOfRange
	}
	data, err := b.blobs.ReadRange(ctx, blob.ID, blob.Offset, blob.Size)
	if err != nil {
		return nil, fmt.Errorf("blob %s: %w", blob.ID, err)
	}
	if int64(len(data)) != blob.Size {
		return nil, fmt.Errorf("blob %s: %w", blob.ID, native.ErrOutOfRange)
	}
	return data, nil
}

func (b *Backend) CreateBlob(ctx context.Context, str string, mode native.StringMode) (native.BlobData, error) {
	var data []byte
	switch mode {
	case native.ModeUTF8:
		data = []byte(str)
	case native.ModeBase64:
		var err error
		if data, err = base64.StdEncoding.DecodeString(str); err != nil {
			return native.BlobData{}, fmt.Errorf("decode base64: %w", err)
		}
	default:
		return native.BlobData{}, fmt.Errorf("unknown string mode %q", mode)
	}
	return b.Put(ctx, data, blobstore.Meta{})
}

func (b *Backend) ReadBlob(ctx context.Context, blob native.BlobData, mode native.StringMode) (string, error) {
	data, err := b.Bytes(ctx, blob)
	if err != nil {
		return "", err
	}
	switch mode {
	case native.ModeUTF8:
		return string(data), nil
	case native.ModeBase64:
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return "", fmt.Errorf("unknown string mode %q", mode)
	}
}

func (b *Backend) ReleaseBlob(id string) error {
	b.Debug("blob released", "id", id)
	return b.blobs.Delete(context.Background(), id)
}

func (b *Backend) GetBlobHash(ctx context.Context, blob native.BlobData, algorithm string) (string, error) {
	data, err := b.Bytes(ctx, blob)
	if err != nil {
		return "", err
	}
	return digest.SumBytes(data, algorithm)
}

func (b *Backend) GetBlobHmac(ctx context.Context, blob native.BlobData, algorithm, key string) (string, error) {
	k, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("decode key: %w", err)
	}
	data, err := b.Bytes(ctx, blob)
	if err != nil {
		return "", err
	}
	return digest.SumHMAC(bytes.NewReader(data), algorithm, k)
}

func (b *Backend) CryptBlob(ctx context.Context, blob native.BlobData, algorithm string, encrypt bool, key, iv string) (native.BlobData, error) {
	if algorithm != native.CryptAESCBC {
		return native.BlobData{}, fmt.Errorf("crypt %s: %w", algorithm, native.ErrNotSupported)
	}
	k, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return native.BlobData{}, fmt.Errorf("decode key: %w", err)
	}
	v, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return native.BlobData{}, fmt.Errorf("decode iv: %w", err)
	}
	data, err := b.Bytes(ctx, blob)
	if err != nil {
		return native.BlobData{}, err
	}
	out, err := encryption.Crypt(data, encrypt, encryption.Options{Method: encryption.MethodAESCBC, Key: k, IV: v})
	if err != nil {
		return native.BlobData{}, err
	}
	return b.Put(ctx, out, blobstore.Meta{})
}
