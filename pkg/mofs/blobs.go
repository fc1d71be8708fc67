package mofs

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jacktea/mofs/pkg/blob"
	"github.com/jacktea/mofs/pkg/native"
)

// GetMimeType looks up the MIME type for the extension of pathOrExt. The
// boolean is false when the backend knows no type for it.
func (f *Fs) GetMimeType(ctx context.Context, pathOrExt string) (string, bool, error) {
	var out string
	err := f.do(ctx, "getMimeType", pathOrExt, func(d driver) error {
		var err error
		out, err = f.lookupMimeType(ctx, pathOrExt)
		return err
	})
	return out, out != "", err
}

// GetExtensionForMimeType returns the preferred extension for mimeType.
func (f *Fs) GetExtensionForMimeType(ctx context.Context, mimeType string) (string, bool, error) {
	var out string
	err := f.do(ctx, "getExtensionForMimeType", "", func(d driver) error {
		var err error
		out, err = f.mime.GetOrLoad("e:"+mimeType, func() (string, error) {
			return d.common().GetExtensionForMimeType(ctx, mimeType)
		})
		return err
	})
	return out, out != "", err
}

// lookupMimeType is GetMimeType without dispatch bookkeeping, for use by
// drivers.
func (f *Fs) lookupMimeType(ctx context.Context, pathOrExt string) (string, error) {
	ext := extension(pathOrExt)
	return f.mime.GetOrLoad("m:"+ext, func() (string, error) {
		return f.drv.common().GetMimeType(ctx, ext)
	})
}

// tagMimeType sets data.Type from the extension of p, keeping what the
// backend reported when the extension is unknown. On failure the freshly read
// blob is released.
func (f *Fs) tagMimeType(ctx context.Context, c native.Common, data native.BlobData, p string) (native.BlobData, error) {
	mimeType, err := f.lookupMimeType(ctx, p)
	if err != nil {
		_ = c.ReleaseBlob(data.ID)
		return native.BlobData{}, err
	}
	if mimeType != "" {
		data.Type = mimeType
	}
	return data, nil
}

// GetBlobURL returns a locator other apps can read b through. No I/O is
// performed.
func (f *Fs) GetBlobURL(b *blob.Blob) (string, error) {
	var out string
	err := f.do(context.Background(), "getBlobURL", "", func(d driver) error {
		data, err := blobData("getBlobURL", b)
		if err != nil {
			return err
		}
		out = d.blobURL(data)
		return nil
	})
	return out, err
}

// CreateBlob stores data in the backend. data must be a string for
// ModeUTF8 and ModeBase64 and a []byte for ModeArrayBuffer.
func (f *Fs) CreateBlob(ctx context.Context, data any, mode Mode) (*blob.Blob, error) {
	str, transport, err := blobPayload(data, mode)
	if err != nil {
		return nil, err
	}
	var out *blob.Blob
	err = f.do(ctx, "createBlob", "", func(d driver) error {
		bd, err := d.common().CreateBlob(ctx, str, transport)
		if err != nil {
			return err
		}
		out = f.newBlob(bd)
		return nil
	})
	return out, err
}

// blobPayload validates data against mode and lowers arraybuffer onto the
// base64 transport.
func blobPayload(data any, mode Mode) (string, native.StringMode, error) {
	switch mode {
	case ModeArrayBuffer:
		buf, ok := data.([]byte)
		if !ok {
			return "", "", invalid("createBlob", "", fmt.Sprintf("arraybuffer mode requires []byte, got %T", data))
		}
		return base64.StdEncoding.EncodeToString(buf), native.ModeBase64, nil
	case ModeUTF8, ModeBase64:
		str, ok := data.(string)
		if !ok {
			return "", "", invalid("createBlob", "", fmt.Sprintf("%s mode requires string, got %T", mode, data))
		}
		return str, native.StringMode(mode), nil
	default:
		return "", "", invalid("createBlob", "", fmt.Sprintf("unknown mode %q", mode))
	}
}

// CreateBlobFromString stores a UTF-8 string.
func (f *Fs) CreateBlobFromString(ctx context.Context, s string) (*blob.Blob, error) {
	return f.CreateBlob(ctx, s, ModeUTF8)
}

// CreateBlobFromBytes stores raw bytes.
func (f *Fs) CreateBlobFromBytes(ctx context.Context, buf []byte) (*blob.Blob, error) {
	return f.CreateBlob(ctx, buf, ModeArrayBuffer)
}

// ReadBlob returns the content of b as a string for ModeUTF8 and ModeBase64
// and as a []byte for ModeArrayBuffer.
func (f *Fs) ReadBlob(ctx context.Context, b *blob.Blob, mode Mode) (any, error) {
	transport := native.StringMode(mode)
	switch mode {
	case ModeUTF8, ModeBase64:
	case ModeArrayBuffer:
		transport = native.ModeBase64
	default:
		return nil, invalid("readBlob", "", fmt.Sprintf("unknown mode %q", mode))
	}
	var out any
	err := f.do(ctx, "readBlob", "", func(d driver) error {
		data, err := blobData("readBlob", b)
		if err != nil {
			return err
		}
		str, err := d.common().ReadBlob(ctx, data, transport)
		if err != nil {
			return err
		}
		if mode != ModeArrayBuffer {
			out = str
			return nil
		}
		buf, err := base64.StdEncoding.DecodeString(str)
		if err != nil {
			return fmt.Errorf("decode base64 transport: %w", err)
		}
		out = buf
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadBlobString reads b as UTF-8.
func (f *Fs) ReadBlobString(ctx context.Context, b *blob.Blob) (string, error) {
	v, err := f.ReadBlob(ctx, b, ModeUTF8)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ReadBlobBytes reads b as raw bytes.
func (f *Fs) ReadBlobBytes(ctx context.Context, b *blob.Blob) ([]byte, error) {
	v, err := f.ReadBlob(ctx, b, ModeArrayBuffer)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

var (
	hashAlgorithms = map[string]bool{native.HashMD5: true, native.HashSHA1: true, native.HashSHA256: true, native.HashSHA512: true}
	hmacAlgorithms = map[string]bool{native.HashSHA1: true, native.HashSHA256: true, native.HashSHA512: true}
)

// GetBlobHash returns the hex digest of b.
func (f *Fs) GetBlobHash(ctx context.Context, b *blob.Blob, algorithm string) (string, error) {
	if !hashAlgorithms[algorithm] {
		return "", invalid("getBlobHash", "", fmt.Sprintf("unsupported hash algorithm %q", algorithm))
	}
	var out string
	err := f.do(ctx, "getBlobHash", "", func(d driver) error {
		data, err := blobData("getBlobHash", b)
		if err != nil {
			return err
		}
		out, err = d.common().GetBlobHash(ctx, data, algorithm)
		return err
	})
	return out, err
}

// GetBlobHmac returns the hex HMAC of b under key.
func (f *Fs) GetBlobHmac(ctx context.Context, b *blob.Blob, algorithm string, key []byte) (string, error) {
	if !hmacAlgorithms[algorithm] {
		return "", invalid("getBlobHmac", "", fmt.Sprintf("unsupported hmac algorithm %q", algorithm))
	}
	var out string
	err := f.do(ctx, "getBlobHmac", "", func(d driver) error {
		data, err := blobData("getBlobHmac", b)
		if err != nil {
			return err
		}
		out, err = d.common().GetBlobHmac(ctx, data, algorithm, base64.StdEncoding.EncodeToString(key))
		return err
	})
	return out, err
}

// GetBlobInfo computes the size of b plus the requested digests
// concurrently.
func (f *Fs) GetBlobInfo(ctx context.Context, b *blob.Blob, args BlobInfoArgs) (BlobInfo, error) {
	var info BlobInfo
	err := f.do(ctx, "getBlobInfo", "", func(d driver) error {
		data, err := blobData("getBlobInfo", b)
		if err != nil {
			return err
		}
		info.Size = data.Size
		g, gctx := errgroup.WithContext(ctx)
		digest := func(enabled bool, algorithm string, dst *string) {
			if !enabled {
				return
			}
			g.Go(func() error {
				sum, err := d.common().GetBlobHash(gctx, data, algorithm)
				*dst = sum
				return err
			})
		}
		digest(args.MD5, native.HashMD5, &info.MD5)
		digest(args.SHA1, native.HashSHA1, &info.SHA1)
		digest(args.SHA256, native.HashSHA256, &info.SHA256)
		if args.Image {
			g.Go(func() error {
				size, err := d.common().GetImageSize(gctx, data)
				if err != nil {
					return err
				}
				info.Image = &size
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return BlobInfo{}, err
	}
	return info, nil
}

// CryptBlob encrypts or decrypts b with aes-cbc and returns a new blob.
func (f *Fs) CryptBlob(ctx context.Context, b *blob.Blob, algorithm string, dir Direction, key, iv []byte) (*blob.Blob, error) {
	if algorithm != native.CryptAESCBC {
		return nil, invalid("cryptBlob", "", fmt.Sprintf("unsupported algorithm %q", algorithm))
	}
	if dir != Encrypt && dir != Decrypt {
		return nil, invalid("cryptBlob", "", fmt.Sprintf("unknown direction %q", dir))
	}
	var out *blob.Blob
	err := f.do(ctx, "cryptBlob", "", func(d driver) error {
		data, err := blobData("cryptBlob", b)
		if err != nil {
			return err
		}
		res, err := d.common().CryptBlob(ctx, data, algorithm, dir == Encrypt,
			base64.StdEncoding.EncodeToString(key), base64.StdEncoding.EncodeToString(iv))
		if err != nil {
			return err
		}
		out = f.newBlob(res)
		return nil
	})
	return out, err
}
