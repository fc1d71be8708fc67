package mofs

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/jacktea/mofs/pkg/blob"
	"github.com/jacktea/mofs/pkg/native"
)

// ReadFile reads a byte range of path into a new blob.
func (f *Fs) ReadFile(ctx context.Context, path string, opts ReadOptions) (*blob.Blob, error) {
	if opts.Size != nil && *opts.Size < 0 {
		return nil, invalid("readFile", path, "size must not be negative")
	}
	var out *blob.Blob
	err := f.do(ctx, "readFile", path, func(d driver) error {
		data, err := d.readFile(ctx, native.ReadFileArgs{Path: path, Offset: opts.Offset, Size: opts.Size})
		if err != nil {
			return err
		}
		out = f.newBlob(data)
		return nil
	})
	return out, err
}

// ReadTextFile reads the whole of path as UTF-8.
func (f *Fs) ReadTextFile(ctx context.Context, path string) (string, error) {
	b, err := f.ReadFile(ctx, path, ReadOptions{})
	if err != nil {
		return "", err
	}
	return blob.WithResult(b, func(b *blob.Blob) (string, error) {
		return f.ReadBlobString(ctx, b)
	})
}

// ReadBinaryFile reads the whole of path.
func (f *Fs) ReadBinaryFile(ctx context.Context, path string) ([]byte, error) {
	b, err := f.ReadFile(ctx, path, ReadOptions{})
	if err != nil {
		return nil, err
	}
	return blob.WithResult(b, func(b *blob.Blob) ([]byte, error) {
		return f.ReadBlobBytes(ctx, b)
	})
}

// ReadURL reads a file:// or http(s):// URL into a new blob.
func (f *Fs) ReadURL(ctx context.Context, rawURL string) (*blob.Blob, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, invalid("readURL", rawURL, err.Error())
	}
	switch u.Scheme {
	case "file":
		return f.ReadFile(ctx, u.Path, ReadOptions{})
	case "http", "https":
	default:
		return nil, invalid("readURL", rawURL, fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	var out *blob.Blob
	err = f.do(ctx, "readURL", rawURL, func(d driver) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := f.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		data, err := d.common().CreateBlob(ctx, base64.StdEncoding.EncodeToString(body), native.ModeBase64)
		if err != nil {
			return err
		}
		if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
			data.Type = mediaType
		}
		out = f.newBlob(data)
		return nil
	})
	return out, err
}

// WriteFile replaces the content of path with b.
func (f *Fs) WriteFile(ctx context.Context, path string, b *blob.Blob) error {
	return f.WriteFileAt(ctx, path, b, WriteOptions{Truncate: true})
}

// WriteFileAt writes b into path at opts.Offset.
func (f *Fs) WriteFileAt(ctx context.Context, path string, b *blob.Blob, opts WriteOptions) error {
	return f.do(ctx, "writeFile", path, func(d driver) error {
		data, err := blobData("writeFile", b)
		if err != nil {
			return err
		}
		return d.common().WriteFile(ctx, native.WriteFileArgs{Path: path, Blob: data, Offset: opts.Offset, Truncate: opts.Truncate})
	})
}

// AppendFile appends b to path, creating it if needed.
func (f *Fs) AppendFile(ctx context.Context, path string, b *blob.Blob) error {
	return f.WriteFileAt(ctx, path, b, WriteOptions{Offset: -1})
}

// WriteTextFile replaces the content of path with text.
func (f *Fs) WriteTextFile(ctx context.Context, path, text string) error {
	return f.withCreated(ctx, text, ModeUTF8, func(b *blob.Blob) error {
		return f.WriteFile(ctx, path, b)
	})
}

// WriteBinaryFile replaces the content of path with buf.
func (f *Fs) WriteBinaryFile(ctx context.Context, path string, buf []byte) error {
	return f.withCreated(ctx, buf, ModeArrayBuffer, func(b *blob.Blob) error {
		return f.WriteFile(ctx, path, b)
	})
}

// AppendTextFile appends text to path.
func (f *Fs) AppendTextFile(ctx context.Context, path, text string) error {
	return f.withCreated(ctx, text, ModeUTF8, func(b *blob.Blob) error {
		return f.AppendFile(ctx, path, b)
	})
}

// AppendBinaryFile appends buf to path.
func (f *Fs) AppendBinaryFile(ctx context.Context, path string, buf []byte) error {
	return f.withCreated(ctx, buf, ModeArrayBuffer, func(b *blob.Blob) error {
		return f.AppendFile(ctx, path, b)
	})
}

func (f *Fs) withCreated(ctx context.Context, data any, mode Mode, fn func(*blob.Blob) error) error {
	b, err := f.CreateBlob(ctx, data, mode)
	if err != nil {
		return err
	}
	return blob.With(b, fn)
}

// DeleteFile removes path. Directories require recursive.
func (f *Fs) DeleteFile(ctx context.Context, path string, recursive bool) error {
	return f.do(ctx, "deleteFile", path, func(d driver) error {
		return d.common().DeleteFile(ctx, path, recursive)
	})
}

// RenameFile moves fromPath to toPath.
func (f *Fs) RenameFile(ctx context.Context, fromPath, toPath string) error {
	return f.do(ctx, "renameFile", fromPath, func(d driver) error {
		return d.common().RenameFile(ctx, fromPath, toPath)
	})
}

// ListDir returns the entry names of path.
func (f *Fs) ListDir(ctx context.Context, path string) ([]string, error) {
	var out []string
	err := f.do(ctx, "listDir", path, func(d driver) error {
		var err error
		out, err = d.common().ListDir(ctx, path)
		return err
	})
	return out, err
}

// CreateDir creates path and its parents. An existing directory is not an
// error.
func (f *Fs) CreateDir(ctx context.Context, path string) error {
	return f.do(ctx, "createDir", path, func(d driver) error {
		return d.createDir(ctx, path)
	})
}

// Stat reports whether path exists and what it is.
func (f *Fs) Stat(ctx context.Context, path string) (Stat, error) {
	var out Stat
	err := f.do(ctx, "stat", path, func(d driver) error {
		var err error
		out, err = d.stat(ctx, path)
		return err
	})
	return out, err
}

// Chmod sets the POSIX mode bits of path.
func (f *Fs) Chmod(ctx context.Context, path string, mode uint32) error {
	return f.do(ctx, "chmod", path, func(d driver) error {
		return d.chmod(ctx, path, mode)
	})
}
