package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/jacktea/mofs/pkg/blobstore"
	"github.com/jacktea/mofs/pkg/native"
)

// Lookup stats p. A missing path yields a nil info and no error.
func (b *Backend) Lookup(p string) (os.FileInfo, error) {
	info, err := b.fs.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return info, mapErr(err)
}

func (b *Backend) ReadFile(ctx context.Context, args native.ReadFileArgs) (native.BlobData, error) {
	if err := b.ctxErr(ctx); err != nil {
		return native.BlobData{}, err
	}
	info, err := b.fs.Stat(args.Path)
	if err != nil {
		return native.BlobData{}, mapErr(err)
	}
	if info.IsDir() {
		return native.BlobData{}, fmt.Errorf("read %s: is a directory", args.Path)
	}
	n := info.Size()
	off := args.Offset
	if off < 0 {
		off = n + off + 1
	}
	if off < 0 || off > n {
		return native.BlobData{}, fmt.Errorf("read %s at %d: %w", args.Path, args.Offset, native.ErrOutOfRange)
	}
	size := n - off
	if args.Size != nil && *args.Size < size {
		size = *args.Size
	}
	f, err := b.fs.Open(args.Path)
	if err != nil {
		return native.BlobData{}, mapErr(err)
	}
	defer f.Close()
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return native.BlobData{}, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return native.BlobData{}, fmt.Errorf("read %s: %w", args.Path, err)
	}
	return b.Put(ctx, buf, blobstore.Meta{
		Name:         path.Base(args.Path),
		LastModified: info.ModTime().UnixMilli(),
	})
}

func (b *Backend) WriteFile(ctx context.Context, args native.WriteFileArgs) error {
	data, err := b.Bytes(ctx, args.Blob)
	if err != nil {
		return err
	}
	off := args.Offset
	if off < 0 {
		var size int64
		if info, err := b.Lookup(args.Path); err != nil {
			return err
		} else if info != nil && !args.Truncate {
			size = info.Size()
		}
		off = size + off + 1
		if off < 0 {
			return fmt.Errorf("write %s at %d: %w", args.Path, args.Offset, native.ErrOutOfRange)
		}
	}
	flag := os.O_CREATE | os.O_WRONLY
	if args.Truncate {
		flag |= os.O_TRUNC
	}
	f, err := b.fs.OpenFile(args.Path, flag, 0o644)
	if err != nil {
		return mapErr(err)
	}
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", args.Path, err)
	}
	b.Debug("file written", "path", args.Path, "offset", off, "size", len(data))
	return f.Close()
}

func (b *Backend) DeleteFile(ctx context.Context, p string, recursive bool) error {
	info, err := b.fs.Stat(p)
	if err != nil {
		return mapErr(err)
	}
	if info.IsDir() && recursive {
		return util.RemoveAll(b.fs, p)
	}
	return mapErr(b.fs.Remove(p))
}

func (b *Backend) RenameFile(ctx context.Context, fromPath, toPath string) error {
	if dir := path.Dir(toPath); dir != "." && dir != "/" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return mapErr(err)
		}
	}
	return mapErr(b.fs.Rename(fromPath, toPath))
}

func (b *Backend) ListDir(ctx context.Context, p string) ([]string, error) {
	infos, err := b.fs.ReadDir(p)
	if err != nil {
		return nil, mapErr(err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// MkdirAll creates p and its parents, accepting existing directories.
func (b *Backend) MkdirAll(p string) error {
	return mapErr(b.fs.MkdirAll(p, 0o755))
}

// Chmod sets the permission bits of p.
func (b *Backend) Chmod(ctx context.Context, p string, mode uint32) error {
	perm := os.FileMode(mode) & os.ModePerm
	if ch, ok := b.fs.(billy.Change); ok {
		return mapErr(ch.Chmod(p, perm))
	}
	if b.root != "" {
		return mapErr(os.Chmod(filepath.Join(b.root, filepath.FromSlash(p)), perm))
	}
	return fmt.Errorf("chmod: %w", native.ErrNotSupported)
}

// LocalPath returns a host path holding the content of p for tools that
// need a real file. The returned func removes any staging copy.
func (b *Backend) LocalPath(p string) (string, func(), error) {
	if b.root != "" {
		return filepath.Join(b.root, filepath.FromSlash(p)), func() {}, nil
	}
	data, err := util.ReadFile(b.fs, p)
	if err != nil {
		return "", nil, mapErr(err)
	}
	f, err := os.CreateTemp("", "mofs-stage-*"+path.Ext(p))
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	cleanup := func() {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.log.Error(err, "remove staged file", "path", name)
		}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return name, cleanup, nil
}
