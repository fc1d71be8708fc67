// Package core implements the primitive set shared by the reference
// backends on top of a go-billy filesystem and a blob table.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-logr/logr"

	"github.com/jacktea/mofs/pkg/blobstore"
	"github.com/jacktea/mofs/pkg/cache"
	"github.com/jacktea/mofs/pkg/imageops"
	"github.com/jacktea/mofs/pkg/native"
)

// Config contains backend settings.
type Config struct {
	// Root is the host directory the backend is confined to. Empty means an
	// in-memory filesystem unless FS is set.
	Root string
	// FS overrides Root.
	FS billy.Filesystem
	// Blobs defaults to an in-memory table.
	Blobs blobstore.Store
	// Frames extracts video stills. Defaults to ffmpeg on $PATH.
	Frames       imageops.FrameExtractor
	SizeCacheLen int
	Logger       logr.Logger
}

// Backend implements native.Common. Backends embed it and add their own
// stat, event and presentation surfaces.
type Backend struct {
	fs      billy.Filesystem
	root    string
	blobs   blobstore.Store
	frames  imageops.FrameExtractor
	sizes   *cache.Cache[string, native.ImageSize]
	log     logr.Logger
	verbose atomic.Bool
}

// New resolves the filesystem and blob table of cfg.
func New(cfg Config) (*Backend, error) {
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	if cfg.SizeCacheLen <= 0 {
		cfg.SizeCacheLen = 128
	}
	fsys := cfg.FS
	if fsys == nil {
		if cfg.Root == "" {
			fsys = memfs.New()
		} else {
			if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
				return nil, fmt.Errorf("core: create root: %w", err)
			}
			fsys = osfs.New(cfg.Root)
		}
	}
	if cfg.FS != nil {
		cfg.Root = ""
	}
	if cfg.Blobs == nil {
		cfg.Blobs = blobstore.NewMemory()
	}
	if cfg.Frames == nil {
		cfg.Frames = imageops.FFmpeg{}
	}
	return &Backend{
		fs:     fsys,
		root:   cfg.Root,
		blobs:  cfg.Blobs,
		frames: cfg.Frames,
		sizes:  cache.New[string, native.ImageSize](cfg.SizeCacheLen, 10*time.Minute),
		log:    cfg.Logger,
	}, nil
}

// FS exposes the backing filesystem.
func (b *Backend) FS() billy.Filesystem { return b.fs }

// Blobs exposes the blob table.
func (b *Backend) Blobs() blobstore.Store { return b.blobs }

// Logger returns the backend logger.
func (b *Backend) Logger() logr.Logger { return b.log }

// SetVerbose toggles per-call debug logging.
func (b *Backend) SetVerbose(verbose bool) {
	b.verbose.Store(verbose)
	b.log.Info("verbose logging", "enabled", verbose)
}

// Debug logs at V(1), or at V(0) while verbose is on.
func (b *Backend) Debug(msg string, kv ...any) {
	if b.verbose.Load() {
		b.log.Info(msg, kv...)
		return
	}
	b.log.V(1).Info(msg, kv...)
}

// Close releases the blob table.
func (b *Backend) Close() error {
	return b.blobs.Close()
}

// mapErr folds filesystem errors into the native sentinels while keeping
// the original cause reachable.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", native.ErrNotFound, err)
	case errors.Is(err, os.ErrExist):
		return fmt.Errorf("%w: %w", native.ErrAlreadyExist, err)
	default:
		return err
	}
}

func (b *Backend) ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
