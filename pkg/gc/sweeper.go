// Package gc removes staged temp files left behind by interrupted
// operations. Blobs are never collected here; only their owners release them.
package gc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-logr/logr"
)

// DefaultPrefix matches the names the façade gives staged files.
const DefaultPrefix = "mofs-"

// Options configures a Sweeper.
type Options struct {
	FS billy.Filesystem
	// Dirs are scanned non-recursively for staged files.
	Dirs   []string
	Prefix string
	// MaxAge defaults to 24h.
	MaxAge time.Duration
	Logger logr.Logger
	Now    func() time.Time
}

// Sweeper removes stale staged files.
type Sweeper struct {
	fs     billy.Filesystem
	dirs   []string
	prefix string
	maxAge time.Duration
	log    logr.Logger
	now    func() time.Time
}

// NewSweeper wires the filesystem for garbage collection.
func NewSweeper(opts Options) *Sweeper {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sweeper{
		fs:     opts.FS,
		dirs:   opts.Dirs,
		prefix: opts.Prefix,
		maxAge: opts.MaxAge,
		log:    opts.Logger,
		now:    opts.Now,
	}
}

// Sweep performs a best-effort GC pass, returning the number of files
// deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.fs == nil {
		return 0, fmt.Errorf("gc sweeper missing filesystem")
	}
	cutoff := s.now().Add(-s.maxAge)
	var total int
	for _, dir := range s.dirs {
		n, err := s.sweepDir(ctx, dir, cutoff)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Sweeper) sweepDir(ctx context.Context, dir string, cutoff time.Time) (int, error) {
	infos, err := s.fs.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var removed int
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if info.IsDir() || !strings.HasPrefix(info.Name(), s.prefix) || info.ModTime().After(cutoff) {
			continue
		}
		p := path.Join(dir, info.Name())
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Error(err, "remove staged file", "path", p)
			continue
		}
		s.log.V(1).Info("removed staged file", "path", p, "age", s.now().Sub(info.ModTime()).String())
		removed++
	}
	return removed, nil
}

// Start launches a background sweep loop until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) context.CancelFunc {
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			_, err := s.Sweep(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error(err, "gc sweep")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}
