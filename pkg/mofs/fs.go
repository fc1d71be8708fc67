// Package mofs is the platform-neutral façade over the native storage and
// media backends. An Fs is bound to exactly one backend for its lifetime and
// reconciles that backend's result shapes into the canonical types of this
// package.
package mofs

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/jacktea/mofs/pkg/blob"
	"github.com/jacktea/mofs/pkg/cache"
	"github.com/jacktea/mofs/pkg/events"
	"github.com/jacktea/mofs/pkg/metrics"
	"github.com/jacktea/mofs/pkg/native"
	"github.com/jacktea/mofs/pkg/xerrors"
)

// Backend names reported by Fs.Backend.
const (
	BackendNone     = "none"
	BackendSandbox  = "sandbox"
	BackendProvider = "provider"
)

// Options configures New.
type Options struct {
	// Backend is the native capability provider. It must implement either
	// native.Sandbox or native.Provider. A nil Backend yields an Fs whose
	// operations all fail with PlatformNotSupported.
	Backend native.Common
	Logger  logr.Logger
	Metrics *metrics.Collector
	// MimeCacheSize bounds the MIME lookup cache. Defaults to 256.
	MimeCacheSize int
	// HTTPClient is used by ReadURL. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Fs is the dispatch façade.
type Fs struct {
	drv      driver
	log      logr.Logger
	metrics  *metrics.Collector
	mime     *cache.Cache[string, string]
	paths    Paths
	openFile *events.Stream[OpenFileEvent]
	http     *http.Client
	verbose  atomic.Bool
}

// driver adapts one backend shape to the façade.
type driver interface {
	name() string
	common() native.Common
	paths() Paths
	stat(ctx context.Context, path string) (Stat, error)
	createDir(ctx context.Context, path string) error
	chmod(ctx context.Context, path string, mode uint32) error
	readFile(ctx context.Context, args native.ReadFileArgs) (native.BlobData, error)
	blobURL(data native.BlobData) string
	share(ctx context.Context, path, mimeType string) error
	view(ctx context.Context, path string) error
	pickFile(ctx context.Context, args PickFileArgs) ([]string, error)
	pickImage(ctx context.Context, kind MediaKind) (string, error)
	pickMedia(ctx context.Context, args PickMediaArgs) (*pickedMedia, error)
	videoFrame(ctx context.Context, path string, args native.FrameArgs) (native.BlobData, error)
	videoExtension() string
	openFileSource() events.Source[OpenFileEvent]
}

// New binds an Fs to opts.Backend.
func New(opts Options) (*Fs, error) {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	if opts.MimeCacheSize <= 0 {
		opts.MimeCacheSize = 256
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	f := &Fs{
		log:     log,
		metrics: opts.Metrics,
		mime:    cache.New[string, string](opts.MimeCacheSize, 0),
		http:    opts.HTTPClient,
	}
	sb, isSandbox := opts.Backend.(native.Sandbox)
	pv, isProvider := opts.Backend.(native.Provider)
	switch {
	case opts.Backend == nil:
	case isSandbox && isProvider:
		return nil, xerrors.Wrap(xerrors.KindInvalid, "new", "", errAmbiguousBackend)
	case isSandbox:
		f.drv = &sandboxDriver{b: sb, fs: f}
	case isProvider:
		f.drv = &providerDriver{b: pv, fs: f}
	default:
		return nil, xerrors.Wrap(xerrors.KindInvalid, "new", "", errUnknownBackend)
	}
	var src events.Source[OpenFileEvent]
	if f.drv != nil {
		f.paths = f.drv.paths()
		src = f.drv.openFileSource()
	}
	f.openFile = events.New[OpenFileEvent](src, log.WithName("openfile"))
	log.V(1).Info("fs ready", "backend", f.Backend(), "cache", f.paths.Cache, "docs", f.paths.Docs, "data", f.paths.Data)
	return f, nil
}

// Open instantiates a registered backend by name and binds an Fs to it.
func Open(ctx context.Context, backend string, cfg map[string]any, opts Options) (*Fs, error) {
	b, err := native.Open(ctx, backend, cfg)
	if err != nil {
		return nil, xerrors.Annotate("open", backend, err)
	}
	opts.Backend = b
	return New(opts)
}

// Backend returns the active backend name.
func (f *Fs) Backend() string {
	if f.drv == nil {
		return BackendNone
	}
	return f.drv.name()
}

// Paths returns the well-known directories. The record is fixed at New.
func (f *Fs) Paths() Paths { return f.paths }

// Sandbox exposes the raw sandbox backend, if active.
func (f *Fs) Sandbox() (native.Sandbox, bool) {
	d, ok := f.drv.(*sandboxDriver)
	if !ok {
		return nil, false
	}
	return d.b, true
}

// Provider exposes the raw provider backend, if active.
func (f *Fs) Provider() (native.Provider, bool) {
	d, ok := f.drv.(*providerDriver)
	if !ok {
		return nil, false
	}
	return d.b, true
}

// SetVerbose toggles debug logging in the backend.
func (f *Fs) SetVerbose(verbose bool) {
	f.verbose.Store(verbose)
	if f.drv != nil {
		f.drv.common().SetVerbose(verbose)
	}
}

// Verbose reports the last value passed to SetVerbose.
func (f *Fs) Verbose() bool { return f.verbose.Load() }

// OpenFile is the stream of files other apps hand to this app.
func (f *Fs) OpenFile() *events.Stream[OpenFileEvent] { return f.openFile }

// requireBackend fails with PlatformNotSupported when no backend is bound.
func (f *Fs) requireBackend(op string) error {
	if f.drv == nil {
		return xerrors.Wrap(xerrors.KindPlatformNotSupported, op, "", native.ErrPlatformNotSupported)
	}
	return nil
}

// do runs fn against the active driver and annotates its error.
func (f *Fs) do(ctx context.Context, op, path string, fn func(d driver) error) error {
	start := time.Now()
	if f.drv == nil {
		err := xerrors.Wrap(xerrors.KindPlatformNotSupported, op, path, native.ErrPlatformNotSupported)
		f.metrics.Observe(op, BackendNone, start, err)
		return err
	}
	err := fn(f.drv)
	f.metrics.Observe(op, f.drv.name(), start, err)
	if err != nil {
		if f.verbose.Load() {
			f.log.Error(err, "operation failed", "op", op, "path", path)
		}
		return xerrors.Annotate(op, path, err)
	}
	return nil
}

// newBlob takes ownership of a backend allocation.
func (f *Fs) newBlob(data native.BlobData) *blob.Blob {
	f.metrics.BlobOpened()
	return blob.New(data, f.release)
}

func (f *Fs) release(id string) error {
	f.metrics.BlobReleased()
	if f.drv == nil {
		return nil
	}
	return f.drv.common().ReleaseBlob(id)
}

// blobData reads the wire form of b, failing with KindClosed on a released
// handle.
func blobData(op string, b *blob.Blob) (native.BlobData, error) {
	if b == nil {
		return native.BlobData{}, xerrors.Wrap(xerrors.KindInvalid, op, "", errNilBlob)
	}
	data, err := b.Data()
	if err != nil {
		return native.BlobData{}, xerrors.Wrap(xerrors.KindClosed, op, "", err)
	}
	return data, nil
}

func invalid(op, path, msg string) error {
	return xerrors.Wrap(xerrors.KindInvalid, op, path, invalidError(msg))
}

type invalidError string

func (e invalidError) Error() string { return string(e) }

const (
	errAmbiguousBackend = invalidError("backend implements both sandbox and provider")
	errUnknownBackend   = invalidError("backend implements neither sandbox nor provider")
	errNilBlob          = invalidError("nil blob")
)
