// Package provider implements native.Provider: app-private storage addressed
// through a content authority, with intents for sharing and launch
// notifications.
package provider

import (
	"context"
	"fmt"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-logr/logr"

	"github.com/jacktea/mofs/pkg/backend/core"
	"github.com/jacktea/mofs/pkg/blobstore"
	"github.com/jacktea/mofs/pkg/gc"
	"github.com/jacktea/mofs/pkg/imageops"
	"github.com/jacktea/mofs/pkg/native"
)

// DefaultAuthority names the content authority when none is configured.
const DefaultAuthority = "mofs.provider"

// Storage layout.
const (
	DataDir          = "/data"
	FilesDir         = "/data/files"
	ExternalCacheDir = "/external/cache"
	PackageResource  = "/app/base.apk"
)

// sniffLen bounds the prefix read when sniffing file content.
const sniffLen = 3072

// Chooser shows the intent choosers and pickers. Backends without a UI
// leave it nil and those calls fail with native.ErrNotSupported.
type Chooser interface {
	Send(ctx context.Context, args native.SendIntentArgs) error
	View(ctx context.Context, args native.ViewIntentArgs) error
	GetContent(ctx context.Context, args native.GetContentArgs) ([]string, error)
	Capture(ctx context.Context, args native.CaptureArgs) (*native.CaptureResult, error)
}

// Config contains backend settings.
type Config struct {
	Root      string
	FS        billy.Filesystem
	Authority string
	// BlobDB persists the blob table in a bbolt file so content URLs stay
	// resolvable from other goroutines and across restarts. Ignored when
	// Blobs is set.
	BlobDB          string
	Blobs           blobstore.Store
	NoExternalCache bool
	Frames          imageops.FrameExtractor
	Chooser         Chooser
	// SweepInterval starts a background sweeper of staged temp files.
	SweepInterval time.Duration
	SweepMaxAge   time.Duration
	Logger        logr.Logger
}

// Backend implements native.Provider.
type Backend struct {
	*core.Backend
	authority string
	paths     native.ProviderPaths
	chooser   Chooser
	intents   core.Bus[native.Intent]
	sweeper   *gc.Sweeper
	stopSweep context.CancelFunc
}

var _ native.Provider = (*Backend)(nil)

// New lays out the storage and opens the blob table.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Authority == "" {
		cfg.Authority = DefaultAuthority
	}
	if cfg.Blobs == nil && cfg.BlobDB != "" {
		store, err := blobstore.NewBolt(blobstore.BoltConfig{Path: cfg.BlobDB})
		if err != nil {
			return nil, fmt.Errorf("provider: open blob table: %w", err)
		}
		cfg.Blobs = store
	}
	base, err := core.New(core.Config{
		Root:   cfg.Root,
		FS:     cfg.FS,
		Blobs:  cfg.Blobs,
		Frames: cfg.Frames,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	paths := native.ProviderPaths{
		Files:           FilesDir,
		Data:            DataDir,
		PackageResource: PackageResource,
	}
	if !cfg.NoExternalCache {
		paths.ExternalCache = ExternalCacheDir
	}
	for _, dir := range []string{paths.Files, paths.ExternalCache} {
		if dir == "" {
			continue
		}
		if err := base.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("provider: create %s: %w", dir, err)
		}
	}
	b := &Backend{
		Backend:   base,
		authority: cfg.Authority,
		paths:     paths,
		chooser:   cfg.Chooser,
	}
	b.sweeper = gc.NewSweeper(gc.Options{
		FS:     base.FS(),
		Dirs:   []string{b.CacheDir()},
		MaxAge: cfg.SweepMaxAge,
		Logger: base.Logger().WithName("gc"),
	})
	if cfg.SweepInterval > 0 {
		b.stopSweep = b.sweeper.Start(ctx, cfg.SweepInterval)
	}
	return b, nil
}

func init() {
	native.Register("provider", func(ctx context.Context, raw map[string]any) (native.Common, error) {
		cfg := Config{}
		if v, ok := raw["root"].(string); ok {
			cfg.Root = v
		}
		if v, ok := raw["authority"].(string); ok {
			cfg.Authority = v
		}
		if v, ok := raw["blob_db"].(string); ok {
			cfg.BlobDB = v
		}
		if v, ok := raw["ffmpeg"].(string); ok && v != "" {
			cfg.Frames = imageops.FFmpeg{Path: v}
		}
		if v, ok := raw["gc_interval"].(time.Duration); ok {
			cfg.SweepInterval = v
		}
		if v, ok := raw["gc_max_age"].(time.Duration); ok {
			cfg.SweepMaxAge = v
		}
		if v, ok := raw["logger"].(logr.Logger); ok {
			cfg.Logger = v
		}
		return New(ctx, cfg)
	})
}

// Close stops the sweeper and releases the blob table.
func (b *Backend) Close() error {
	if b.stopSweep != nil {
		b.stopSweep()
	}
	return b.Backend.Close()
}

func (b *Backend) Authority() string { return b.authority }

func (b *Backend) Paths() native.ProviderPaths { return b.paths }

// CacheDir is where staged files land.
func (b *Backend) CacheDir() string {
	if b.paths.ExternalCache != "" {
		return b.paths.ExternalCache
	}
	return b.paths.Data
}

// Sweep removes stale staged files now.
func (b *Backend) Sweep(ctx context.Context) (int, error) {
	return b.sweeper.Sweep(ctx)
}

func (b *Backend) Stat(ctx context.Context, p string) (native.ProviderStat, error) {
	info, err := b.Lookup(p)
	if err != nil || info == nil {
		return native.ProviderStat{}, err
	}
	st := native.ProviderStat{
		Type:         native.StatTypeFile,
		Length:       info.Size(),
		LastModified: float64(info.ModTime().UnixMilli()),
	}
	if info.IsDir() {
		st.Type = native.StatTypeDirectory
		st.Length = 0
	}
	return st, nil
}

// CreateDir creates p and its parents. It fails with
// native.ErrAlreadyExist when p exists.
func (b *Backend) CreateDir(ctx context.Context, p string) error {
	info, err := b.Lookup(p)
	if err != nil {
		return err
	}
	if info != nil {
		return fmt.Errorf("mkdir %s: %w", p, native.ErrAlreadyExist)
	}
	return b.MkdirAll(p)
}

// ReadFile reads the range and tags the blob with the sniffed content type.
func (b *Backend) ReadFile(ctx context.Context, args native.ReadFileArgs) (native.BlobData, error) {
	bd, err := b.Backend.ReadFile(ctx, args)
	if err != nil {
		return native.BlobData{}, err
	}
	head := bd
	if head.Size > sniffLen {
		head.Size = sniffLen
	}
	if data, err := b.Bytes(ctx, head); err == nil && len(data) > 0 {
		bd.Type = core.Sniff(data)
	}
	return bd, nil
}

// SetInitialIntent records the intent the app was launched with.
func (b *Backend) SetInitialIntent(in native.Intent) {
	b.intents.SetLast(in)
}

// HandleIntent delivers an intent received while running.
func (b *Backend) HandleIntent(in native.Intent) {
	b.Debug("intent", "action", in.Action, "type", in.Type)
	b.intents.Publish(in)
}

func (b *Backend) InitialIntent(ctx context.Context) (*native.Intent, error) {
	return b.intents.Last(), nil
}

func (b *Backend) AddIntentListener(fn func(native.Intent)) func() {
	return b.intents.Listen(fn)
}

func (b *Backend) SendIntentChooser(ctx context.Context, args native.SendIntentArgs) error {
	if b.chooser == nil {
		return fmt.Errorf("send intent: %w", native.ErrNotSupported)
	}
	return b.chooser.Send(ctx, args)
}

func (b *Backend) ViewIntentChooser(ctx context.Context, args native.ViewIntentArgs) error {
	if b.chooser == nil {
		return fmt.Errorf("view intent: %w", native.ErrNotSupported)
	}
	return b.chooser.View(ctx, args)
}

func (b *Backend) GetContent(ctx context.Context, args native.GetContentArgs) ([]string, error) {
	if b.chooser == nil {
		return nil, fmt.Errorf("get content: %w", native.ErrNotSupported)
	}
	return b.chooser.GetContent(ctx, args)
}

func (b *Backend) CaptureMedia(ctx context.Context, args native.CaptureArgs) (*native.CaptureResult, error) {
	if b.chooser == nil {
		return nil, fmt.Errorf("capture: %w", native.ErrNotSupported)
	}
	return b.chooser.Capture(ctx, args)
}

func (b *Backend) GetVideoFrame(ctx context.Context, p string, args native.FrameArgs) (native.BlobData, error) {
	return b.Frame(ctx, p, args)
}
