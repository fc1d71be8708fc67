// Package sandbox implements native.Sandbox: a container directory laid out
// like an app sandbox, with an inbox whose new files are announced as
// open-URL events.
package sandbox

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-logr/logr"

	"github.com/jacktea/mofs/pkg/backend/core"
	"github.com/jacktea/mofs/pkg/blobstore"
	"github.com/jacktea/mofs/pkg/imageops"
	"github.com/jacktea/mofs/pkg/native"
)

// Container layout.
const (
	BundleDir   = "/Bundle"
	DocumentDir = "/Documents"
	LibraryDir  = "/Library"
	CachesDir   = "/Library/Caches"
	InboxDir    = "/Documents/Inbox"
)

// Presenter shows the system sheets and pickers. Backends without a UI leave
// it nil and those calls fail with native.ErrNotSupported.
type Presenter interface {
	ShowDocumentInteraction(ctx context.Context, args native.DocumentInteractionArgs) error
	PickDocuments(ctx context.Context, args native.DocumentPickerArgs) ([]string, error)
	PickImage(ctx context.Context, args native.ImagePickerArgs) (*native.ImagePickerResult, error)
}

// Config contains backend settings.
type Config struct {
	// Root is the host directory holding the container. Empty keeps the
	// container in memory.
	Root string
	FS   billy.Filesystem
	// WatchInbox announces files dropped into the inbox. Requires Root.
	WatchInbox bool
	Blobs      blobstore.Store
	Frames     imageops.FrameExtractor
	Presenter  Presenter
	Logger     logr.Logger
}

// Backend implements native.Sandbox.
type Backend struct {
	*core.Backend
	presenter Presenter
	urls      core.Bus[native.OpenURLEvent]
	inbox     *inboxWatcher
}

var _ native.Sandbox = (*Backend)(nil)

// New lays out the container and starts the inbox watcher if requested.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.WatchInbox && cfg.Root == "" {
		return nil, fmt.Errorf("sandbox: inbox watching requires a root directory")
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
	for _, dir := range []string{BundleDir, DocumentDir, CachesDir, InboxDir} {
		if err := base.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("sandbox: create %s: %w", dir, err)
		}
	}
	b := &Backend{Backend: base, presenter: cfg.Presenter}
	if cfg.WatchInbox {
		w, err := watchInbox(ctx, localDir(cfg.Root, InboxDir), InboxDir, b.HandleOpenURL, base.Logger().WithName("inbox"))
		if err != nil {
			return nil, err
		}
		b.inbox = w
	}
	return b, nil
}

func init() {
	native.Register("sandbox", func(ctx context.Context, raw map[string]any) (native.Common, error) {
		cfg := Config{}
		if v, ok := raw["root"].(string); ok {
			cfg.Root = v
		}
		if v, ok := raw["inbox_watch"].(bool); ok {
			cfg.WatchInbox = v
		}
		if v, ok := raw["ffmpeg"].(string); ok && v != "" {
			cfg.Frames = imageops.FFmpeg{Path: v}
		}
		if v, ok := raw["logger"].(logr.Logger); ok {
			cfg.Logger = v
		}
		return New(ctx, cfg)
	})
}

// Close stops the inbox watcher and releases the blob table.
func (b *Backend) Close() error {
	if b.inbox != nil {
		b.inbox.Close()
	}
	return b.Backend.Close()
}

func (b *Backend) Paths() native.SandboxPaths {
	return native.SandboxPaths{
		Bundle:   BundleDir,
		Document: DocumentDir,
		Caches:   CachesDir,
		Library:  LibraryDir,
	}
}

func (b *Backend) Stat(ctx context.Context, p string) (*native.FileAttributes, error) {
	info, err := b.Lookup(p)
	if err != nil || info == nil {
		return nil, err
	}
	attrs := &native.FileAttributes{FileType: native.FileTypeRegular}
	if info.IsDir() {
		attrs.FileType = native.FileTypeDirectory
	}
	size := info.Size()
	mod := float64(info.ModTime().UnixNano()) / 1e9
	perm := uint32(info.Mode().Perm())
	attrs.FileSize = &size
	attrs.ModificationDate = &mod
	attrs.PosixPermissions = &perm
	return attrs, nil
}

// SetAttributes applies the permission attribute. Other attributes are
// reported as unsupported.
func (b *Backend) SetAttributes(ctx context.Context, p string, attributes map[string]any) error {
	for key, value := range attributes {
		if key != native.AttributePosixPermissions {
			return fmt.Errorf("attribute %s: %w", key, native.ErrNotSupported)
		}
		mode, err := permBits(value)
		if err != nil {
			return err
		}
		if err := b.Chmod(ctx, p, mode); err != nil {
			return err
		}
	}
	return nil
}

func permBits(v any) (uint32, error) {
	switch m := v.(type) {
	case uint32:
		return m, nil
	case int:
		return uint32(m), nil
	case int64:
		return uint32(m), nil
	case float64:
		return uint32(m), nil
	case os.FileMode:
		return uint32(m.Perm()), nil
	default:
		return 0, fmt.Errorf("permissions must be numeric, got %T", v)
	}
}

// CreateDir creates p and its parents. Existing directories are accepted.
func (b *Backend) CreateDir(ctx context.Context, p string) error {
	return b.MkdirAll(p)
}

// HandleOpenURL announces a URL handed to the app.
func (b *Backend) HandleOpenURL(u string) {
	b.Debug("open url", "url", u)
	b.urls.Publish(native.OpenURLEvent{URL: u})
}

func (b *Backend) LastOpenURL(ctx context.Context) (*native.OpenURLEvent, error) {
	return b.urls.Last(), nil
}

func (b *Backend) AddOpenURLListener(fn func(native.OpenURLEvent)) func() {
	return b.urls.Listen(fn)
}

func (b *Backend) ShowDocumentInteractionController(ctx context.Context, args native.DocumentInteractionArgs) error {
	if b.presenter == nil {
		return fmt.Errorf("document interaction: %w", native.ErrNotSupported)
	}
	if args.UTI == "" {
		args.UTI = b.utiForPath(ctx, args.Path)
	}
	return b.presenter.ShowDocumentInteraction(ctx, args)
}

func (b *Backend) ShowDocumentPickerView(ctx context.Context, args native.DocumentPickerArgs) ([]string, error) {
	if b.presenter == nil {
		return nil, fmt.Errorf("document picker: %w", native.ErrNotSupported)
	}
	return b.presenter.PickDocuments(ctx, args)
}

func (b *Backend) ShowImagePickerController(ctx context.Context, args native.ImagePickerArgs) (*native.ImagePickerResult, error) {
	if b.presenter == nil {
		return nil, fmt.Errorf("image picker: %w", native.ErrNotSupported)
	}
	res, err := b.presenter.PickImage(ctx, args)
	if err != nil || res == nil {
		return nil, err
	}
	if res.Type == "" && res.URL != "" {
		res.Type, _ = b.GetMimeType(ctx, path.Ext(res.URL))
	}
	return res, nil
}

// AssetImageGenerator takes a still from the video at a file URL inside the
// container.
func (b *Backend) AssetImageGenerator(ctx context.Context, args native.AssetImageArgs) (native.BlobData, error) {
	u, err := url.Parse(args.URL)
	if err != nil {
		return native.BlobData{}, err
	}
	if u.Scheme != "file" && u.Scheme != "" {
		return native.BlobData{}, fmt.Errorf("asset %s: %w", args.URL, native.ErrNotSupported)
	}
	return b.Frame(ctx, u.Path, native.FrameArgs{Encoding: args.Encoding, Quality: args.Quality})
}

func (b *Backend) utiForPath(ctx context.Context, p string) string {
	mimeType, err := b.GetMimeType(ctx, strings.TrimPrefix(path.Ext(p), "."))
	if err != nil || mimeType == "" {
		return native.UTIItem
	}
	uti, _ := b.GetUTIForMimeType(ctx, mimeType)
	return uti
}

// FileURL returns the file URL of a container path.
func FileURL(p string) string {
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
