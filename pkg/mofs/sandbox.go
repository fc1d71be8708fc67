package mofs

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/jacktea/mofs/pkg/events"
	"github.com/jacktea/mofs/pkg/native"
)

type sandboxDriver struct {
	b  native.Sandbox
	fs *Fs
}

func (d *sandboxDriver) name() string          { return BackendSandbox }
func (d *sandboxDriver) common() native.Common { return d.b }
func (d *sandboxDriver) paths() Paths          { return pathsFromSandbox(d.b.Paths()) }
func (d *sandboxDriver) videoExtension() string {
	return "mov"
}

func (d *sandboxDriver) stat(ctx context.Context, path string) (Stat, error) {
	attrs, err := d.b.Stat(ctx, path)
	if err != nil {
		return Stat{}, err
	}
	return statFromAttributes(attrs), nil
}

// createDir stats first so a sandbox that rejects existing directories
// still gives an idempotent CreateDir.
func (d *sandboxDriver) createDir(ctx context.Context, path string) error {
	st, err := d.stat(ctx, path)
	if err != nil {
		return err
	}
	if st.Exists && st.Dir {
		return nil
	}
	return d.b.CreateDir(ctx, path)
}

func (d *sandboxDriver) chmod(ctx context.Context, path string, mode uint32) error {
	return d.b.SetAttributes(ctx, path, map[string]any{native.AttributePosixPermissions: mode})
}

func (d *sandboxDriver) readFile(ctx context.Context, args native.ReadFileArgs) (native.BlobData, error) {
	data, err := d.b.ReadFile(ctx, args)
	if err != nil {
		return native.BlobData{}, err
	}
	return d.fs.tagMimeType(ctx, d.b, data, args.Path)
}

func (d *sandboxDriver) blobURL(data native.BlobData) string {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(data.Offset))
	q.Set("size", fmt.Sprint(data.Size))
	return "blob:" + data.ID + "?" + q.Encode()
}

func (d *sandboxDriver) share(ctx context.Context, path, _ string) error {
	return d.b.ShowDocumentInteractionController(ctx, native.DocumentInteractionArgs{Path: path, Type: native.InteractionOpenIn})
}

func (d *sandboxDriver) view(ctx context.Context, path string) error {
	return d.b.ShowDocumentInteractionController(ctx, native.DocumentInteractionArgs{Path: path, Type: native.InteractionPreview})
}

func (d *sandboxDriver) pickFile(ctx context.Context, args PickFileArgs) ([]string, error) {
	utis := []string{native.UTIItem}
	if len(args.Types) > 0 {
		utis = make([]string, len(args.Types))
		g, gctx := errgroup.WithContext(ctx)
		for i, mimeType := range args.Types {
			i, mimeType := i, mimeType
			g.Go(func() error {
				uti, err := d.b.GetUTIForMimeType(gctx, mimeType)
				if err != nil {
					return fmt.Errorf("uti for %s: %w", mimeType, err)
				}
				utis[i] = uti
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	urls, err := d.b.ShowDocumentPickerView(ctx, native.DocumentPickerArgs{UTIs: utis, Multiple: args.Multiple})
	if err != nil {
		return nil, err
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

func mediaTypes(kind MediaKind) []string {
	var out []string
	if kind.images() {
		out = append(out, native.UTIImage)
	}
	if kind.videos() {
		out = append(out, native.UTIMovie)
	}
	return out
}

func (d *sandboxDriver) pickImage(ctx context.Context, kind MediaKind) (string, error) {
	res, err := d.b.ShowImagePickerController(ctx, native.ImagePickerArgs{MediaTypes: mediaTypes(kind)})
	if err != nil || res == nil {
		return "", err
	}
	return res.URL, nil
}

func (d *sandboxDriver) pickMedia(ctx context.Context, args PickMediaArgs) (*pickedMedia, error) {
	source := native.SourcePhotoLibrary
	if args.Camera {
		source = native.SourceCamera
	}
	res, err := d.b.ShowImagePickerController(ctx, native.ImagePickerArgs{SourceType: source, MediaTypes: mediaTypes(args.Type)})
	if err != nil || res == nil {
		return nil, err
	}
	return &pickedMedia{url: res.URL, mimeType: res.Type, tempPath: res.TempPath}, nil
}

func (d *sandboxDriver) videoFrame(ctx context.Context, path string, args native.FrameArgs) (native.BlobData, error) {
	u := url.URL{Scheme: "file", Path: path}
	return d.b.AssetImageGenerator(ctx, native.AssetImageArgs{URL: u.String(), Encoding: args.Encoding, Quality: args.Quality})
}

func (d *sandboxDriver) openFileSource() events.Source[OpenFileEvent] {
	return sandboxSource{b: d.b}
}

type sandboxSource struct{ b native.Sandbox }

func (s sandboxSource) Pending(ctx context.Context) (OpenFileEvent, bool, error) {
	ev, err := s.b.LastOpenURL(ctx)
	if err != nil || ev == nil {
		return OpenFileEvent{}, false, err
	}
	out, ok := openFileFromURL(*ev)
	return out, ok, nil
}

func (s sandboxSource) Listen(fn func(OpenFileEvent)) func() {
	return s.b.AddOpenURLListener(func(ev native.OpenURLEvent) {
		if out, ok := openFileFromURL(ev); ok {
			fn(out)
		}
	})
}
