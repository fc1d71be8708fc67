package mofs

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jacktea/mofs/pkg/events"
	"github.com/jacktea/mofs/pkg/native"
)

const defaultMimeType = "application/octet-stream"

type providerDriver struct {
	b  native.Provider
	fs *Fs
}

func (d *providerDriver) name() string          { return BackendProvider }
func (d *providerDriver) common() native.Common { return d.b }
func (d *providerDriver) paths() Paths          { return pathsFromProvider(d.b.Paths()) }
func (d *providerDriver) videoExtension() string {
	return "mp4"
}

func (d *providerDriver) stat(ctx context.Context, path string) (Stat, error) {
	st, err := d.b.Stat(ctx, path)
	if err != nil {
		return Stat{}, err
	}
	return statFromProvider(st), nil
}

// createDir stats first because the provider fails on existing directories.
func (d *providerDriver) createDir(ctx context.Context, path string) error {
	st, err := d.stat(ctx, path)
	if err != nil {
		return err
	}
	if st.Exists && st.Dir {
		return nil
	}
	return d.b.CreateDir(ctx, path)
}

func (d *providerDriver) chmod(ctx context.Context, path string, mode uint32) error {
	return d.b.Chmod(ctx, path, mode)
}

// readFile tags the blob with the MIME type of the path's extension.
func (d *providerDriver) readFile(ctx context.Context, args native.ReadFileArgs) (native.BlobData, error) {
	data, err := d.b.ReadFile(ctx, args)
	if err != nil {
		return native.BlobData{}, err
	}
	return d.fs.tagMimeType(ctx, d.b, data, args.Path)
}

func (d *providerDriver) blobURL(data native.BlobData) string {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(data.Offset))
	q.Set("size", fmt.Sprint(data.Size))
	q.Set("type", data.Type)
	return "content://" + d.b.Authority() + "/blob/" + data.ID + "?" + q.Encode()
}

func (d *providerDriver) share(ctx context.Context, path, mimeType string) error {
	if mimeType == "" {
		var err error
		if mimeType, err = d.fs.lookupMimeType(ctx, path); err != nil {
			return err
		}
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return d.b.SendIntentChooser(ctx, native.SendIntentArgs{Path: path, Type: mimeType})
}

func (d *providerDriver) view(ctx context.Context, path string) error {
	return d.b.ViewIntentChooser(ctx, native.ViewIntentArgs{Path: path})
}

func (d *providerDriver) pickFile(ctx context.Context, args PickFileArgs) ([]string, error) {
	urls, err := d.b.GetContent(ctx, native.GetContentArgs{Types: args.Types, Multiple: args.Multiple})
	if err != nil {
		return nil, err
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

func contentTypes(kind MediaKind) []string {
	var out []string
	if kind.images() {
		out = append(out, "image/*")
	}
	if kind.videos() {
		out = append(out, "video/*")
	}
	return out
}

func (d *providerDriver) pickImage(ctx context.Context, kind MediaKind) (string, error) {
	urls, err := d.b.GetContent(ctx, native.GetContentArgs{Pick: true, Types: contentTypes(kind)})
	if err != nil || len(urls) == 0 {
		return "", err
	}
	return urls[0], nil
}

func (d *providerDriver) pickMedia(ctx context.Context, args PickMediaArgs) (*pickedMedia, error) {
	if args.Camera {
		res, err := d.b.CaptureMedia(ctx, native.CaptureArgs{Video: args.Type == MediaVideo})
		if err != nil || res == nil {
			return nil, err
		}
		return &pickedMedia{url: res.URL, mimeType: res.Type, tempPath: res.TempPath}, nil
	}
	u, err := d.pickImage(ctx, args.Type)
	if err != nil || u == "" {
		return nil, err
	}
	return &pickedMedia{url: u}, nil
}

func (d *providerDriver) videoFrame(ctx context.Context, path string, args native.FrameArgs) (native.BlobData, error) {
	return d.b.GetVideoFrame(ctx, path, args)
}

func (d *providerDriver) openFileSource() events.Source[OpenFileEvent] {
	return providerSource{b: d.b}
}

type providerSource struct{ b native.Provider }

func (s providerSource) Pending(ctx context.Context) (OpenFileEvent, bool, error) {
	in, err := s.b.InitialIntent(ctx)
	if err != nil || in == nil {
		return OpenFileEvent{}, false, err
	}
	out, ok := openFileFromIntent(*in)
	return out, ok, nil
}

func (s providerSource) Listen(fn func(OpenFileEvent)) func() {
	return s.b.AddIntentListener(func(in native.Intent) {
		if out, ok := openFileFromIntent(in); ok {
			fn(out)
		}
	})
}
