package mofs

import (
	"context"
	"sync"
)

// ShareFile offers path to other apps. mimeType may be empty, in which
// case it is derived from the extension.
func (f *Fs) ShareFile(ctx context.Context, path, mimeType string) error {
	return f.do(ctx, "shareFile", path, func(d driver) error {
		return d.share(ctx, path, mimeType)
	})
}

// ViewFile shows a preview of path.
func (f *Fs) ViewFile(ctx context.Context, path string) error {
	return f.do(ctx, "viewFile", path, func(d driver) error {
		return d.view(ctx, path)
	})
}

// PickFile shows a file open dialog. A cancelled dialog yields an empty
// slice.
func (f *Fs) PickFile(ctx context.Context, args PickFileArgs) ([]string, error) {
	var out []string
	err := f.do(ctx, "pickFile", "", func(d driver) error {
		var err error
		out, err = d.pickFile(ctx, args)
		return err
	})
	return out, err
}

// PickImage shows an image/video picker. The boolean is false when the user
// cancelled.
func (f *Fs) PickImage(ctx context.Context, args PickImageArgs) (string, bool, error) {
	var out string
	err := f.do(ctx, "pickImage", "", func(d driver) error {
		var err error
		out, err = d.pickImage(ctx, args.Type)
		return err
	})
	return out, out != "", err
}

type pickedMedia struct {
	url      string
	mimeType string
	tempPath string
}

// PickMediaResult is a picked or captured media item. Release must be called
// once the caller is done with URL.
type PickMediaResult struct {
	URL      string
	MimeType string

	once    sync.Once
	release func()
}

// Release removes any temp file backing the result. Removal errors are
// ignored and repeated calls do nothing.
func (r *PickMediaResult) Release() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		if r.release != nil {
			r.release()
		}
	})
}

// PickMedia picks media from the library or captures it with the camera. A
// nil result means the user cancelled.
func (f *Fs) PickMedia(ctx context.Context, args PickMediaArgs) (*PickMediaResult, error) {
	var picked *pickedMedia
	err := f.do(ctx, "pickMedia", "", func(d driver) error {
		var err error
		picked, err = d.pickMedia(ctx, args)
		return err
	})
	if err != nil || picked == nil {
		return nil, err
	}
	res := &PickMediaResult{URL: picked.url, MimeType: picked.mimeType}
	if res.MimeType == "" {
		if mimeType, ok, err := f.GetMimeType(ctx, picked.url); err == nil && ok {
			res.MimeType = mimeType
		} else {
			res.MimeType = defaultMimeType
		}
	}
	if tmp := picked.tempPath; tmp != "" {
		res.release = func() {
			if err := f.DeleteFile(context.WithoutCancel(ctx), tmp, false); err != nil {
				f.log.V(1).Info("release picked media", "path", tmp, "error", err.Error())
			}
		}
	}
	return res, nil
}
