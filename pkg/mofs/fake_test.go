package mofs

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/jacktea/mofs/pkg/digest"
	"github.com/jacktea/mofs/pkg/encryption"
	"github.com/jacktea/mofs/pkg/native"
)

// fakeCommon is an in-memory backend that records every native call.
type fakeCommon struct {
	mu       sync.Mutex
	calls    []string
	blobs    map[string][]byte
	released []string
	nextID   int

	files map[string][]byte
	dirs  map[string]bool

	mimes      map[string]string
	exts       map[string]string
	imageSize  native.ImageSize
	exif       map[string]any
	exifErr    error
	updates    []native.UpdateImageArgs
	deleteErr  error
	verbose    bool
	modSeconds float64
}

func newFakeCommon() *fakeCommon {
	return &fakeCommon{
		blobs: map[string][]byte{},
		files: map[string][]byte{},
		dirs:  map[string]bool{"/": true},
		mimes: map[string]string{
			"txt": "text/plain", "jpg": "image/jpeg", "png": "image/png",
			"mp4": "video/mp4", "mov": "video/quicktime", "pdf": "application/pdf",
		},
		exts:       map[string]string{"video/mp4": "mp4", "image/jpeg": "jpg"},
		imageSize:  native.ImageSize{Width: 800, Height: 600},
		modSeconds: 1700000000.4567,
	}
}

func (c *fakeCommon) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *fakeCommon) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeCommon) called(name string) int {
	n := 0
	for _, call := range c.Calls() {
		if call == name {
			n++
		}
	}
	return n
}

func (c *fakeCommon) liveBlobs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blobs)
}

func (c *fakeCommon) store(data []byte, typ string) native.BlobData {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := fmt.Sprintf("blob-%d", c.nextID)
	c.blobs[id] = data
	return native.BlobData{ID: id, Size: int64(len(data)), Type: typ}
}

func (c *fakeCommon) resolve(b native.BlobData) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.blobs[b.ID]
	if !ok {
		return nil, native.ErrNotFound
	}
	return data[b.Offset : b.Offset+b.Size], nil
}

func (c *fakeCommon) SetVerbose(v bool) {
	c.record("setVerbose")
	c.mu.Lock()
	c.verbose = v
	c.mu.Unlock()
}

func (c *fakeCommon) GetMimeType(ctx context.Context, ext string) (string, error) {
	c.record("getMimeType")
	return c.mimes[ext], nil
}

func (c *fakeCommon) GetExtensionForMimeType(ctx context.Context, mimeType string) (string, error) {
	c.record("getExtensionForMimeType")
	return c.exts[mimeType], nil
}

func (c *fakeCommon) CreateBlob(ctx context.Context, str string, mode native.StringMode) (native.BlobData, error) {
	c.record("createBlob")
	switch mode {
	case native.ModeUTF8:
		return c.store([]byte(str), ""), nil
	case native.ModeBase64:
		data, err := base64.StdEncoding.DecodeString(str)
		if err != nil {
			return native.BlobData{}, err
		}
		return c.store(data, ""), nil
	}
	return native.BlobData{}, fmt.Errorf("bad mode %q", mode)
}

func (c *fakeCommon) ReadBlob(ctx context.Context, b native.BlobData, mode native.StringMode) (string, error) {
	c.record("readBlob")
	data, err := c.resolve(b)
	if err != nil {
		return "", err
	}
	if mode == native.ModeBase64 {
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return string(data), nil
}

func (c *fakeCommon) ReleaseBlob(id string) error {
	c.record("releaseBlob")
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.blobs[id]; !ok {
		return native.ErrNotFound
	}
	delete(c.blobs, id)
	c.released = append(c.released, id)
	return nil
}

func (c *fakeCommon) ReadFile(ctx context.Context, args native.ReadFileArgs) (native.BlobData, error) {
	c.record("readFile")
	c.mu.Lock()
	content, ok := c.files[args.Path]
	c.mu.Unlock()
	if !ok {
		return native.BlobData{}, native.ErrNotFound
	}
	n := int64(len(content))
	off := args.Offset
	if off < 0 {
		off = n + off + 1
	}
	if off < 0 || off > n {
		return native.BlobData{}, native.ErrOutOfRange
	}
	end := n
	if args.Size != nil && off+*args.Size < n {
		end = off + *args.Size
	}
	b := c.store(append([]byte(nil), content[off:end]...), "")
	b.Name = path.Base(args.Path)
	return b, nil
}

func (c *fakeCommon) WriteFile(ctx context.Context, args native.WriteFileArgs) error {
	c.record("writeFile")
	data, err := c.resolve(args.Blob)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirs[path.Dir(args.Path)] {
		return native.ErrNotFound
	}
	content := c.files[args.Path]
	off := args.Offset
	if off < 0 {
		off = int64(len(content)) + off + 1
	}
	if off > int64(len(content)) {
		content = append(content, make([]byte, off-int64(len(content)))...)
	}
	end := off + int64(len(data))
	var out []byte
	if args.Truncate || end >= int64(len(content)) {
		out = append(append([]byte(nil), content[:off]...), data...)
	} else {
		out = append([]byte(nil), content...)
		copy(out[off:], data)
	}
	c.files[args.Path] = out
	return nil
}

func (c *fakeCommon) DeleteFile(ctx context.Context, p string, recursive bool) error {
	c.record("deleteFile")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	if _, ok := c.files[p]; ok {
		delete(c.files, p)
		return nil
	}
	if c.dirs[p] {
		if !recursive && c.hasChildren(p) {
			return fmt.Errorf("directory not empty: %s", p)
		}
		delete(c.dirs, p)
		return nil
	}
	return native.ErrNotFound
}

func (c *fakeCommon) hasChildren(dir string) bool {
	for p := range c.files {
		if path.Dir(p) == dir {
			return true
		}
	}
	return false
}

func (c *fakeCommon) RenameFile(ctx context.Context, from, to string) error {
	c.record("renameFile")
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.files[from]
	if !ok {
		return native.ErrNotFound
	}
	delete(c.files, from)
	c.files[to] = content
	return nil
}

func (c *fakeCommon) ListDir(ctx context.Context, dir string) ([]string, error) {
	c.record("listDir")
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirs[dir] {
		return nil, native.ErrNotFound
	}
	var out []string
	for p := range c.files {
		if path.Dir(p) == dir {
			out = append(out, path.Base(p))
		}
	}
	for p := range c.dirs {
		if p != dir && path.Dir(p) == dir {
			out = append(out, path.Base(p))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *fakeCommon) mkdir(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ; p != "/" && p != "."; p = path.Dir(p) {
		c.dirs[p] = true
	}
}

func (c *fakeCommon) exists(p string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, isFile := c.files[p]
	return isFile || c.dirs[p]
}

func (c *fakeCommon) CreateDir(ctx context.Context, p string) error {
	c.record("createDir")
	c.mkdir(p)
	return nil
}

func (c *fakeCommon) GetBlobHash(ctx context.Context, b native.BlobData, algorithm string) (string, error) {
	c.record("getBlobHash")
	data, err := c.resolve(b)
	if err != nil {
		return "", err
	}
	return digest.SumBytes(data, algorithm)
}

func (c *fakeCommon) GetBlobHmac(ctx context.Context, b native.BlobData, algorithm, key string) (string, error) {
	c.record("getBlobHmac")
	data, err := c.resolve(b)
	if err != nil {
		return "", err
	}
	k, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}
	return digest.SumHMAC(bytes.NewReader(data), algorithm, k)
}

func (c *fakeCommon) CryptBlob(ctx context.Context, b native.BlobData, algorithm string, encrypt bool, key, iv string) (native.BlobData, error) {
	c.record("cryptBlob")
	data, err := c.resolve(b)
	if err != nil {
		return native.BlobData{}, err
	}
	k, _ := base64.StdEncoding.DecodeString(key)
	v, _ := base64.StdEncoding.DecodeString(iv)
	out, err := encryption.Crypt(data, encrypt, encryption.Options{Method: encryption.MethodAESCBC, Key: k, IV: v})
	if err != nil {
		return native.BlobData{}, err
	}
	return c.store(out, ""), nil
}

func (c *fakeCommon) GetImageSize(ctx context.Context, b native.BlobData) (native.ImageSize, error) {
	c.record("getImageSize")
	if _, err := c.resolve(b); err != nil {
		return native.ImageSize{}, err
	}
	return c.imageSize, nil
}

func (c *fakeCommon) GetExif(ctx context.Context, b native.BlobData) (map[string]any, error) {
	c.record("getExif")
	if c.exifErr != nil {
		return nil, c.exifErr
	}
	return c.exif, nil
}

func (c *fakeCommon) UpdateImage(ctx context.Context, b native.BlobData, args native.UpdateImageArgs) (native.BlobData, error) {
	c.record("updateImage")
	if _, err := c.resolve(b); err != nil {
		return native.BlobData{}, err
	}
	c.mu.Lock()
	c.updates = append(c.updates, args)
	c.mu.Unlock()
	return c.store([]byte("pixels"), args.Encoding.MimeType()), nil
}

func (c *fakeCommon) lastUpdate() native.UpdateImageArgs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates[len(c.updates)-1]
}

// fakeSandbox records calls to a native.Sandbox.
type fakeSandbox struct {
	*fakeCommon
	lastURL      *native.OpenURLEvent
	listeners    map[int]func(native.OpenURLEvent)
	nextListener int
	interactions []native.DocumentInteractionArgs
	pickerArgs   []native.DocumentPickerArgs
	picked       []string
	imageResult  *native.ImagePickerResult
	imageArgs    []native.ImagePickerArgs
	frameErr     error
	// strictDirs makes CreateDir fail on existing paths.
	strictDirs bool
}

func newFakeSandbox() *fakeSandbox {
	return &fakeSandbox{fakeCommon: newFakeCommon(), listeners: map[int]func(native.OpenURLEvent){}}
}

func (s *fakeSandbox) Paths() native.SandboxPaths {
	return native.SandboxPaths{Bundle: "/app/bundle", Document: "/app/Documents", Caches: "/app/Library/Caches", Library: "/app/Library"}
}

func (s *fakeSandbox) CreateDir(ctx context.Context, dir string) error {
	if s.strictDirs && s.exists(dir) {
		s.record("createDir")
		return native.ErrAlreadyExist
	}
	return s.fakeCommon.CreateDir(ctx, dir)
}

func (s *fakeSandbox) Stat(ctx context.Context, p string) (*native.FileAttributes, error) {
	s.record("stat")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirs[p] {
		return &native.FileAttributes{FileType: native.FileTypeDirectory}, nil
	}
	content, ok := s.files[p]
	if !ok {
		return nil, nil
	}
	size := int64(len(content))
	mod := s.modSeconds
	return &native.FileAttributes{FileType: native.FileTypeRegular, FileSize: &size, ModificationDate: &mod}, nil
}

func (s *fakeSandbox) SetAttributes(ctx context.Context, p string, attrs map[string]any) error {
	s.record("setAttributes")
	return nil
}

func (s *fakeSandbox) GetUTIForMimeType(ctx context.Context, mimeType string) (string, error) {
	s.record("getUTIForMimeType")
	return "uti." + strings.ReplaceAll(mimeType, "/", "."), nil
}

func (s *fakeSandbox) LastOpenURL(ctx context.Context) (*native.OpenURLEvent, error) {
	s.record("lastOpenURL")
	return s.lastURL, nil
}

func (s *fakeSandbox) AddOpenURLListener(fn func(native.OpenURLEvent)) func() {
	s.record("addOpenURLListener")
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *fakeSandbox) openURL(u string) {
	s.mu.Lock()
	fns := make([]func(native.OpenURLEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(native.OpenURLEvent{URL: u})
	}
}

func (s *fakeSandbox) ShowDocumentInteractionController(ctx context.Context, args native.DocumentInteractionArgs) error {
	s.record("showDocumentInteractionController")
	s.interactions = append(s.interactions, args)
	return nil
}

func (s *fakeSandbox) ShowDocumentPickerView(ctx context.Context, args native.DocumentPickerArgs) ([]string, error) {
	s.record("showDocumentPickerView")
	s.pickerArgs = append(s.pickerArgs, args)
	return s.picked, nil
}

func (s *fakeSandbox) ShowImagePickerController(ctx context.Context, args native.ImagePickerArgs) (*native.ImagePickerResult, error) {
	s.record("showImagePickerController")
	s.imageArgs = append(s.imageArgs, args)
	return s.imageResult, nil
}

func (s *fakeSandbox) AssetImageGenerator(ctx context.Context, args native.AssetImageArgs) (native.BlobData, error) {
	s.record("assetImageGenerator")
	if s.frameErr != nil {
		return native.BlobData{}, s.frameErr
	}
	return s.store([]byte("frame"), "image/jpeg"), nil
}

// fakeProvider records calls to a native.Provider. Its CreateDir fails on existing paths.
type fakeProvider struct {
	*fakeCommon
	initial      *native.Intent
	listeners    map[int]func(native.Intent)
	nextListener int
	sent         []native.SendIntentArgs
	viewed       []native.ViewIntentArgs
	contentArgs  []native.GetContentArgs
	content      []string
	capture      *native.CaptureResult
	frameErr     error
	framePaths   []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{fakeCommon: newFakeCommon(), listeners: map[int]func(native.Intent){}}
}

func (p *fakeProvider) Authority() string { return "com.example.mofs" }

func (p *fakeProvider) Paths() native.ProviderPaths {
	return native.ProviderPaths{Files: "/data/files", PackageResource: "/data/app.apk", Data: "/data"}
}

func (p *fakeProvider) CreateDir(ctx context.Context, dir string) error {
	p.record("createDir")
	if p.exists(dir) {
		return native.ErrAlreadyExist
	}
	p.mkdir(dir)
	return nil
}

func (p *fakeProvider) Stat(ctx context.Context, name string) (native.ProviderStat, error) {
	p.record("stat")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirs[name] {
		return native.ProviderStat{Type: native.StatTypeDirectory}, nil
	}
	content, ok := p.files[name]
	if !ok {
		return native.ProviderStat{}, nil
	}
	return native.ProviderStat{Type: native.StatTypeFile, Length: int64(len(content)), LastModified: 1700000000457}, nil
}

func (p *fakeProvider) Chmod(ctx context.Context, name string, mode uint32) error {
	p.record("chmod")
	return nil
}

func (p *fakeProvider) InitialIntent(ctx context.Context) (*native.Intent, error) {
	p.record("initialIntent")
	return p.initial, nil
}

func (p *fakeProvider) AddIntentListener(fn func(native.Intent)) func() {
	p.record("addIntentListener")
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) newIntent(in native.Intent) {
	p.mu.Lock()
	fns := make([]func(native.Intent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(in)
	}
}

func (p *fakeProvider) SendIntentChooser(ctx context.Context, args native.SendIntentArgs) error {
	p.record("sendIntentChooser")
	p.sent = append(p.sent, args)
	return nil
}

func (p *fakeProvider) ViewIntentChooser(ctx context.Context, args native.ViewIntentArgs) error {
	p.record("viewIntentChooser")
	p.viewed = append(p.viewed, args)
	return nil
}

func (p *fakeProvider) GetContent(ctx context.Context, args native.GetContentArgs) ([]string, error) {
	p.record("getContent")
	p.contentArgs = append(p.contentArgs, args)
	return p.content, nil
}

func (p *fakeProvider) CaptureMedia(ctx context.Context, args native.CaptureArgs) (*native.CaptureResult, error) {
	p.record("captureMedia")
	return p.capture, nil
}

func (p *fakeProvider) GetVideoFrame(ctx context.Context, name string, args native.FrameArgs) (native.BlobData, error) {
	p.record("getVideoFrame")
	p.framePaths = append(p.framePaths, name)
	if p.frameErr != nil {
		return native.BlobData{}, p.frameErr
	}
	return p.store([]byte("frame"), "image/jpeg"), nil
}
