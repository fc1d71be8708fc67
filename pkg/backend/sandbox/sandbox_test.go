package sandbox_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacktea/mofs/pkg/backend/sandbox"
	"github.com/jacktea/mofs/pkg/mofs"
	"github.com/jacktea/mofs/pkg/native"
	"github.com/jacktea/mofs/pkg/xerrors"
)

func newFs(t *testing.T, cfg sandbox.Config) (*mofs.Fs, *sandbox.Backend) {
	t.Helper()
	b, err := sandbox.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	f, err := mofs.New(mofs.Options{Backend: b})
	require.NoError(t, err)
	return f, b
}

func TestContainerLayout(t *testing.T) {
	f, _ := newFs(t, sandbox.Config{})
	assert.Equal(t, mofs.BackendSandbox, f.Backend())
	paths := f.Paths()
	assert.Equal(t, sandbox.CachesDir, paths.Cache)
	assert.Equal(t, sandbox.DocumentDir, paths.Docs)
	assert.Equal(t, sandbox.LibraryDir, paths.Data)

	names, err := f.ListDir(context.Background(), sandbox.DocumentDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Inbox"}, names)
}

func TestFileLifecycle(t *testing.T) {
	ctx := context.Background()
	f, _ := newFs(t, sandbox.Config{})
	p := sandbox.DocumentDir + "/notes/today.txt"

	require.NoError(t, f.CreateDir(ctx, sandbox.DocumentDir+"/notes"))
	require.NoError(t, f.CreateDir(ctx, sandbox.DocumentDir+"/notes"))
	require.NoError(t, f.WriteTextFile(ctx, p, "first"))
	require.NoError(t, f.AppendTextFile(ctx, p, " second"))

	got, err := f.ReadTextFile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "first second", got)

	st, err := f.Stat(ctx, p)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.False(t, st.Dir)
	assert.Equal(t, int64(12), st.Size)
	assert.WithinDuration(t, time.Now(), st.ModTime(), time.Minute)

	require.NoError(t, f.RenameFile(ctx, p, sandbox.DocumentDir+"/done.txt"))
	st, err = f.Stat(ctx, p)
	require.NoError(t, err)
	assert.False(t, st.Exists)

	require.NoError(t, f.DeleteFile(ctx, sandbox.DocumentDir+"/done.txt", false))
	err = f.DeleteFile(ctx, sandbox.DocumentDir+"/done.txt", false)
	assert.ErrorIs(t, err, xerrors.NotFound)
}

func TestThumbnailOfReadJPEG(t *testing.T) {
	ctx := context.Background()
	f, _ := newFs(t, sandbox.Config{})
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for x := 0; x < 80; x++ {
		img.Set(x, x%60, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	src, err := f.CreateBlobFromBytes(ctx, buf.Bytes())
	require.NoError(t, err)
	p := sandbox.DocumentDir + "/photo.jpg"
	require.NoError(t, f.WriteFile(ctx, p, src))
	require.NoError(t, src.Close())

	b, err := f.ReadFile(ctx, p, mofs.ReadOptions{})
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "image/jpeg", b.Type())

	thumb, err := f.CreateThumbnail(ctx, b, mofs.ThumbnailArgs{MaxWidth: 40, MaxHeight: 40})
	require.NoError(t, err)
	require.NotNil(t, thumb)
	defer thumb.Close()
	size, err := f.GetImageSize(ctx, thumb)
	require.NoError(t, err)
	assert.Equal(t, native.ImageSize{Width: 40, Height: 30}, size)
}

func TestPresenterDefaultsToNotSupported(t *testing.T) {
	ctx := context.Background()
	f, _ := newFs(t, sandbox.Config{})
	err := f.ShareFile(ctx, sandbox.DocumentDir+"/x.pdf", "")
	assert.ErrorIs(t, err, xerrors.NotSupported)
	_, err = f.PickFile(ctx, mofs.PickFileArgs{})
	assert.ErrorIs(t, err, native.ErrNotSupported)
	_, err = f.PickMedia(ctx, mofs.PickMediaArgs{})
	assert.ErrorIs(t, err, native.ErrNotSupported)
}

type recordingPresenter struct {
	shown  []native.DocumentInteractionArgs
	result *native.ImagePickerResult
}

func (p *recordingPresenter) ShowDocumentInteraction(ctx context.Context, args native.DocumentInteractionArgs) error {
	p.shown = append(p.shown, args)
	return nil
}

func (p *recordingPresenter) PickDocuments(ctx context.Context, args native.DocumentPickerArgs) ([]string, error) {
	return nil, nil
}

func (p *recordingPresenter) PickImage(ctx context.Context, args native.ImagePickerArgs) (*native.ImagePickerResult, error) {
	return p.result, nil
}

func TestPresenter(t *testing.T) {
	ctx := context.Background()
	pr := &recordingPresenter{result: &native.ImagePickerResult{URL: "file:///Library/Caches/mofs-pick.jpg", TempPath: "/Library/Caches/mofs-pick.jpg"}}
	f, _ := newFs(t, sandbox.Config{Presenter: pr})

	require.NoError(t, f.ViewFile(ctx, sandbox.DocumentDir+"/report.pdf"))
	require.Len(t, pr.shown, 1)
	assert.Equal(t, "com.adobe.pdf", pr.shown[0].UTI)
	assert.Equal(t, native.InteractionPreview, pr.shown[0].Type)

	urls, err := f.PickFile(ctx, mofs.PickFileArgs{Types: []string{"image/png"}})
	require.NoError(t, err)
	assert.Empty(t, urls)

	require.NoError(t, f.WriteTextFile(ctx, pr.result.TempPath, "jpeg"))
	res, err := f.PickMedia(ctx, mofs.PickMediaArgs{Type: mofs.MediaImage})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "image/jpeg", res.MimeType)
	res.Release()
	st, err := f.Stat(ctx, pr.result.TempPath)
	require.NoError(t, err)
	assert.False(t, st.Exists)
}

func TestUTIMapping(t *testing.T) {
	_, b := newFs(t, sandbox.Config{})
	for mimeType, want := range map[string]string{
		"image/png":       "public.png",
		"image/x-unknown": native.UTIImage,
		"video/x-unknown": native.UTIMovie,
		"application/x-y": "public.data",
	} {
		got, err := b.GetUTIForMimeType(context.Background(), mimeType)
		require.NoError(t, err)
		assert.Equal(t, want, got, mimeType)
	}
}

func TestOpenURLReplayOnce(t *testing.T) {
	f, b := newFs(t, sandbox.Config{})
	b.HandleOpenURL("file:///Documents/Inbox/launch.pdf")

	var got []string
	unsub, err := f.OpenFile().Subscribe(context.Background(), func(ev mofs.OpenFileEvent) { got = append(got, ev.URL) })
	require.NoError(t, err)
	b.HandleOpenURL("file:///Documents/Inbox/live.pdf")
	unsub()

	unsub, err = f.OpenFile().Subscribe(context.Background(), func(ev mofs.OpenFileEvent) { got = append(got, ev.URL) })
	require.NoError(t, err)
	defer unsub()
	assert.Equal(t, []string{"file:///Documents/Inbox/launch.pdf", "file:///Documents/Inbox/live.pdf"}, got)
}

func TestInboxWatcherAnnouncesNewFiles(t *testing.T) {
	root := t.TempDir()
	f, _ := newFs(t, sandbox.Config{Root: root, WatchInbox: true})

	ch, err := f.OpenFile().Channel(t.Context(), 4)
	require.NoError(t, err)
	staged := filepath.Join(t.TempDir(), "shared.pdf")
	require.NoError(t, os.WriteFile(staged, []byte("%PDF"), 0o644))
	require.NoError(t, os.Rename(staged, filepath.Join(root, "Documents", "Inbox", "shared.pdf")))

	select {
	case ev := <-ch:
		assert.Equal(t, "file:///Documents/Inbox/shared.pdf", ev.URL)
		b, err := f.ReadURL(context.Background(), ev.URL)
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, int64(4), b.Size())
	case <-time.After(5 * time.Second):
		t.Fatal("no inbox event")
	}
}

func TestInboxWatchRequiresRoot(t *testing.T) {
	_, err := sandbox.New(context.Background(), sandbox.Config{WatchInbox: true})
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	f, err := mofs.Open(context.Background(), "sandbox", map[string]any{"root": t.TempDir()}, mofs.Options{})
	require.NoError(t, err)
	assert.Equal(t, mofs.BackendSandbox, f.Backend())
	sb, ok := f.Sandbox()
	require.True(t, ok)
	require.NoError(t, sb.(*sandbox.Backend).Close())
}
