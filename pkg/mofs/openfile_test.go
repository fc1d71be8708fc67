package mofs

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacktea/mofs/pkg/events"
	"github.com/jacktea/mofs/pkg/native"
)

func collect(t *testing.T, f *Fs) (*[]string, func()) {
	t.Helper()
	var got []string
	unsub, err := f.OpenFile().Subscribe(context.Background(), func(ev OpenFileEvent) {
		got = append(got, ev.URL)
	})
	require.NoError(t, err)
	return &got, unsub
}

func TestSandboxOpenFileReplaysOnce(t *testing.T) {
	f, sb := newSandboxFs(t)
	sb.lastURL = &native.OpenURLEvent{URL: "file:///inbox/a.pdf"}

	got, unsub := collect(t, f)
	assert.Equal(t, []string{"file:///inbox/a.pdf"}, *got)
	sb.openURL("file:///inbox/b.pdf")
	sb.openURL("")
	assert.Equal(t, []string{"file:///inbox/a.pdf", "file:///inbox/b.pdf"}, *got)
	unsub()

	sb.openURL("file:///inbox/ignored.pdf")
	got, unsub = collect(t, f)
	defer unsub()
	assert.Empty(t, *got)
	assert.Equal(t, 1, sb.called("lastOpenURL"))
}

func TestProviderOpenFileFiltersIntents(t *testing.T) {
	f, pv := newProviderFs(t)
	stream, _ := url.Parse("content://other.app/doc/1")
	pv.initial = &native.Intent{Action: native.ActionSend, Extras: map[string]any{native.ExtraStream: stream}}

	got, unsub := collect(t, f)
	defer unsub()
	assert.Equal(t, []string{"content://other.app/doc/1"}, *got)

	pv.newIntent(native.Intent{Action: "android.intent.action.VIEW", Extras: map[string]any{native.ExtraStream: "content://x/1"}})
	pv.newIntent(native.Intent{Action: native.ActionSend})
	pv.newIntent(native.Intent{Action: native.ActionSend, Extras: map[string]any{native.ExtraStream: "content://x/2"}})
	assert.Equal(t, []string{"content://other.app/doc/1", "content://x/2"}, *got)
}

func TestOpenFileSingleSubscriber(t *testing.T) {
	f, _ := newSandboxFs(t)
	_, unsub := collect(t, f)
	_, err := f.OpenFile().Subscribe(context.Background(), func(OpenFileEvent) {})
	assert.ErrorIs(t, err, events.ErrBusy)
	unsub()
	_, unsub = collect(t, f)
	unsub()
}

func TestOpenFileWithoutBackendNeverEmits(t *testing.T) {
	f, err := New(Options{})
	require.NoError(t, err)
	got, unsub := collect(t, f)
	defer unsub()
	assert.Empty(t, *got)
}
