package mofs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacktea/mofs/pkg/native"
)

func TestStatFromAttributes(t *testing.T) {
	size := int64(42)
	secs := 1.5
	zero := 0.0
	tests := []struct {
		name string
		in   *native.FileAttributes
		want Stat
	}{
		{"missing", nil, Stat{}},
		{"dir", &native.FileAttributes{FileType: native.FileTypeDirectory}, Stat{Exists: true, Dir: true}},
		{"file", &native.FileAttributes{FileType: native.FileTypeRegular, FileSize: &size, ModificationDate: &secs}, Stat{Exists: true, Size: 42, Modified: 1500}},
		{"epoch", &native.FileAttributes{FileType: native.FileTypeRegular, ModificationDate: &zero}, Stat{Exists: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statFromAttributes(tt.in))
		})
	}
}

func TestStatFromProvider(t *testing.T) {
	tests := []struct {
		name string
		in   native.ProviderStat
		want Stat
	}{
		{"missing", native.ProviderStat{}, Stat{}},
		{"dir", native.ProviderStat{Type: native.StatTypeDirectory}, Stat{Exists: true, Dir: true}},
		{"file", native.ProviderStat{Type: native.StatTypeFile, Length: 7, LastModified: 1500}, Stat{Exists: true, Size: 7, Modified: 1500}},
		{"fractional", native.ProviderStat{Type: native.StatTypeFile, LastModified: 1500.6}, Stat{Exists: true, Modified: 1501}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statFromProvider(tt.in))
		})
	}
}

func TestStatModTime(t *testing.T) {
	assert.True(t, Stat{}.ModTime().IsZero())
	assert.Equal(t, int64(1500), Stat{Modified: 1500}.ModTime().UnixMilli())
}

func TestPathsMapping(t *testing.T) {
	sb := pathsFromSandbox(native.SandboxPaths{Bundle: "/b", Document: "/d", Caches: "/c", Library: "/l"})
	assert.Equal(t, "/c", sb.Cache)
	assert.Equal(t, "/d", sb.Docs)
	assert.Equal(t, "/l", sb.Data)
	assert.Equal(t, "/b", sb.Bundle)

	pv := pathsFromProvider(native.ProviderPaths{ExternalCache: "/ext", Files: "/files", Data: "/data", PackageResource: "/pkg.apk"})
	assert.Equal(t, Paths{Cache: "/ext", Docs: "/files", Data: "/data", ExternalCache: "/ext", Files: "/files", PackageResource: "/pkg.apk"}, pv)

	pv = pathsFromProvider(native.ProviderPaths{Files: "/files"})
	assert.Equal(t, "/files", pv.Cache)
	assert.Equal(t, "/files", pv.Data)
}

func TestExtension(t *testing.T) {
	for in, want := range map[string]string{
		"a/b/c.tar.gz": "gz",
		"pdf":          "pdf",
		".png":         "png",
		"noext/":       "noext/",
	} {
		assert.Equal(t, want, extension(in), in)
	}
}

func TestOpenFileFromIntent(t *testing.T) {
	_, ok := openFileFromIntent(native.Intent{Action: native.ActionSend, Extras: map[string]any{native.ExtraStream: 42}})
	assert.False(t, ok)
	ev, ok := openFileFromIntent(native.Intent{Action: native.ActionSend, Extras: map[string]any{native.ExtraStream: "content://a/1"}})
	assert.True(t, ok)
	assert.Equal(t, "content://a/1", ev.URL)
	_, ok = openFileFromURL(native.OpenURLEvent{})
	assert.False(t, ok)
}
