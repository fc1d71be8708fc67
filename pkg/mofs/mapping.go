package mofs

import (
	"fmt"
	"math"
	"strings"

	"github.com/jacktea/mofs/pkg/native"
)

func pathsFromSandbox(p native.SandboxPaths) Paths {
	return Paths{
		Cache:    p.Caches,
		Docs:     p.Document,
		Data:     p.Library,
		Bundle:   p.Bundle,
		Document: p.Document,
		Caches:   p.Caches,
		Library:  p.Library,
	}
}

func pathsFromProvider(p native.ProviderPaths) Paths {
	return Paths{
		Cache:           firstNonEmpty(p.ExternalCache, p.Data, p.Files),
		Docs:            p.Files,
		Data:            firstNonEmpty(p.Data, p.Files),
		ExternalCache:   p.ExternalCache,
		Files:           p.Files,
		PackageResource: p.PackageResource,
	}
}

// statFromAttributes maps sandbox attributes. nil means missing; the
// modification date arrives in seconds.
func statFromAttributes(a *native.FileAttributes) Stat {
	if a == nil {
		return Stat{}
	}
	st := Stat{Exists: true, Dir: a.FileType == native.FileTypeDirectory}
	if a.FileSize != nil {
		st.Size = *a.FileSize
	}
	if a.ModificationDate != nil && *a.ModificationDate != 0 {
		st.Modified = int64(math.Round(*a.ModificationDate * 1000))
	}
	return st
}

// statFromProvider maps a provider stat. An empty type means missing; the
// modification date already arrives in milliseconds and is only rounded.
func statFromProvider(s native.ProviderStat) Stat {
	if s.Type == "" {
		return Stat{}
	}
	return Stat{
		Exists:   true,
		Dir:      s.Type == native.StatTypeDirectory,
		Size:     s.Length,
		Modified: int64(math.Round(s.LastModified)),
	}
}

func openFileFromURL(ev native.OpenURLEvent) (OpenFileEvent, bool) {
	if ev.URL == "" {
		return OpenFileEvent{}, false
	}
	return OpenFileEvent{URL: ev.URL}, true
}

// openFileFromIntent keeps send intents carrying a stream extra and drops
// every other intent shape.
func openFileFromIntent(in native.Intent) (OpenFileEvent, bool) {
	if in.Action != native.ActionSend || in.Extras == nil {
		return OpenFileEvent{}, false
	}
	var url string
	switch v := in.Extras[native.ExtraStream].(type) {
	case string:
		url = v
	case fmt.Stringer:
		url = v.String()
	}
	if url == "" {
		return OpenFileEvent{}, false
	}
	return OpenFileEvent{URL: url}, true
}

// extension returns the part of s after its last dot, or s itself.
func extension(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
