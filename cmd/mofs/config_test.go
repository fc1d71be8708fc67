package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"

	"github.com/jacktea/mofs/pkg/backend/provider"
	"github.com/jacktea/mofs/pkg/backend/sandbox"
	"github.com/jacktea/mofs/pkg/mofs"
)

func TestBackendConfigProvider(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("backend", "Provider")
	viper.Set("root", "/tmp/device")
	viper.Set("provider.authority", "com.example.mofs")
	viper.Set("gc.interval", time.Minute)

	name, cfg, err := backendConfig(logr.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != mofs.BackendProvider {
		t.Fatalf("expected provider, got %q", name)
	}
	if cfg["root"] != "/tmp/device" || cfg["authority"] != "com.example.mofs" {
		t.Fatalf("unexpected config %v", cfg)
	}
	if cfg["gc_interval"] != time.Minute {
		t.Fatalf("expected gc interval, got %v", cfg["gc_interval"])
	}
	if _, ok := cfg["inbox_watch"]; ok {
		t.Fatalf("sandbox key leaked into provider config")
	}
}

func TestBackendConfigValidation(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("backend", "ftp")
	if _, _, err := backendConfig(logr.Discard()); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	log := newLogger("nonsense")
	if log.V(1).Enabled() {
		t.Fatalf("expected debug disabled at info level")
	}
	if !newLogger("debug").V(1).Enabled() {
		t.Fatalf("expected debug enabled")
	}
}

func newSandboxFs(t *testing.T) *mofs.Fs {
	t.Helper()
	b, err := sandbox.New(context.Background(), sandbox.Config{})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	f, err := mofs.New(mofs.Options{Backend: b})
	if err != nil {
		t.Fatalf("new fs: %v", err)
	}
	return f
}

func TestPutCatList(t *testing.T) {
	ctx := context.Background()
	f := newSandboxFs(t)
	p := sandbox.DocumentDir + "/notes.txt"
	if err := doPut(ctx, f, p, strings.NewReader("hello"), false); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := doPut(ctx, f, p, strings.NewReader(" world"), true); err != nil {
		t.Fatalf("append: %v", err)
	}

	var out bytes.Buffer
	if err := doCat(ctx, f, &out, p, mofs.ReadOptions{}); err != nil {
		t.Fatalf("cat: %v", err)
	}
	if out.String() != "hello world" {
		t.Fatalf("expected hello world, got %q", out.String())
	}

	out.Reset()
	size := int64(5)
	if err := doCat(ctx, f, &out, p, mofs.ReadOptions{Offset: -6, Size: &size}); err != nil {
		t.Fatalf("cat tail: %v", err)
	}
	if out.String() != "world" {
		t.Fatalf("expected world, got %q", out.String())
	}

	out.Reset()
	if err := doList(ctx, f, &out, sandbox.DocumentDir); err != nil {
		t.Fatalf("ls: %v", err)
	}
	if out.String() != "Inbox/\nnotes.txt\t11\n" {
		t.Fatalf("unexpected listing %q", out.String())
	}
}

func TestChmodRejectsBadMode(t *testing.T) {
	f := newSandboxFs(t)
	if err := doChmod(context.Background(), f, sandbox.DocumentDir, "9z"); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}

func TestGCSweepsStagedFiles(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("gc.max_age", time.Nanosecond)
	application.log = logr.Discard()
	ctx := context.Background()

	b, err := provider.New(ctx, provider.Config{SweepMaxAge: time.Nanosecond})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer b.Close()
	pf, err := mofs.New(mofs.Options{Backend: b})
	if err != nil {
		t.Fatalf("new fs: %v", err)
	}
	sf := newSandboxFs(t)

	for _, tc := range []struct {
		f   *mofs.Fs
		dir string
	}{
		{pf, provider.ExternalCacheDir},
		{sf, sandbox.CachesDir},
	} {
		if err := tc.f.WriteTextFile(ctx, tc.dir+"/mofs-frame.mp4", "v"); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(time.Millisecond)
		n, err := doGC(ctx, tc.f)
		if err != nil {
			t.Fatalf("gc: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 removal in %s, got %d", tc.dir, n)
		}
	}

	none, err := mofs.New(mofs.Options{})
	if err != nil {
		t.Fatalf("new fs: %v", err)
	}
	if _, err := doGC(ctx, none); err == nil {
		t.Fatalf("expected error without backend")
	}
}

func TestServeContentRequiresProvider(t *testing.T) {
	f := newSandboxFs(t)
	if err := runServeContent(context.Background(), f, contentServeOptions{}); err == nil {
		t.Fatalf("expected provider requirement error")
	}
}
