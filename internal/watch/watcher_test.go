package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/namespace"
	"github.com/starford/sowilo/internal/publisher"
	"github.com/starford/sowilo/internal/site"
	"github.com/starford/sowilo/internal/testutil"
)

func TestRelevant(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/data/notes/a.md", true},
		{"/data/notes/a.markdown", true},
		{"/data/notes/a.txt", true},
		{"/data/notes/a.md.enc.json", true},
		{"/data/notes/.hidden.md", false},
		{"/data/notes/a.png", false},
		{"/data/notes/.sowilo-tmp-123", false},
	}
	for _, c := range cases {
		if got := relevant(c.path); got != c.want {
			t.Errorf("relevant(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	base := t.TempDir()
	outDir := filepath.Join(base, "dist")
	resolver := namespace.NewResolver(namespace.ModeSingle, filepath.Join(base, "data"), outDir)
	log := testutil.Logger(t)
	svc := publisher.NewService(log, resolver, site.NewBuilder(log, nil, outDir))

	ns, err := resolver.Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := namespace.Ensure(ns); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	built := make(chan error, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, svc, "", ns.RawDir, log, func(err error) { built <- err })
	}()

	// Give the watcher a moment to register the directory tree.
	time.Sleep(100 * time.Millisecond)

	notePath := filepath.Join(ns.RawDir, "watched.md")
	if err := os.WriteFile(notePath, []byte("# Watched\n\nBody.\n"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	select {
	case err := <-built:
		if err != nil {
			t.Fatalf("rebuild failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not rebuild after a file change")
	}

	if _, err := os.Stat(filepath.Join(outDir, "watched", "index.html")); err != nil {
		t.Fatalf("rebuilt page missing: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
