// Package testutil provides shared test helpers for setting up note stores
// and the rendered-note index.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/sowilo/internal/siteindex"
	"github.com/starford/sowilo/internal/storage"
)

// Logger returns a slog.Logger that discards output unless the test runs
// verbose.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestIndex creates a temporary rendered-note index that is automatically
// cleaned up.
func TestIndex(t *testing.T) *siteindex.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sowilo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := siteindex.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary raw-notes directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
