// Package status maintains the content-hash-keyed ledger that records what
// has been published for a tenant.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

// Load reads a ledger file. A missing file is an empty ledger, not an error.
func Load(path string) (models.Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Ledger{}, nil
		}
		return nil, fmt.Errorf("status: read ledger: %w", err)
	}
	ledger := models.Ledger{}
	if err := json.Unmarshal(data, &ledger); err != nil {
		// A corrupt ledger must not brick the tenant; start over and let
		// the next publish repopulate it.
		return models.Ledger{}, nil
	}
	return ledger, nil
}

// Save atomically rewrites the ledger file: tmp file, fsync, rename. This is
// the last step of a publish or remove operation and only runs on full
// success of rendering.
func Save(path string, ledger models.Ledger) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("status: encode ledger: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("status: mkdir: %w: %w", err, apperr.ErrPersistence)
	}
	tmp, err := os.CreateTemp(dir, ".status-tmp-*")
	if err != nil {
		return fmt.Errorf("status: create temp: %w: %w", err, apperr.ErrPersistence)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("status: write temp: %w: %w", err, apperr.ErrPersistence)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("status: fsync: %w: %w", err, apperr.ErrPersistence)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("status: close temp: %w: %w", err, apperr.ErrPersistence)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("status: rename: %w: %w", err, apperr.ErrPersistence)
	}
	success = true
	return nil
}

// Merge computes the next ledger from the previous one, the freshly rendered
// batch, and an explicit removal set.
//
// Every rendered note gets a fresh record with the current hash and URL.
// Every previously recorded path neither rendered nor removed is carried
// forward unchanged, which is what makes publishing a single note safe for
// the rest of the site. Removal wins over rendering for paths in both sets.
func Merge(prev models.Ledger, rendered []models.RenderedNote, removed []string, now time.Time) models.Ledger {
	next := make(models.Ledger, len(prev)+len(rendered))
	ts := now.UnixMilli()
	for _, item := range rendered {
		next[item.RelativePath] = models.StatusRecord{
			Hash:      item.Hash,
			URL:       item.URL,
			UpdatedAt: ts,
		}
	}
	for path, rec := range prev {
		if _, fresh := next[path]; !fresh {
			next[path] = rec
		}
	}
	for _, path := range removed {
		delete(next, path)
	}
	return next
}

// Classify reports how a local note relates to its ledger entry. local is
// the record from this installation's ledger, remote an optional record
// reported by a separate status query.
func Classify(localHash string, local, remote *models.StatusRecord) models.Status {
	switch {
	case local != nil && local.Hash == localHash:
		return models.StatusPublished
	case local == nil && remote != nil && remote.Hash == localHash:
		return models.StatusPublished
	case local != nil || remote != nil:
		return models.StatusPending
	default:
		return models.StatusUnpublished
	}
}
