// Package watch rebuilds a tenant's site when its raw note files change on
// disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sowilo/internal/publisher"
	"github.com/starford/sowilo/internal/storage"
)

// debounce batches a burst of editor writes into one rebuild.
const debounce = 300 * time.Millisecond

// RebuildCallback is called after each watcher-driven rebuild, successful
// or not.
type RebuildCallback func(err error)

// Watch starts an fsnotify watcher on the tenant's raw note directory and
// rebuilds the site after file changes until ctx is cancelled. Rapid event
// bursts collapse into a single rebuild. New directories created at runtime
// are added to the watch list.
func Watch(ctx context.Context, svc *publisher.Service, tenant, rawDir string, logger *slog.Logger, cb RebuildCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, rawDir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", rawDir))

	var rebuildTimer *time.Timer
	var rebuildCh <-chan time.Time

	scheduleRebuild := func() {
		if rebuildTimer == nil {
			rebuildTimer = time.NewTimer(debounce)
			rebuildCh = rebuildTimer.C
		} else {
			rebuildTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rebuildCh:
			if _, buildErr := svc.BuildStored(ctx, tenant); buildErr != nil {
				logger.Error("watcher: rebuild failed", slog.Any("error", buildErr))
				if cb != nil {
					cb(buildErr)
				}
				continue
			}
			logger.Debug("watcher: rebuilt")
			if cb != nil {
				cb(nil)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.Any("error", addErr))
					}
					scheduleRebuild()
					continue
				}
			}

			if !relevant(ev.Name) {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			scheduleRebuild()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.Any("error", watchErr))
		}
	}
}

// relevant filters events down to note files and encrypted sidecars,
// skipping hidden paths and in-flight temp files.
func relevant(absPath string) bool {
	base := filepath.Base(absPath)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return storage.IsNotePath(absPath) || strings.HasSuffix(absPath, storage.SidecarExt)
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != filepath.Base(root) && strings.HasPrefix(name, ".") {
			return fs.SkipDir
		}
		return w.Add(path)
	})
}
