package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vaultscribe/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the vault root and keeps the file
// index current until ctx is cancelled. It calls cb (if non-nil) after each
// successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events schedule a debounced reconciliation pass against the vault.
func Watch(ctx context.Context, db FileCatalog, store *storage.FS, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, store.Root()); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", store.Root()))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	emit := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, emit)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			if storage.Skipped(filepath.Base(absPath)) {
				continue
			}
			rel, relErr := store.Rel(absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				info, statErr := os.Stat(absPath)
				if statErr != nil {
					continue
				}
				if info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// Files may have landed before the watch was added.
					indexDir(db, store, rel, logger, emit)
					continue
				}
				f, statErr := store.Stat(rel)
				if statErr != nil {
					continue
				}
				if upErr := db.UpsertFile(f); upErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", upErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				emit(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				removePath(db, rel, logger, emit)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old path only; the new path
				// arrives as a Create if it stays inside a watched dir.
				removePath(db, rel, logger, emit)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// removePath drops a file row, or every row under it when it was a folder.
func removePath(db FileCatalog, rel string, logger *slog.Logger, emit func(kind, path string)) {
	if _, ok, _ := db.Lookup(rel); ok {
		if err := db.DeleteFile(rel); err != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("path", rel))
		emit("deleted", rel)
		return
	}
	n, err := db.DeletePrefix(rel)
	if err != nil {
		logger.Warn("watcher: delete dir failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		logger.Debug("watcher: deleted dir", slog.String("path", rel), slog.Int64("files", n))
		emit("deleted", rel)
	}
}

// reconcile runs a Sync pass and reports files that changed.
func reconcile(db FileCatalog, store storage.Provider, logger *slog.Logger, emit func(kind, path string)) {
	before, err := db.Fingerprints()
	if err != nil {
		logger.Warn("reconcile: fingerprints failed", slog.String("error", err.Error()))
		return
	}
	if _, err := Sync(db, store, logger); err != nil {
		logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
		return
	}
	after, err := db.Fingerprints()
	if err != nil {
		return
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			emit("deleted", p)
		}
	}
	for p, fp := range after {
		old, ok := before[p]
		switch {
		case !ok:
			emit("created", p)
		case old != fp:
			emit("updated", p)
		}
	}
}

// indexDir indexes the regular files found under a newly created directory.
func indexDir(db FileCatalog, store storage.Provider, rel string, logger *slog.Logger, emit func(kind, path string)) {
	files, err := store.List(rel)
	if err != nil {
		return
	}
	for _, f := range files {
		if err := db.UpsertFile(f); err == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", f.Path))
			emit("created", f.Path)
		}
	}
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && storage.Skipped(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
