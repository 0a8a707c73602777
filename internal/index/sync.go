package index

import (
	"log/slog"

	"github.com/starford/vaultscribe/internal/storage"
)

// SyncStats summarises one Sync pass.
type SyncStats struct {
	Indexed int
	Removed int
	Total   int
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files (by size and mtime) are upserted
//   - files removed from disk are deleted from the index
func Sync(db FileCatalog, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	files, err := store.List("")
	if err != nil {
		return SyncStats{}, err
	}

	known, err := db.Fingerprints()
	if err != nil {
		return SyncStats{}, err
	}

	var stats SyncStats
	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}

		if fp, ok := known[f.Path]; ok && fp == FingerprintOf(f) {
			continue
		}
		if err := db.UpsertFile(f); err != nil {
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", f.Path))
	}

	// Remove stale entries.
	for p := range known {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteFile(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	stats.Total = len(disk)
	return stats, nil
}
