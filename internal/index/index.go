package index

import (
	"github.com/starford/vaultscribe/internal/models"
	"github.com/starford/vaultscribe/internal/resolver"
)

// FileCatalog defines the interface for file indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type FileCatalog interface {
	resolver.FileIndex
	UpsertFile(f models.File) error
	DeleteFile(path string) error
	DeletePrefix(dir string) (int64, error)
	Fingerprints() (map[string]Fingerprint, error)
	Count() (int, error)
	Close() error
}

// Verify *DB satisfies FileCatalog at compile time.
var _ FileCatalog = (*DB)(nil)
