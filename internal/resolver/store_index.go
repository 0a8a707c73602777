package resolver

import (
	"github.com/starford/vaultscribe/internal/models"
	"github.com/starford/vaultscribe/internal/storage"
)

// StoreIndex answers FileIndex queries straight from storage, walking the
// vault on every Files call. Enumeration order is the storage walk order.
type StoreIndex struct {
	store storage.Provider
}

// NewStoreIndex wraps a storage provider as a FileIndex.
func NewStoreIndex(store storage.Provider) *StoreIndex {
	return &StoreIndex{store: store}
}

// Lookup implements FileIndex.
func (s *StoreIndex) Lookup(path string) (models.File, bool, error) {
	f, err := s.store.Stat(path)
	if err != nil {
		// Missing files, folders and paths outside the vault all miss.
		return models.File{}, false, nil
	}
	return f, true, nil
}

// Files implements FileIndex.
func (s *StoreIndex) Files() ([]models.File, error) {
	return s.store.List("")
}

var _ FileIndex = (*StoreIndex)(nil)
