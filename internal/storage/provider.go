// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/vaultscribe/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root and use forward slashes.
type Provider interface {
	// List returns every regular file under dir in walk order.
	List(dir string) ([]models.File, error)
	// Stat returns metadata for the regular file at path.
	Stat(path string) (models.File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
