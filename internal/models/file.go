// Package models defines the domain types for vaultscribe.
package models

import (
	"path"
	"strings"
	"time"
)

// File is a regular file in the vault.
type File struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFile builds a File for a vault-relative path, deriving Name from it.
func NewFile(p string, size int64, updatedAt time.Time) File {
	return File{
		Path:      p,
		Name:      path.Base(p),
		Size:      size,
		UpdatedAt: updatedAt,
	}
}

// Ext returns the lower-cased extension without the leading dot.
func (f File) Ext() string {
	i := strings.LastIndex(f.Name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(f.Name[i+1:])
}
