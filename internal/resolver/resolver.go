// Package resolver maps audio references onto files in the vault.
//
// Resolution is two-phase. The raw reference is first looked up as an exact
// vault path. If that misses, every file in the index is scanned for one
// whose name equals the reference basename, ignoring case. The first match in
// the index's enumeration order wins: when several files share a basename the
// result depends on that order, which belongs to the FileIndex implementation
// and is neither sorted nor deduplicated here.
package resolver

import (
	"fmt"
	"strings"

	"github.com/starford/vaultscribe/internal/apperr"
	"github.com/starford/vaultscribe/internal/models"
	"github.com/starford/vaultscribe/internal/parser"
)

// Method names the resolution phase that produced a match.
type Method string

const (
	MethodExact    Method = "exact"
	MethodBasename Method = "basename"
)

// FileIndex is the read-only catalogue of vault files queried by Resolve.
type FileIndex interface {
	// Lookup returns the regular file stored at path, if any.
	Lookup(path string) (models.File, bool, error)
	// Files returns all known regular files in enumeration order.
	Files() ([]models.File, error)
}

// Resolution is a reference matched to a vault file.
type Resolution struct {
	File   models.File `json:"file"`
	Method Method      `json:"method"`
}

// Resolve finds the file a reference points to. It returns an error wrapping
// apperr.ErrNotFound when neither phase matches.
func Resolve(ref parser.Reference, idx FileIndex) (Resolution, error) {
	f, ok, err := idx.Lookup(ref.Raw)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolver: lookup %q: %w", ref.Raw, err)
	}
	if ok {
		return Resolution{File: f, Method: MethodExact}, nil
	}

	f, ok, err = FindByName(idx, ref.Basename())
	if err != nil {
		return Resolution{}, err
	}
	if ok {
		return Resolution{File: f, Method: MethodBasename}, nil
	}
	return Resolution{}, fmt.Errorf("resolver: %q: %w", ref.Raw, apperr.ErrNotFound)
}

// FindByName linearly scans idx for the first file whose name equals name,
// ignoring case.
func FindByName(idx FileIndex, name string) (models.File, bool, error) {
	if name == "" {
		return models.File{}, false, nil
	}
	files, err := idx.Files()
	if err != nil {
		return models.File{}, false, fmt.Errorf("resolver: list files: %w", err)
	}
	for _, f := range files {
		if strings.EqualFold(f.Name, name) {
			return f, true, nil
		}
	}
	return models.File{}, false, nil
}
