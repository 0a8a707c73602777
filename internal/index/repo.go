package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/vaultscribe/internal/models"
)

// Fingerprint is the cheap change-detection key of an indexed file.
type Fingerprint struct {
	Size      int64
	UpdatedAt int64 // unix nanoseconds
}

// FingerprintOf returns the fingerprint of f.
func FingerprintOf(f models.File) Fingerprint {
	return Fingerprint{Size: f.Size, UpdatedAt: f.UpdatedAt.UnixNano()}
}

// UpsertFile inserts or refreshes a file row. Existing rows keep their id and
// therefore their enumeration position.
func (db *DB) UpsertFile(f models.File) error {
	_, err := db.conn.Exec(`
		INSERT INTO files (path, name, size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			size       = excluded.size,
			updated_at = excluded.updated_at
	`, f.Path, f.Name, f.Size, f.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}
	return nil
}

// DeleteFile removes a file row. Deleting an unknown path is not an error.
func (db *DB) DeleteFile(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete file: %w", err)
	}
	return nil
}

// DeletePrefix removes every file under dir and returns how many rows went.
func (db *DB) DeletePrefix(dir string) (int64, error) {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return 0, nil
	}
	res, err := db.conn.Exec(`DELETE FROM files WHERE substr(path, 1, ?) = ?`, len(dir)+1, dir+"/")
	if err != nil {
		return 0, fmt.Errorf("index: delete prefix: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Lookup returns the file stored at exactly path.
func (db *DB) Lookup(path string) (models.File, bool, error) {
	row := db.conn.QueryRow(`SELECT path, name, size, updated_at FROM files WHERE path = ?`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.File{}, false, nil
	}
	if err != nil {
		return models.File{}, false, fmt.Errorf("index: lookup: %w", err)
	}
	return f, true, nil
}

// Files returns every indexed file in first-seen order.
func (db *DB) Files() ([]models.File, error) {
	rows, err := db.conn.Query(`SELECT path, name, size, updated_at FROM files ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("index: files: %w", err)
	}
	defer rows.Close()

	var out []models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Fingerprints returns the stored fingerprint for every indexed path.
func (db *DB) Fingerprints() (map[string]Fingerprint, error) {
	rows, err := db.conn.Query(`SELECT path, size, updated_at FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Fingerprint)
	for rows.Next() {
		var p string
		var fp Fingerprint
		if err := rows.Scan(&p, &fp.Size, &fp.UpdatedAt); err != nil {
			return nil, err
		}
		out[p] = fp
	}
	return out, rows.Err()
}

// Count returns the number of indexed files.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(r rowScanner) (models.File, error) {
	var f models.File
	var updated int64
	if err := r.Scan(&f.Path, &f.Name, &f.Size, &updated); err != nil {
		return models.File{}, err
	}
	f.UpdatedAt = time.Unix(0, updated)
	return f, nil
}
