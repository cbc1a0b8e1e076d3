// Package manifest records the outcome of every input file of a dataset run
// so later runs can skip files that are already up to date.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"datasetprep/internal/db"
)

// Status is the recorded outcome of one file.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Entry is one row of the manifest.
type Entry struct {
	RelPath    string
	OutputPath string
	Size       int64
	ModTime    time.Time
	Status     Status
	ErrorKind  string
	Error      string
	Width      int
	Height     int
}

// Store wraps the manifest database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the manifest at path.
func Open(path string) (*Store, error) {
	d, err := db.InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	return &Store{db: d}, nil
}

// New wraps an already migrated database.
func New(d *sql.DB) *Store {
	return &Store{db: d}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Lookup returns the entry for relPath, or (nil, nil) when none exists.
func (s *Store) Lookup(ctx context.Context, relPath string) (*Entry, error) {
	var e Entry
	var mod int64
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT rel_path, output_path, size, mod_time, status, error_kind, error, width, height
		FROM files WHERE rel_path = ?`, relPath).
		Scan(&e.RelPath, &e.OutputPath, &e.Size, &mod, &status, &e.ErrorKind, &e.Error, &e.Width, &e.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", relPath, err)
	}
	e.ModTime = time.Unix(0, mod).UTC()
	e.Status = Status(status)
	return &e, nil
}

// Record inserts or replaces the entry for e.RelPath.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (rel_path, output_path, size, mod_time, status, error_kind, error, width, height, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(rel_path) DO UPDATE SET
			output_path = excluded.output_path,
			size = excluded.size,
			mod_time = excluded.mod_time,
			status = excluded.status,
			error_kind = excluded.error_kind,
			error = excluded.error,
			width = excluded.width,
			height = excluded.height,
			updated_at = CURRENT_TIMESTAMP`,
		e.RelPath, e.OutputPath, e.Size, e.ModTime.UnixNano(), string(e.Status), e.ErrorKind, e.Error, e.Width, e.Height)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.RelPath, err)
	}
	return nil
}

// UpToDate reports whether e describes a successful run over a file with the
// given size and modification time.
func (e *Entry) UpToDate(size int64, modTime time.Time) bool {
	return e != nil && e.Status == StatusProcessed && e.Size == size && e.ModTime.Equal(modTime.UTC())
}

// Counts returns the number of entries per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM files GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count manifest: %w", err)
	}
	defer rows.Close()

	out := map[Status]int64{}
	for rows.Next() {
		var st string
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[Status(st)] = n
	}
	return out, rows.Err()
}
