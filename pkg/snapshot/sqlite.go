package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "modernc.org/sqlite"

	"github.com/jmylchreest/pagewatch/internal/logger"
	"github.com/jmylchreest/pagewatch/pkg/errdefs"
)

// sqliteSchema is applied on every open.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot_entries (
    url          TEXT PRIMARY KEY,
    position     INTEGER NOT NULL,
    fingerprint  TEXT NOT NULL,
    last_changed TEXT NOT NULL
);
`

// SQLiteStore persists the snapshot in a SQLite database file.
// Save replaces all rows inside one transaction.
type SQLiteStore struct {
	path string
}

// NewSQLiteStore creates a store for the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Location returns the database path.
func (s *SQLiteStore) Location() string {
	return s.path
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Load reads all entries in stored order. A missing database file is an
// empty snapshot and is not created.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		logger.Debug("snapshot database not found, starting empty", "path", s.path)
		return New(), nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return nil, errdefs.NewConfigError("snapshot", s.path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx,
		`SELECT url, fingerprint, last_changed FROM snapshot_entries ORDER BY position`)
	if err != nil {
		return nil, errdefs.NewConfigError("snapshot", s.path, err)
	}
	defer func() { _ = rows.Close() }()

	snap := New()
	for rows.Next() {
		var e Entry
		var changed string
		if err := rows.Scan(&e.URL, &e.Fingerprint, &changed); err != nil {
			return nil, errdefs.NewConfigError("snapshot", s.path, err)
		}
		if e.LastChanged, err = parseTime(changed); err != nil {
			return nil, errdefs.NewConfigError("snapshot", s.path,
				fmt.Errorf("url %s: invalid timestamp %q: %w", e.URL, changed, err))
		}
		snap.Put(e)
	}
	if err := rows.Err(); err != nil {
		return nil, errdefs.NewConfigError("snapshot", s.path, err)
	}

	logger.Debug("snapshot loaded", "path", s.path, "entries", snap.Len())
	return snap, nil
}

// Save replaces the stored entries with snap.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	db, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: open %s: %w", s.path, err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_entries`); err != nil {
		return fmt.Errorf("snapshot: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_entries (url, position, fingerprint, last_changed) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, e := range snap.Entries() {
		if _, err := stmt.ExecContext(ctx, e.URL, i, e.Fingerprint, formatTime(e.LastChanged)); err != nil {
			return fmt.Errorf("snapshot: insert %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot: commit: %w", err)
	}

	logger.Debug("snapshot saved", "path", s.path, "entries", snap.Len())
	return nil
}
