// Package sqlite implements the store port (internal/store) on top of an
// embedded, pure-Go SQLite engine. Grounded on the teacher's
// internal/storage/sqlite package (open/connection-pool/pragma idiom),
// retargeted from ncruces/go-sqlite3+wazero to modernc.org/sqlite, which
// needs no cgo or WASM runtime and is the pack's only embedded-SQL driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// Store implements store.Store against an embedded SQLite database.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open creates or attaches to a SQLite database at path (":memory:" for an
// in-process ephemeral store) and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	connStr := path
	if path != ":memory:" && !filepathIsMemory(path) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("sqlite: pragma foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 30000"); err != nil {
		return nil, fmt.Errorf("sqlite: pragma busy_timeout: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			return nil, fmt.Errorf("sqlite: pragma journal_mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func filepathIsMemory(path string) bool {
	return len(path) >= 5 && path[:5] == "file:" && contains(path, "mode=memory")
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// Close closes the underlying connection pool. Safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
