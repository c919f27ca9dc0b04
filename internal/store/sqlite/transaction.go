package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ghmbegerez/converge/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx, letting every method in
// this package run identically whether called on the top-level Store or on
// the *txStore handed to a RunInTransaction callback.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q() querier { return s.db }

// txStore wraps an in-flight *sql.Tx and satisfies store.Store so that all
// the same query methods apply inside RunInTransaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) q() querier { return t.tx }

var _ store.Store = (*Store)(nil)
var _ store.Store = (*txStore)(nil)

// RunInTransaction runs fn against a handle backed by a single *sql.Tx.
// Rollback happens on error or panic; panics are re-raised after rollback.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	committed = true
	return nil
}

// RunInTransaction on a *txStore means the caller is already inside a
// transaction; spec components never nest transactions, so this runs fn
// directly against the same tx rather than starting a nested one.
func (t *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (t *txStore) Close() error { return nil }
