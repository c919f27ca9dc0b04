package dolt

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ghmbegerez/converge/internal/store"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q() querier { return s.db }

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) q() querier { return t.tx }

var _ store.Store = (*Store)(nil)
var _ store.Store = (*txStore)(nil)

func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dolt: begin transaction: %w", err)
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
		return fmt.Errorf("dolt: commit: %w", err)
	}
	committed = true
	return nil
}

func (t *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (t *txStore) Close() error { return nil }
