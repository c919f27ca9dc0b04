// Package factory opens a concrete store.Store backend by name. It lives
// outside package store itself because it imports both store/dolt and
// store/sqlite, which in turn import store for the Store port type — a
// factory inside package store would create an import cycle.
package factory

import (
	"context"
	"fmt"

	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/store/dolt"
	"github.com/ghmbegerez/converge/internal/store/sqlite"
)

// Backend names accepted by New, matching the two concrete adapters (spec
// §1: "persistence backend choice ... hidden behind a store port").
const (
	BackendSQLite = "sqlite"
	BackendDolt   = "dolt"
)

// Options configures which backend New opens and how.
type Options struct {
	Backend string // BackendSQLite (default) or BackendDolt

	// SQLite
	Path string // file path, or ":memory:"

	// Dolt
	DoltConfig dolt.Config
}

// New opens the store backend named by opts.Backend, defaulting to the
// embedded sqlite backend when unset.
func New(ctx context.Context, opts Options) (store.Store, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		return sqlite.Open(ctx, opts.Path)
	case BackendDolt:
		return dolt.Open(ctx, opts.DoltConfig)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
}
