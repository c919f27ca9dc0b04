// Package dolt implements the store port (internal/store) against a
// networked, MySQL-wire-compatible Dolt database, for deployments that need
// a shared multi-writer backend instead of the embedded sqlite adapter.
// Grounded on the teacher's internal/storage/dolt package: same driver
// pair (dolthub/driver for embedded access, go-sql-driver/mysql for server
// mode), same exponential-backoff-wrapped connection retry via
// cenkalti/backoff/v4, same *sql.DB-over-database/sql shape.
package dolt

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	embedded "github.com/dolthub/driver"
	_ "github.com/go-sql-driver/mysql"
)

// Config holds the connection parameters for the Dolt backend.
type Config struct {
	// Embedded is the local Dolt data directory used when ServerMode is
	// false; that mode skips the network entirely (single process,
	// versioned storage). It is ignored when ServerMode is true.
	Embedded string

	// Server mode: connect to a running dolt sql-server for multi-writer
	// deployments.
	ServerMode bool
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	TLS        bool
}

const openMaxElapsed = 30 * time.Second

func newOpenBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = openMaxElapsed
	return bo
}

// Store implements store.Store against Dolt.
type Store struct {
	db         *sql.DB
	closed     atomic.Bool
	connector  *embedded.Connector // non-nil only in embedded mode
	serverMode bool
}

// Open connects to Dolt per cfg and ensures the schema exists. Connection
// establishment retries transient failures with exponential backoff, since
// both the embedded engine's cold start and a server-mode dial can fail
// spuriously under load.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var db *sql.DB
	var connector *embedded.Connector

	err := backoff.Retry(func() error {
		var openErr error
		if cfg.ServerMode {
			dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
			if cfg.TLS {
				dsn += "&tls=true"
			}
			db, openErr = sql.Open("mysql", dsn)
		} else {
			var conn *embedded.Connector
			conn, openErr = embedded.NewConnector(&embedded.Options{
				Name:               cfg.Database,
				CommitterName:      "converge",
				CommitterEmail:     "converge@localhost",
				DataDir:            cfg.Embedded,
			})
			if openErr == nil {
				connector = conn
				db = sql.OpenDB(conn)
			}
		}
		if openErr != nil {
			return openErr
		}
		return db.PingContext(ctx)
	}, newOpenBackoff())
	if err != nil {
		return nil, fmt.Errorf("dolt: open: %w", err)
	}

	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		return nil, fmt.Errorf("dolt: apply schema: %w", err)
	}

	return &Store{db: db, connector: connector, serverMode: cfg.ServerMode}, nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	if s.connector != nil {
		return s.connector.Close()
	}
	return nil
}
