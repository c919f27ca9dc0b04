package dolt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ghmbegerez/converge/internal/types"
)

func acquireQueueLock(ctx context.Context, q querier, name, holder string, ttl time.Duration) (*types.QueueLock, bool, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	var existingHolder string
	var existingExpires time.Time
	err := q.QueryRowContext(ctx, `SELECT holder, expires_at FROM queue_locks WHERE name = ?`, name).
		Scan(&existingHolder, &existingExpires)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := q.ExecContext(ctx, `
			INSERT INTO queue_locks (name, holder, acquired_at, expires_at) VALUES (?, ?, ?, ?)`,
			name, holder, now, expires); err != nil {
			return nil, false, fmt.Errorf("dolt: insert queue lock: %w", err)
		}
		return &types.QueueLock{Name: name, Holder: holder, AcquiredAt: now, ExpiresAt: expires}, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("dolt: read queue lock: %w", err)
	}

	if existingHolder == holder || now.After(existingExpires) {
		if _, err := q.ExecContext(ctx, `
			UPDATE queue_locks SET holder=?, acquired_at=?, expires_at=? WHERE name=?`,
			holder, now, expires, name); err != nil {
			return nil, false, fmt.Errorf("dolt: update queue lock: %w", err)
		}
		return &types.QueueLock{Name: name, Holder: holder, AcquiredAt: now, ExpiresAt: expires}, true, nil
	}
	return nil, false, nil
}

func releaseQueueLock(ctx context.Context, q querier, name, holder string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM queue_locks WHERE name=? AND holder=?`, name, holder)
	if err != nil {
		return fmt.Errorf("dolt: release queue lock: %w", err)
	}
	return nil
}

func (s *Store) AcquireQueueLock(ctx context.Context, name, holder string, ttl time.Duration) (*types.QueueLock, bool, error) {
	return acquireQueueLock(ctx, s.q(), name, holder, ttl)
}
func (s *Store) ReleaseQueueLock(ctx context.Context, name, holder string) error { return releaseQueueLock(ctx, s.q(), name, holder) }

func (t *txStore) AcquireQueueLock(ctx context.Context, name, holder string, ttl time.Duration) (*types.QueueLock, bool, error) {
	return acquireQueueLock(ctx, t.q(), name, holder, ttl)
}
func (t *txStore) ReleaseQueueLock(ctx context.Context, name, holder string) error { return releaseQueueLock(ctx, t.q(), name, holder) }
