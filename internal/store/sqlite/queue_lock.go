// The queue lock is a row-based advisory lock (spec §4.10): the processor
// acquires it before pulling from the queue, and an expired lock is force-
// released by whichever caller notices expires_at has passed, rather than
// relying on a filesystem flock (the teacher's dolt access lock protects a
// single embedded process; the queue lock here must work across the
// networked dolt backend too).
package sqlite

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
			if isUniqueViolation(err) {
				// Another acquirer inserted the row after our read.
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("sqlite: insert queue lock: %w", err)
		}
		return &types.QueueLock{Name: name, Holder: holder, AcquiredAt: now, ExpiresAt: expires}, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("sqlite: read queue lock: %w", err)
	}

	if existingHolder == holder || now.After(existingExpires) {
		// Matching on the holder just read makes the takeover a
		// compare-and-swap: of two callers that saw the same expired lock,
		// only the first UPDATE still finds the row.
		res, err := q.ExecContext(ctx, `
			UPDATE queue_locks SET holder=?, acquired_at=?, expires_at=? WHERE name=? AND holder=?`,
			holder, now, expires, name, existingHolder)
		if err != nil {
			return nil, false, fmt.Errorf("sqlite: update queue lock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, false, nil
		}
		return &types.QueueLock{Name: name, Holder: holder, AcquiredAt: now, ExpiresAt: expires}, true, nil
	}
	return nil, false, nil
}

func releaseQueueLock(ctx context.Context, q querier, name, holder string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM queue_locks WHERE name=? AND holder=?`, name, holder)
	if err != nil {
		return fmt.Errorf("sqlite: release queue lock: %w", err)
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
