// Webhook delivery dedup, the audit-chain head, and free-form operator
// config, grouped together because each is a single small key/value table
// (spec §4.2's "at-least-once delivery, dedup by delivery id", spec §5's
// chain head, and the teacher's config.go key/value convention).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ghmbegerez/converge/internal/types"
)

func seenDelivery(ctx context.Context, q querier, deliveryID string) (bool, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT delivery_id FROM webhook_deliveries WHERE delivery_id = ?`, deliveryID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: seen delivery: %w", err)
	}
	return true, nil
}

func recordDelivery(ctx context.Context, q querier, deliveryID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (delivery_id, seen_at) VALUES (?, ?)
		ON CONFLICT(delivery_id) DO NOTHING`, deliveryID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: record delivery: %w", err)
	}
	return nil
}

func getChainHead(ctx context.Context, q querier) ([]byte, error) {
	var hash []byte
	err := q.QueryRowContext(ctx, `SELECT hash FROM chain_head WHERE id = 1`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get chain head: %w", err)
	}
	return hash, nil
}

func setChainHead(ctx context.Context, q querier, hash []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO chain_head (id, hash) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET hash=excluded.hash`, hash)
	if err != nil {
		return fmt.Errorf("sqlite: set chain head: %w", err)
	}
	return nil
}

func recordChainBatch(ctx context.Context, q querier, traceID string, hash []byte, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO chain_batches (trace_id, hash, recorded_at) VALUES (?, ?, ?)`, traceID, hash, at)
	if err != nil {
		return fmt.Errorf("sqlite: record chain batch: %w", err)
	}
	return nil
}

func chainBatches(ctx context.Context, q querier) ([]types.ChainBatchRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT batch_seq, trace_id, hash, recorded_at FROM chain_batches ORDER BY batch_seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query chain batches: %w", err)
	}
	defer rows.Close()
	var out []types.ChainBatchRecord
	for rows.Next() {
		var r types.ChainBatchRecord
		if err := rows.Scan(&r.Seq, &r.TraceID, &r.Hash, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan chain batch: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func setConfig(ctx context.Context, q querier, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: set config: %w", err)
	}
	return nil
}

func getConfig(ctx context.Context, q querier, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: get config: %w", err)
	}
	return v, true, nil
}

func (s *Store) SeenDelivery(ctx context.Context, deliveryID string) (bool, error) { return seenDelivery(ctx, s.q(), deliveryID) }
func (s *Store) RecordDelivery(ctx context.Context, deliveryID string) error { return recordDelivery(ctx, s.q(), deliveryID) }
func (s *Store) GetChainHead(ctx context.Context) ([]byte, error) { return getChainHead(ctx, s.q()) }
func (s *Store) SetChainHead(ctx context.Context, hash []byte) error { return setChainHead(ctx, s.q(), hash) }
func (s *Store) RecordChainBatch(ctx context.Context, traceID string, hash []byte, at time.Time) error { return recordChainBatch(ctx, s.q(), traceID, hash, at) }
func (s *Store) ChainBatches(ctx context.Context) ([]types.ChainBatchRecord, error) { return chainBatches(ctx, s.q()) }
func (s *Store) SetConfig(ctx context.Context, key, value string) error { return setConfig(ctx, s.q(), key, value) }
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) { return getConfig(ctx, s.q(), key) }

func (t *txStore) SeenDelivery(ctx context.Context, deliveryID string) (bool, error) { return seenDelivery(ctx, t.q(), deliveryID) }
func (t *txStore) RecordDelivery(ctx context.Context, deliveryID string) error { return recordDelivery(ctx, t.q(), deliveryID) }
func (t *txStore) GetChainHead(ctx context.Context) ([]byte, error) { return getChainHead(ctx, t.q()) }
func (t *txStore) SetChainHead(ctx context.Context, hash []byte) error { return setChainHead(ctx, t.q(), hash) }
func (t *txStore) RecordChainBatch(ctx context.Context, traceID string, hash []byte, at time.Time) error { return recordChainBatch(ctx, t.q(), traceID, hash, at) }
func (t *txStore) ChainBatches(ctx context.Context) ([]types.ChainBatchRecord, error) { return chainBatches(ctx, t.q()) }
func (t *txStore) SetConfig(ctx context.Context, key, value string) error { return setConfig(ctx, t.q(), key, value) }
func (t *txStore) GetConfig(ctx context.Context, key string) (string, bool, error) { return getConfig(ctx, t.q(), key) }
