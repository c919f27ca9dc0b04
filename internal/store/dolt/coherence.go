package dolt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func getBaseline(ctx context.Context, q querier, questionID string) (float64, bool, error) {
	var v float64
	err := q.QueryRowContext(ctx, `SELECT value FROM coherence_baselines WHERE question_id = ?`, questionID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("dolt: get baseline: %w", err)
	}
	return v, true, nil
}

func setBaselines(ctx context.Context, q querier, values map[string]float64) error {
	now := time.Now().UTC()
	for id, v := range values {
		_, err := q.ExecContext(ctx, `
			INSERT INTO coherence_baselines (question_id, value, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE value=VALUES(value), updated_at=VALUES(updated_at)`,
			id, v, now)
		if err != nil {
			return fmt.Errorf("dolt: set baseline %q: %w", id, err)
		}
	}
	return nil
}

func recordEntropyScore(ctx context.Context, q querier, score float64, at time.Time) error {
	_, err := q.ExecContext(ctx, `INSERT INTO entropy_history (score, recorded_at) VALUES (?, ?)`, score, at)
	if err != nil {
		return fmt.Errorf("dolt: record entropy score: %w", err)
	}
	return nil
}

func entropyScoreHistory(ctx context.Context, q querier, limit int) ([]float64, error) {
	query := `SELECT score FROM entropy_history ORDER BY recorded_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dolt: entropy history: %w", err)
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("dolt: scan entropy score: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) GetBaseline(ctx context.Context, questionID string) (float64, bool, error) { return getBaseline(ctx, s.q(), questionID) }
func (s *Store) SetBaselines(ctx context.Context, values map[string]float64) error { return setBaselines(ctx, s.q(), values) }
func (s *Store) RecordEntropyScore(ctx context.Context, score float64, at time.Time) error { return recordEntropyScore(ctx, s.q(), score, at) }
func (s *Store) EntropyScoreHistory(ctx context.Context, limit int) ([]float64, error) { return entropyScoreHistory(ctx, s.q(), limit) }

func (t *txStore) GetBaseline(ctx context.Context, questionID string) (float64, bool, error) { return getBaseline(ctx, t.q(), questionID) }
func (t *txStore) SetBaselines(ctx context.Context, values map[string]float64) error { return setBaselines(ctx, t.q(), values) }
func (t *txStore) RecordEntropyScore(ctx context.Context, score float64, at time.Time) error { return recordEntropyScore(ctx, t.q(), score, at) }
func (t *txStore) EntropyScoreHistory(ctx context.Context, limit int) ([]float64, error) { return entropyScoreHistory(ctx, t.q(), limit) }
