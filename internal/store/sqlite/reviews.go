package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ghmbegerez/converge/internal/cerr"
	"github.com/ghmbegerez/converge/internal/types"
)

func createReview(ctx context.Context, q querier, r *types.ReviewTask) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO reviews (id, intent_id, status, reason, assignee, requested_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.IntentID, string(r.Status), r.Reason, r.Assignee, r.RequestedAt, r.ResolvedAt)
	if err != nil {
		return fmt.Errorf("sqlite: insert review: %w", err)
	}
	return nil
}

func reviewsForIntent(ctx context.Context, q querier, intentID string) ([]*types.ReviewTask, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, intent_id, status, reason, assignee, requested_at, resolved_at
		FROM reviews WHERE intent_id = ? ORDER BY requested_at ASC`, intentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query reviews: %w", err)
	}
	defer rows.Close()

	var out []*types.ReviewTask
	for rows.Next() {
		var r types.ReviewTask
		var status string
		if err := rows.Scan(&r.ID, &r.IntentID, &status, &r.Reason, &r.Assignee, &r.RequestedAt, &r.ResolvedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan review: %w", err)
		}
		r.Status = types.ReviewStatus(status)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func updateReview(ctx context.Context, q querier, id string, mutate func(*types.ReviewTask) error) error {
	row := q.QueryRowContext(ctx, `
		SELECT id, intent_id, status, reason, assignee, requested_at, resolved_at
		FROM reviews WHERE id = ?`, id)
	var r types.ReviewTask
	var status string
	err := row.Scan(&r.ID, &r.IntentID, &status, &r.Reason, &r.Assignee, &r.RequestedAt, &r.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cerr.New(cerr.KindStore, false, cerr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlite: scan review: %w", err)
	}
	r.Status = types.ReviewStatus(status)

	if err := mutate(&r); err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		UPDATE reviews SET status=?, reason=?, assignee=?, resolved_at=? WHERE id=?`,
		string(r.Status), r.Reason, r.Assignee, r.ResolvedAt, id)
	if err != nil {
		return fmt.Errorf("sqlite: update review: %w", err)
	}
	return nil
}

func (s *Store) CreateReview(ctx context.Context, r *types.ReviewTask) error { return createReview(ctx, s.q(), r) }
func (s *Store) GetReviewsForIntent(ctx context.Context, intentID string) ([]*types.ReviewTask, error) { return reviewsForIntent(ctx, s.q(), intentID) }
func (s *Store) UpdateReview(ctx context.Context, id string, mutate func(*types.ReviewTask) error) error { return updateReview(ctx, s.q(), id, mutate) }

func (t *txStore) CreateReview(ctx context.Context, r *types.ReviewTask) error { return createReview(ctx, t.q(), r) }
func (t *txStore) GetReviewsForIntent(ctx context.Context, intentID string) ([]*types.ReviewTask, error) { return reviewsForIntent(ctx, t.q(), intentID) }
func (t *txStore) UpdateReview(ctx context.Context, id string, mutate func(*types.ReviewTask) error) error { return updateReview(ctx, t.q(), id, mutate) }
