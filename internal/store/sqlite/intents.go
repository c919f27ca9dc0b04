package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ghmbegerez/converge/internal/cerr"
	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/types"
)

func createIntent(ctx context.Context, q querier, intent *types.Intent) error {
	semantic, err := json.Marshal(intent.Semantic)
	if err != nil {
		return fmt.Errorf("sqlite: marshal semantic: %w", err)
	}
	technical, err := json.Marshal(intent.Technical)
	if err != nil {
		return fmt.Errorf("sqlite: marshal technical: %w", err)
	}
	checks, err := json.Marshal(intent.ChecksRequired)
	if err != nil {
		return fmt.Errorf("sqlite: marshal checks_required: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO intents (id, source, target, status, risk_level, priority, origin_type,
			created_at, created_by, updated_at, semantic, technical, checks_required, retries,
			tenant_id, plan_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID, intent.Source, intent.Target, string(intent.Status), string(intent.RiskLevel),
		intent.Priority, string(intent.OriginType), intent.CreatedAt, intent.CreatedBy,
		intent.UpdatedAt, string(semantic), string(technical), string(checks), intent.Retries,
		intent.TenantID, intent.PlanID)
	if err != nil {
		if isUniqueViolation(err) {
			return cerr.New(cerr.KindStore, false, cerr.ErrAlreadyExists)
		}
		return fmt.Errorf("sqlite: insert intent: %w", err)
	}

	for _, dep := range intent.Dependencies {
		if _, err := q.ExecContext(ctx, `INSERT INTO intent_dependencies (intent_id, depends_on) VALUES (?, ?)`,
			intent.ID, dep); err != nil {
			return fmt.Errorf("sqlite: insert dependency: %w", err)
		}
	}
	return nil
}

func getIntent(ctx context.Context, q querier, id string) (*types.Intent, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, source, target, status, risk_level, priority, origin_type, created_at,
			created_by, updated_at, semantic, technical, checks_required, retries, tenant_id, plan_id
		FROM intents WHERE id = ?`, id)
	intent, err := scanIntent(row)
	if err != nil {
		return nil, err
	}
	deps, err := dependenciesOf(ctx, q, id)
	if err != nil {
		return nil, err
	}
	intent.Dependencies = deps
	return intent, nil
}

func scanIntent(row *sql.Row) (*types.Intent, error) {
	var intent types.Intent
	var status, riskLevel, origin, semantic, technical, checks string
	err := row.Scan(&intent.ID, &intent.Source, &intent.Target, &status, &riskLevel,
		&intent.Priority, &origin, &intent.CreatedAt, &intent.CreatedBy, &intent.UpdatedAt,
		&semantic, &technical, &checks, &intent.Retries, &intent.TenantID, &intent.PlanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cerr.New(cerr.KindStore, false, cerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan intent: %w", err)
	}
	intent.Status = types.Status(status)
	intent.RiskLevel = types.RiskLevel(riskLevel)
	intent.OriginType = types.OriginType(origin)
	if err := json.Unmarshal([]byte(semantic), &intent.Semantic); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal semantic: %w", err)
	}
	if err := json.Unmarshal([]byte(technical), &intent.Technical); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal technical: %w", err)
	}
	if err := json.Unmarshal([]byte(checks), &intent.ChecksRequired); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal checks_required: %w", err)
	}
	return &intent, nil
}

func dependenciesOf(ctx context.Context, q querier, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT depends_on FROM intent_dependencies WHERE intent_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query dependencies: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("sqlite: scan dependency: %w", err)
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func updateIntent(ctx context.Context, q querier, id string, mutate func(*types.Intent) error) (*types.Intent, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, source, target, status, risk_level, priority, origin_type, created_at,
			created_by, updated_at, semantic, technical, checks_required, retries, tenant_id, plan_id
		FROM intents WHERE id = ?`, id)
	intent, err := scanIntent(row)
	if err != nil {
		return nil, err
	}
	intent.Dependencies, err = dependenciesOf(ctx, q, id)
	if err != nil {
		return nil, err
	}

	if err := mutate(intent); err != nil {
		return nil, err
	}

	semantic, err := json.Marshal(intent.Semantic)
	if err != nil {
		return nil, fmt.Errorf("sqlite: marshal semantic: %w", err)
	}
	technical, err := json.Marshal(intent.Technical)
	if err != nil {
		return nil, fmt.Errorf("sqlite: marshal technical: %w", err)
	}
	checks, err := json.Marshal(intent.ChecksRequired)
	if err != nil {
		return nil, fmt.Errorf("sqlite: marshal checks_required: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE intents SET source=?, target=?, status=?, risk_level=?, priority=?, origin_type=?,
			updated_at=?, semantic=?, technical=?, checks_required=?, retries=?, tenant_id=?, plan_id=?
		WHERE id=?`,
		intent.Source, intent.Target, string(intent.Status), string(intent.RiskLevel),
		intent.Priority, string(intent.OriginType), intent.UpdatedAt, string(semantic),
		string(technical), string(checks), intent.Retries, intent.TenantID, intent.PlanID, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: update intent: %w", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM intent_dependencies WHERE intent_id = ?`, id); err != nil {
		return nil, fmt.Errorf("sqlite: clear dependencies: %w", err)
	}
	for _, dep := range intent.Dependencies {
		if _, err := q.ExecContext(ctx, `INSERT INTO intent_dependencies (intent_id, depends_on) VALUES (?, ?)`,
			id, dep); err != nil {
			return nil, fmt.Errorf("sqlite: insert dependency: %w", err)
		}
	}
	return intent, nil
}

func listIntents(ctx context.Context, q querier, filter store.IntentFilter) ([]*types.Intent, error) {
	query := `SELECT id, source, target, status, risk_level, priority, origin_type, created_at,
		created_by, updated_at, semantic, technical, checks_required, retries, tenant_id, plan_id
		FROM intents WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, filter.TenantID)
	}
	if filter.PlanID != "" {
		query += " AND plan_id = ?"
		args = append(args, filter.PlanID)
	}
	if filter.OrderBy == store.OrderPriorityCreated {
		query += " ORDER BY priority ASC, created_at ASC"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list intents: %w", err)
	}
	defer rows.Close()

	var out []*types.Intent
	for rows.Next() {
		var intent types.Intent
		var status, riskLevel, origin, semantic, technical, checks string
		if err := rows.Scan(&intent.ID, &intent.Source, &intent.Target, &status, &riskLevel,
			&intent.Priority, &origin, &intent.CreatedAt, &intent.CreatedBy, &intent.UpdatedAt,
			&semantic, &technical, &checks, &intent.Retries, &intent.TenantID, &intent.PlanID); err != nil {
			return nil, fmt.Errorf("sqlite: scan intent: %w", err)
		}
		intent.Status = types.Status(status)
		intent.RiskLevel = types.RiskLevel(riskLevel)
		intent.OriginType = types.OriginType(origin)
		json.Unmarshal([]byte(semantic), &intent.Semantic)
		json.Unmarshal([]byte(technical), &intent.Technical)
		json.Unmarshal([]byte(checks), &intent.ChecksRequired)
		out = append(out, &intent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, intent := range out {
		deps, err := dependenciesOf(ctx, q, intent.ID)
		if err != nil {
			return nil, err
		}
		intent.Dependencies = deps
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

func (s *Store) CreateIntent(ctx context.Context, intent *types.Intent) error { return createIntent(ctx, s.q(), intent) }
func (s *Store) GetIntent(ctx context.Context, id string) (*types.Intent, error) { return getIntent(ctx, s.q(), id) }
func (s *Store) UpdateIntent(ctx context.Context, id string, mutate func(*types.Intent) error) (*types.Intent, error) { return updateIntent(ctx, s.q(), id, mutate) }
func (s *Store) ListIntents(ctx context.Context, filter store.IntentFilter) ([]*types.Intent, error) { return listIntents(ctx, s.q(), filter) }
func (s *Store) DependenciesOf(ctx context.Context, id string) ([]string, error) { return dependenciesOf(ctx, s.q(), id) }

func (t *txStore) CreateIntent(ctx context.Context, intent *types.Intent) error { return createIntent(ctx, t.q(), intent) }
func (t *txStore) GetIntent(ctx context.Context, id string) (*types.Intent, error) { return getIntent(ctx, t.q(), id) }
func (t *txStore) UpdateIntent(ctx context.Context, id string, mutate func(*types.Intent) error) (*types.Intent, error) { return updateIntent(ctx, t.q(), id, mutate) }
func (t *txStore) ListIntents(ctx context.Context, filter store.IntentFilter) ([]*types.Intent, error) { return listIntents(ctx, t.q(), filter) }
func (t *txStore) DependenciesOf(ctx context.Context, id string) ([]string, error) { return dependenciesOf(ctx, t.q(), id) }
