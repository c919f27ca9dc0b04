package sqlite

import (
	"context"
	"fmt"

	"github.com/ghmbegerez/converge/internal/types"
)

func upsertFindings(ctx context.Context, q querier, findings []*types.SecurityFinding) error {
	for _, f := range findings {
		_, err := q.ExecContext(ctx, `
			INSERT INTO security_findings (id, scanner, category, severity, file, line, rule,
				evidence, confidence, intent_id, tenant_id, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET severity=excluded.severity, evidence=excluded.evidence,
				confidence=excluded.confidence, timestamp=excluded.timestamp`,
			f.ID, f.Scanner, string(f.Category), string(f.Severity), f.File, f.Line, f.Rule,
			f.Evidence, f.Confidence, f.IntentID, f.TenantID, f.Timestamp)
		if err != nil {
			return fmt.Errorf("sqlite: upsert finding: %w", err)
		}
	}
	return nil
}

func findingsForIntent(ctx context.Context, q querier, intentID string) ([]*types.SecurityFinding, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, scanner, category, severity, file, line, rule, evidence, confidence,
			intent_id, tenant_id, timestamp
		FROM security_findings WHERE intent_id = ?`, intentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query findings: %w", err)
	}
	defer rows.Close()

	var out []*types.SecurityFinding
	for rows.Next() {
		var f types.SecurityFinding
		var category, severity string
		if err := rows.Scan(&f.ID, &f.Scanner, &category, &severity, &f.File, &f.Line, &f.Rule,
			&f.Evidence, &f.Confidence, &f.IntentID, &f.TenantID, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scan finding: %w", err)
		}
		f.Category = types.SecurityCategory(category)
		f.Severity = types.Severity(severity)
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *Store) UpsertFindings(ctx context.Context, findings []*types.SecurityFinding) error { return upsertFindings(ctx, s.q(), findings) }
func (s *Store) FindingsForIntent(ctx context.Context, intentID string) ([]*types.SecurityFinding, error) { return findingsForIntent(ctx, s.q(), intentID) }

func (t *txStore) UpsertFindings(ctx context.Context, findings []*types.SecurityFinding) error { return upsertFindings(ctx, t.q(), findings) }
func (t *txStore) FindingsForIntent(ctx context.Context, intentID string) ([]*types.SecurityFinding, error) { return findingsForIntent(ctx, t.q(), intentID) }
