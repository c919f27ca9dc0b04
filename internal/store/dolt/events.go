package dolt

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghmbegerez/converge/internal/idgen"
	"github.com/ghmbegerez/converge/internal/types"
)

func appendEvent(ctx context.Context, q querier, ev *types.Event) (string, error) {
	var seq int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM events`).Scan(&seq); err != nil {
		return "", fmt.Errorf("dolt: next seq: %w", err)
	}
	if ev.ID == "" {
		ev.ID = idgen.EventID(ev.TraceID, seq, 0)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return "", fmt.Errorf("dolt: marshal payload: %w", err)
	}
	evidence, err := json.Marshal(ev.Evidence)
	if err != nil {
		return "", fmt.Errorf("dolt: marshal evidence: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO events (id, trace_id, seq, event_type, intent_id, agent_id, tenant_id, timestamp, payload, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.TraceID, seq, string(ev.EventType), ev.IntentID, ev.AgentID, ev.TenantID,
		ev.Timestamp, string(payload), string(evidence))
	if err != nil {
		return "", fmt.Errorf("dolt: insert event: %w", err)
	}
	return ev.ID, nil
}

func queryEvents(ctx context.Context, q querier, query types.EventQuery) ([]*types.Event, error) {
	sqlQuery := `SELECT id, trace_id, seq, event_type, intent_id, agent_id, tenant_id, timestamp, payload, evidence FROM events WHERE 1=1`
	var args []any
	if query.Type != "" {
		sqlQuery += " AND event_type = ?"
		args = append(args, string(query.Type))
	}
	if query.IntentID != "" {
		sqlQuery += " AND intent_id = ?"
		args = append(args, query.IntentID)
	}
	if query.TenantID != "" {
		sqlQuery += " AND tenant_id = ?"
		args = append(args, query.TenantID)
	}
	if !query.Since.IsZero() {
		sqlQuery += " AND timestamp >= ?"
		args = append(args, query.Since)
	}
	if !query.Until.IsZero() {
		sqlQuery += " AND timestamp <= ?"
		args = append(args, query.Until)
	}
	sqlQuery += " ORDER BY seq ASC"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("dolt: query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func latestEvent(ctx context.Context, q querier, eventType types.EventType, intentID string) (*types.Event, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, trace_id, seq, event_type, intent_id, agent_id, tenant_id, timestamp, payload, evidence
		FROM events WHERE event_type = ? AND intent_id = ? ORDER BY seq DESC LIMIT 1`,
		string(eventType), intentID)
	if err != nil {
		return nil, fmt.Errorf("dolt: latest event: %w", err)
	}
	defer rows.Close()
	evs, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, nil
	}
	return evs[0], nil
}

func scanEvents(rows *sql.Rows) ([]*types.Event, error) {
	var out []*types.Event
	for rows.Next() {
		var ev types.Event
		var seq int64
		var eventType, payload, evidence string
		if err := rows.Scan(&ev.ID, &ev.TraceID, &seq, &eventType, &ev.IntentID, &ev.AgentID,
			&ev.TenantID, &ev.Timestamp, &payload, &evidence); err != nil {
			return nil, fmt.Errorf("dolt: scan event: %w", err)
		}
		ev.EventType = types.EventType(eventType)
		if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("dolt: unmarshal payload: %w", err)
		}
		if err := json.Unmarshal([]byte(evidence), &ev.Evidence); err != nil {
			return nil, fmt.Errorf("dolt: unmarshal evidence: %w", err)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (s *Store) AppendEvent(ctx context.Context, ev *types.Event) (string, error) { return appendEvent(ctx, s.q(), ev) }
func (s *Store) QueryEvents(ctx context.Context, q types.EventQuery) ([]*types.Event, error) { return queryEvents(ctx, s.q(), q) }
func (s *Store) LatestEvent(ctx context.Context, t types.EventType, intentID string) (*types.Event, error) { return latestEvent(ctx, s.q(), t, intentID) }

func (t *txStore) AppendEvent(ctx context.Context, ev *types.Event) (string, error) { return appendEvent(ctx, t.q(), ev) }
func (t *txStore) QueryEvents(ctx context.Context, q types.EventQuery) ([]*types.Event, error) { return queryEvents(ctx, t.q(), q) }
func (t *txStore) LatestEvent(ctx context.Context, et types.EventType, intentID string) (*types.Event, error) { return latestEvent(ctx, t.q(), et, intentID) }
