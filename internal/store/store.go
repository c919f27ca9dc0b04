// Package store defines the transactional persistence port (spec §4.1,
// §1): events, intents, the queue lock, webhook-delivery dedup, risk/policy
// configuration, review tasks, security findings, and the audit-chain head.
// Two concrete adapters satisfy this port: internal/store/sqlite (embedded)
// and internal/store/dolt (networked), matching spec §1's "persistence
// backend choice ... hidden behind a store port".
package store

import (
	"context"
	"time"

	"github.com/ghmbegerez/converge/internal/types"
)

// IntentFilter narrows a ListIntents query.
type IntentFilter struct {
	Status    types.Status
	TenantID  string
	PlanID    string
	OrderBy   OrderBy
	Limit     int
}

// OrderBy selects the ordering of a ListIntents query.
type OrderBy int

const (
	OrderNone OrderBy = iota
	// OrderPriorityCreated orders ascending by priority, then created_at —
	// the strict ordering the queue processor requires (spec §4.10).
	OrderPriorityCreated
)

// Store is the full persistence port. Concrete adapters (sqlite, dolt)
// implement this interface; all other core components depend on it rather
// than on a concrete type.
type Store interface {
	// Event log (spec §4.1).
	AppendEvent(ctx context.Context, ev *types.Event) (string, error)
	QueryEvents(ctx context.Context, q types.EventQuery) ([]*types.Event, error)
	LatestEvent(ctx context.Context, eventType types.EventType, intentID string) (*types.Event, error)

	// Intents.
	CreateIntent(ctx context.Context, intent *types.Intent) error
	GetIntent(ctx context.Context, id string) (*types.Intent, error)
	UpdateIntent(ctx context.Context, id string, mutate func(*types.Intent) error) (*types.Intent, error)
	ListIntents(ctx context.Context, filter IntentFilter) ([]*types.Intent, error)
	DependenciesOf(ctx context.Context, id string) ([]string, error)

	// Review tasks.
	CreateReview(ctx context.Context, r *types.ReviewTask) error
	GetReviewsForIntent(ctx context.Context, intentID string) ([]*types.ReviewTask, error)
	UpdateReview(ctx context.Context, id string, mutate func(*types.ReviewTask) error) error

	// Security findings.
	UpsertFindings(ctx context.Context, findings []*types.SecurityFinding) error
	FindingsForIntent(ctx context.Context, intentID string) ([]*types.SecurityFinding, error)

	// Coherence baselines: latest numeric result per question ID.
	GetBaseline(ctx context.Context, questionID string) (float64, bool, error)
	SetBaselines(ctx context.Context, values map[string]float64) error

	// Policy / risk-score history, for percentile calibration.
	RecordEntropyScore(ctx context.Context, score float64, at time.Time) error
	EntropyScoreHistory(ctx context.Context, limit int) ([]float64, error)

	// Queue lock (advisory, TTL-based; spec §4.10).
	AcquireQueueLock(ctx context.Context, name, holder string, ttl time.Duration) (*types.QueueLock, bool, error)
	ReleaseQueueLock(ctx context.Context, name, holder string) error

	// Webhook delivery dedup.
	SeenDelivery(ctx context.Context, deliveryID string) (bool, error)
	RecordDelivery(ctx context.Context, deliveryID string) error

	// Audit chain head and per-batch checkpoint log (spec §4.11). The
	// checkpoint log lets VerifyChain name the first tampered batch instead
	// of only detecting that the final head disagrees.
	GetChainHead(ctx context.Context) ([]byte, error)
	SetChainHead(ctx context.Context, hash []byte) error
	RecordChainBatch(ctx context.Context, traceID string, hash []byte, at time.Time) error
	ChainBatches(ctx context.Context) ([]types.ChainBatchRecord, error)

	// Config key/value (for CLI-set operator config, e.g. intake mode).
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, bool, error)

	// RunInTransaction executes fn atomically; all Store methods called on
	// the passed-in Tx participate in one backend transaction.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	Close() error
}
