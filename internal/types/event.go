package types

import "time"

// Event is an immutable record of a decision or measurement. Events are
// append-only and retrieved in order, never mutated in place (spec §3).
type Event struct {
	ID        string         `json:"id"`
	TraceID   string         `json:"trace_id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	IntentID  string         `json:"intent_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Evidence  map[string]any `json:"evidence,omitempty"`
}

// EventQuery filters an ordered retrieval of events (spec §4.1).
type EventQuery struct {
	Type     EventType
	IntentID string
	TenantID string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Simulation is the result of an SCM merge simulation (spec §4.2).
type Simulation struct {
	Mergeable    bool     `json:"mergeable"`
	Conflicts    []string `json:"conflicts"`
	FilesChanged []string `json:"files_changed"`
	BaseCommit   string   `json:"base_commit"`
	HeadCommit   string   `json:"head_commit"`
}

// Commit is one entry in an SCM log range (spec §4.2).
type Commit struct {
	SHA     string   `json:"sha"`
	Author  string   `json:"author"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// CheckResult is the outcome of running one named check (spec §4.3).
type CheckResult struct {
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	Details    string `json:"details"`
	DurationMS int64  `json:"duration_ms"`
}

// SecurityFinding is a normalized scanner result (spec §4.4).
type SecurityFinding struct {
	ID         string           `json:"id"`
	Scanner    string           `json:"scanner"`
	Category   SecurityCategory `json:"category"`
	Severity   Severity         `json:"severity"`
	File       string           `json:"file"`
	Line       int              `json:"line"`
	Rule       string           `json:"rule"`
	Evidence   string           `json:"evidence"`
	Confidence float64          `json:"confidence"`
	IntentID   string           `json:"intent_id,omitempty"`
	TenantID   string           `json:"tenant_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// ReviewTask tracks a human review requested by the coherence
// cross-validation downgrade or other pipeline steps (spec §4.9, §9).
type ReviewTask struct {
	ID          string       `json:"id"`
	IntentID    string       `json:"intent_id"`
	Status      ReviewStatus `json:"status"`
	Reason      string       `json:"reason"`
	Assignee    string       `json:"assignee,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}

// IsPending reports whether the review task is still outstanding.
func (r *ReviewTask) IsPending() bool {
	return r.Status == ReviewPending || r.Status == ReviewAssigned
}

// QueueLock is the advisory queue lock token (spec §6).
type QueueLock struct {
	Name       string    `json:"name"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DefaultQueueLockTTL is the TTL of the advisory queue lock (spec §3).
const DefaultQueueLockTTL = 300 * time.Second

// ChainBatchRecord is one rolling-hash checkpoint of the audit chain
// (spec §4.11), recorded per trace_id batch so a later verify pass can
// name the first tampered batch rather than only detecting a final
// head mismatch.
type ChainBatchRecord struct {
	Seq        int64     `json:"seq"`
	TraceID    string    `json:"trace_id"`
	Hash       []byte    `json:"hash"`
	RecordedAt time.Time `json:"recorded_at"`
}
