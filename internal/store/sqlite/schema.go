package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    trace_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    intent_id TEXT DEFAULT '',
    agent_id TEXT DEFAULT '',
    tenant_id TEXT DEFAULT '',
    timestamp DATETIME NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}',
    evidence TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_intent ON events(intent_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_trace ON events(trace_id);
CREATE INDEX IF NOT EXISTS idx_events_seq ON events(seq);

CREATE TABLE IF NOT EXISTS intents (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    risk_level TEXT NOT NULL DEFAULT 'medium',
    priority INTEGER NOT NULL DEFAULT 3,
    origin_type TEXT NOT NULL DEFAULT 'human',
    created_at DATETIME NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_at DATETIME NOT NULL,
    semantic TEXT NOT NULL DEFAULT '{}',
    technical TEXT NOT NULL DEFAULT '{}',
    checks_required TEXT NOT NULL DEFAULT '[]',
    retries INTEGER NOT NULL DEFAULT 0,
    tenant_id TEXT NOT NULL DEFAULT '',
    plan_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_intents_status ON intents(status);
CREATE INDEX IF NOT EXISTS idx_intents_tenant ON intents(tenant_id);
CREATE INDEX IF NOT EXISTS idx_intents_plan ON intents(plan_id);

CREATE TABLE IF NOT EXISTS intent_dependencies (
    intent_id TEXT NOT NULL,
    depends_on TEXT NOT NULL,
    PRIMARY KEY (intent_id, depends_on)
);
CREATE INDEX IF NOT EXISTS idx_deps_intent ON intent_dependencies(intent_id);

CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    intent_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    reason TEXT NOT NULL DEFAULT '',
    assignee TEXT NOT NULL DEFAULT '',
    requested_at DATETIME NOT NULL,
    resolved_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_reviews_intent ON reviews(intent_id);

CREATE TABLE IF NOT EXISTS security_findings (
    id TEXT PRIMARY KEY,
    scanner TEXT NOT NULL,
    category TEXT NOT NULL,
    severity TEXT NOT NULL,
    file TEXT NOT NULL DEFAULT '',
    line INTEGER NOT NULL DEFAULT 0,
    rule TEXT NOT NULL DEFAULT '',
    evidence TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 0,
    intent_id TEXT NOT NULL DEFAULT '',
    tenant_id TEXT NOT NULL DEFAULT '',
    timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_findings_intent ON security_findings(intent_id);

CREATE TABLE IF NOT EXISTS coherence_baselines (
    question_id TEXT PRIMARY KEY,
    value REAL NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS entropy_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    score REAL NOT NULL,
    recorded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS queue_locks (
    name TEXT PRIMARY KEY,
    holder TEXT NOT NULL,
    acquired_at DATETIME NOT NULL,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
    delivery_id TEXT PRIMARY KEY,
    seen_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS chain_head (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    hash BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS chain_batches (
    batch_seq INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id TEXT NOT NULL,
    hash BLOB NOT NULL,
    recorded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
