package dolt

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS events (
    id VARCHAR(64) PRIMARY KEY,
    trace_id VARCHAR(64) NOT NULL,
    seq BIGINT NOT NULL,
    event_type VARCHAR(64) NOT NULL,
    intent_id VARCHAR(64) NOT NULL DEFAULT '',
    agent_id VARCHAR(128) NOT NULL DEFAULT '',
    tenant_id VARCHAR(128) NOT NULL DEFAULT '',
    timestamp DATETIME(6) NOT NULL,
    payload JSON,
    evidence JSON,
    INDEX idx_events_intent (intent_id),
    INDEX idx_events_type (event_type),
    INDEX idx_events_trace (trace_id),
    INDEX idx_events_seq (seq)
);

CREATE TABLE IF NOT EXISTS intents (
    id VARCHAR(64) PRIMARY KEY,
    source VARCHAR(512) NOT NULL,
    target VARCHAR(512) NOT NULL,
    status VARCHAR(32) NOT NULL DEFAULT 'draft',
    risk_level VARCHAR(16) NOT NULL DEFAULT 'medium',
    priority INT NOT NULL DEFAULT 3,
    origin_type VARCHAR(16) NOT NULL DEFAULT 'human',
    created_at DATETIME(6) NOT NULL,
    created_by VARCHAR(128) NOT NULL DEFAULT '',
    updated_at DATETIME(6) NOT NULL,
    semantic JSON,
    technical JSON,
    checks_required JSON,
    retries INT NOT NULL DEFAULT 0,
    tenant_id VARCHAR(128) NOT NULL DEFAULT '',
    plan_id VARCHAR(128) NOT NULL DEFAULT '',
    INDEX idx_intents_status (status),
    INDEX idx_intents_tenant (tenant_id),
    INDEX idx_intents_plan (plan_id)
);

CREATE TABLE IF NOT EXISTS intent_dependencies (
    intent_id VARCHAR(64) NOT NULL,
    depends_on VARCHAR(64) NOT NULL,
    PRIMARY KEY (intent_id, depends_on)
);

CREATE TABLE IF NOT EXISTS reviews (
    id VARCHAR(64) PRIMARY KEY,
    intent_id VARCHAR(64) NOT NULL,
    status VARCHAR(32) NOT NULL DEFAULT 'pending',
    reason VARCHAR(512) NOT NULL DEFAULT '',
    assignee VARCHAR(128) NOT NULL DEFAULT '',
    requested_at DATETIME(6) NOT NULL,
    resolved_at DATETIME(6) NULL,
    INDEX idx_reviews_intent (intent_id)
);

CREATE TABLE IF NOT EXISTS security_findings (
    id VARCHAR(64) PRIMARY KEY,
    scanner VARCHAR(64) NOT NULL,
    category VARCHAR(32) NOT NULL,
    severity VARCHAR(16) NOT NULL,
    file VARCHAR(1024) NOT NULL DEFAULT '',
    line INT NOT NULL DEFAULT 0,
    rule VARCHAR(256) NOT NULL DEFAULT '',
    evidence VARCHAR(1024) NOT NULL DEFAULT '',
    confidence DOUBLE NOT NULL DEFAULT 0,
    intent_id VARCHAR(64) NOT NULL DEFAULT '',
    tenant_id VARCHAR(128) NOT NULL DEFAULT '',
    timestamp DATETIME(6) NOT NULL,
    INDEX idx_findings_intent (intent_id)
);

CREATE TABLE IF NOT EXISTS coherence_baselines (
    question_id VARCHAR(128) PRIMARY KEY,
    value DOUBLE NOT NULL,
    updated_at DATETIME(6) NOT NULL
);

CREATE TABLE IF NOT EXISTS entropy_history (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    score DOUBLE NOT NULL,
    recorded_at DATETIME(6) NOT NULL
);

CREATE TABLE IF NOT EXISTS queue_locks (
    name VARCHAR(128) PRIMARY KEY,
    holder VARCHAR(128) NOT NULL,
    acquired_at DATETIME(6) NOT NULL,
    expires_at DATETIME(6) NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
    delivery_id VARCHAR(128) PRIMARY KEY,
    seen_at DATETIME(6) NOT NULL
);

CREATE TABLE IF NOT EXISTS chain_head (
    id INT PRIMARY KEY,
    hash VARBINARY(64) NOT NULL
);

CREATE TABLE IF NOT EXISTS chain_batches (
    batch_seq BIGINT AUTO_INCREMENT PRIMARY KEY,
    trace_id VARCHAR(64) NOT NULL,
    hash VARBINARY(64) NOT NULL,
    recorded_at DATETIME(6) NOT NULL
);

CREATE TABLE IF NOT EXISTS config (
    ` + "`key`" + ` VARCHAR(256) PRIMARY KEY,
    value TEXT NOT NULL
);
`
