package database

// Alerts are keyed by alert_id and never deleted. alert_history is the
// append-only ledger; one row per alert mutation. The partial unique index
// on ticket_key guarantees the same external ticket is never attached to two
// alerts.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	alert_id TEXT PRIMARY KEY,
	condition_name TEXT NOT NULL,
	target TEXT NOT NULL,
	severity TEXT NOT NULL,
	status TEXT NOT NULL,
	labels TEXT NOT NULL,
	annotations TEXT NOT NULL,
	metadata TEXT,
	starts_at TEXT,
	ends_at TEXT,
	raw_payload TEXT,
	ticket_key TEXT,
	ticket_url TEXT,
	ticket_linked_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	action TEXT NOT NULL,
	snapshot TEXT,
	FOREIGN KEY (alert_id) REFERENCES alerts (alert_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_ticket_key ON alerts (ticket_key) WHERE ticket_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts (created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts (severity);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts (status);
CREATE INDEX IF NOT EXISTS idx_alerts_signature ON alerts (condition_name, target);
CREATE INDEX IF NOT EXISTS idx_history_alert_id ON alert_history (alert_id);
CREATE INDEX IF NOT EXISTS idx_history_timestamp ON alert_history (timestamp);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	alert_id TEXT PRIMARY KEY,
	condition_name TEXT NOT NULL,
	target TEXT NOT NULL,
	severity TEXT NOT NULL,
	status TEXT NOT NULL,
	labels TEXT NOT NULL,
	annotations TEXT NOT NULL,
	metadata TEXT,
	starts_at TEXT,
	ends_at TEXT,
	raw_payload TEXT,
	ticket_key TEXT,
	ticket_url TEXT,
	ticket_linked_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_history (
	id BIGSERIAL PRIMARY KEY,
	alert_id TEXT NOT NULL REFERENCES alerts (alert_id),
	timestamp TIMESTAMPTZ NOT NULL,
	action TEXT NOT NULL,
	snapshot TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_ticket_key ON alerts (ticket_key) WHERE ticket_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts (created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts (severity);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts (status);
CREATE INDEX IF NOT EXISTS idx_alerts_signature ON alerts (condition_name, target);
CREATE INDEX IF NOT EXISTS idx_history_alert_id ON alert_history (alert_id);
CREATE INDEX IF NOT EXISTS idx_history_timestamp ON alert_history (timestamp);
`
