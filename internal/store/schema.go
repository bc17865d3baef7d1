package store

// Schema definitions for the Shrike alert store.
// Compatible with both SQLite and PostgreSQL.

const schemaRuns = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    generated_at TIMESTAMP NOT NULL,
    processed INTEGER NOT NULL,
    alerts INTEGER NOT NULL,
    fraud_rate_pct REAL NOT NULL,
    average_score REAL NOT NULL,
    high_count INTEGER NOT NULL,
    critical_count INTEGER NOT NULL,
    rule_fires TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_generated ON runs(generated_at);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    run_id TEXT NOT NULL,
    tx_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    amount REAL NOT NULL,
    location TEXT,
    device_id TEXT,
    is_foreign INTEGER NOT NULL DEFAULT 0,
    risk_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,
    triggered_rules TEXT,
    PRIMARY KEY (run_id, tx_id)
);

CREATE INDEX IF NOT EXISTS idx_alerts_run ON alerts(run_id);
CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(run_id, user_id);
CREATE INDEX IF NOT EXISTS idx_alerts_score ON alerts(run_id, risk_score);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRuns,
		schemaAlerts,
	}
}
