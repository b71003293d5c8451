package violation

const schema = `
-- Violations table, keyed by the stable identity hash
CREATE TABLE IF NOT EXISTS violations (
    id TEXT PRIMARY KEY,
    contract_id TEXT NOT NULL,
    check_id TEXT NOT NULL,
    file TEXT NOT NULL,
    line INTEGER NOT NULL DEFAULT 0,
    rule_id TEXT NOT NULL DEFAULT '',
    severity TEXT NOT NULL CHECK(severity IN ('error', 'warning', 'info')),
    message TEXT NOT NULL DEFAULT '',
    fix_hint TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open'
        CHECK(status IN ('open', 'resolved', 'stale', 'exemption_expired')),
    exempted INTEGER NOT NULL DEFAULT 0,
    exemption_id TEXT,
    resolved_reason TEXT,
    first_detected DATETIME NOT NULL,
    last_seen DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_violations_status ON violations(status);
CREATE INDEX IF NOT EXISTS idx_violations_severity ON violations(severity);
CREATE INDEX IF NOT EXISTS idx_violations_contract ON violations(contract_id);
CREATE INDEX IF NOT EXISTS idx_violations_last_seen ON violations(last_seen);
`
