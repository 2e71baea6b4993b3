package postgres

// DDL documents the schema the postgres driver expects. Migrations are
// applied out of band (compose/ops), mirroring how the service treats the
// database as an external collaborator.
const DDL = `
CREATE TABLE IF NOT EXISTS monitors (
    monitor_id      TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    query           TEXT NOT NULL,
    domain          TEXT NOT NULL,
    engines         JSONB NOT NULL DEFAULT '[]',
    change_types    JSONB NOT NULL DEFAULT '[]',
    alert_threshold TEXT NOT NULL DEFAULT 'immediate',
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    last_checked    TIMESTAMPTZ,
    last_snapshots  JSONB NOT NULL DEFAULT '{}',
    creation_time   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_monitors_user_active
    ON monitors (user_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS citation_changes (
    change_id   TEXT PRIMARY KEY,
    monitor_id  TEXT NOT NULL REFERENCES monitors (monitor_id) ON DELETE CASCADE,
    engine      TEXT NOT NULL DEFAULT '',
    change_type TEXT NOT NULL,
    severity    TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    impact      TEXT NOT NULL DEFAULT '',
    detected_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_citation_changes_monitor
    ON citation_changes (monitor_id, detected_at DESC);
`
