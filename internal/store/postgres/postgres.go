// Package postgres implements store.Store on PostgreSQL via the pgx stdlib
// driver and database/sql.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Monitors() store.Monitors { return &monitors{db: s.db} }
func (s *pgStore) Changes() store.Changes   { return &changes{db: s.db} }

// HealthPing reports database reachability for readiness checks.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Monitors ---

type monitors struct{ db *sql.DB }

func (m *monitors) Create(ctx context.Context, in *model.Monitor) (*model.Monitor, error) {
	out := *in
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	engines, err := json.Marshal(out.Engines)
	if err != nil {
		return nil, err
	}
	types, err := json.Marshal(out.ChangeTypes)
	if err != nil {
		return nil, err
	}
	snapsIn := out.LastSnapshots
	if snapsIn == nil {
		snapsIn = map[string]*model.Snapshot{}
	}
	snaps, err := json.Marshal(snapsIn)
	if err != nil {
		return nil, err
	}

	var created time.Time
	row := m.db.QueryRowContext(ctx, `
        INSERT INTO monitors (monitor_id, user_id, query, domain, engines, change_types, alert_threshold, is_active, last_checked, last_snapshots)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING creation_time
    `, out.ID, out.UserID, out.Query, out.Domain, engines, types, out.AlertThreshold, out.IsActive, out.LastChecked, snaps)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreationTime = created
	return &out, nil
}

func (m *monitors) Get(ctx context.Context, userID, monitorID string) (*model.Monitor, error) {
	row := m.db.QueryRowContext(ctx, `
        SELECT monitor_id, user_id, query, domain, engines, change_types, alert_threshold, is_active, last_checked, last_snapshots, creation_time
        FROM monitors WHERE monitor_id=$1 AND user_id=$2
    `, monitorID, userID)
	mon, err := scanMonitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return mon, err
}

func (m *monitors) ListActiveByUser(ctx context.Context, userID string) ([]*model.Monitor, error) {
	rows, err := m.db.QueryContext(ctx, `
        SELECT monitor_id, user_id, query, domain, engines, change_types, alert_threshold, is_active, last_checked, last_snapshots, creation_time
        FROM monitors WHERE user_id=$1 AND is_active ORDER BY creation_time ASC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Monitor
	for rows.Next() {
		mon, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mon)
	}
	return out, rows.Err()
}

func (m *monitors) ListAllActive(ctx context.Context) ([]*model.Monitor, error) {
	rows, err := m.db.QueryContext(ctx, `
        SELECT monitor_id, user_id, query, domain, engines, change_types, alert_threshold, is_active, last_checked, last_snapshots, creation_time
        FROM monitors WHERE is_active ORDER BY creation_time ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Monitor
	for rows.Next() {
		mon, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, mon)
	}
	return out, rows.Err()
}

func (m *monitors) Update(ctx context.Context, in *model.Monitor) error {
	types, err := json.Marshal(in.ChangeTypes)
	if err != nil {
		return err
	}
	res, err := m.db.ExecContext(ctx, `
        UPDATE monitors SET is_active=$1, alert_threshold=$2, change_types=$3
        WHERE monitor_id=$4 AND user_id=$5
    `, in.IsActive, in.AlertThreshold, types, in.ID, in.UserID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (m *monitors) UpdateCheckState(ctx context.Context, userID, monitorID string, snap *model.Snapshot, checkedAt time.Time) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	// jsonb_set touches only the checked engine's entry so engines keep
	// independent baselines.
	res, err := m.db.ExecContext(ctx, `
        UPDATE monitors
        SET last_snapshots = jsonb_set(COALESCE(last_snapshots, '{}'::jsonb), ARRAY[$1], $2::jsonb),
            last_checked = $3
        WHERE monitor_id=$4 AND user_id=$5
    `, snap.Engine, string(b), checkedAt, monitorID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (m *monitors) Delete(ctx context.Context, userID, monitorID string) error {
	res, err := m.db.ExecContext(ctx, `
        DELETE FROM monitors WHERE monitor_id=$1 AND user_id=$2
    `, monitorID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanMonitor(r rowScanner) (*model.Monitor, error) {
	var out model.Monitor
	var engines, types []byte
	var snaps []byte
	var last *time.Time
	if err := r.Scan(&out.ID, &out.UserID, &out.Query, &out.Domain, &engines, &types,
		&out.AlertThreshold, &out.IsActive, &last, &snaps, &out.CreationTime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(engines, &out.Engines); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(types, &out.ChangeTypes); err != nil {
		return nil, err
	}
	if len(snaps) > 0 {
		var m map[string]*model.Snapshot
		if err := json.Unmarshal(snaps, &m); err != nil {
			return nil, err
		}
		if len(m) > 0 {
			out.LastSnapshots = m
		}
	}
	out.LastChecked = last
	return &out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Changes ---

type changes struct{ db *sql.DB }

func (c *changes) Append(ctx context.Context, in *model.Change) error {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	detected := in.DetectedAt
	if detected.IsZero() {
		detected = time.Now()
	}
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO citation_changes (change_id, monitor_id, engine, change_type, severity, old_value, new_value, description, impact, detected_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, id, in.MonitorID, in.Engine, in.Type, in.Severity, in.OldValue, in.NewValue, in.Description, in.Impact, detected)
	return err
}

func (c *changes) ListByMonitor(ctx context.Context, monitorID string, limit int) ([]*model.Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx, `
        SELECT change_id, monitor_id, engine, change_type, severity, old_value, new_value, description, impact, detected_at
        FROM citation_changes WHERE monitor_id=$1 ORDER BY detected_at DESC LIMIT $2
    `, monitorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChanges(rows)
}

func (c *changes) ListRecentByUser(ctx context.Context, userID string, since time.Time) ([]*model.Change, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT ch.change_id, ch.monitor_id, ch.engine, ch.change_type, ch.severity, ch.old_value, ch.new_value, ch.description, ch.impact, ch.detected_at
        FROM citation_changes ch
        JOIN monitors mo ON mo.monitor_id = ch.monitor_id
        WHERE mo.user_id=$1 AND ch.detected_at >= $2
        ORDER BY ch.detected_at DESC
    `, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChanges(rows)
}

func collectChanges(rows *sql.Rows) ([]*model.Change, error) {
	var out []*model.Change
	for rows.Next() {
		var ch model.Change
		if err := rows.Scan(&ch.ID, &ch.MonitorID, &ch.Engine, &ch.Type, &ch.Severity,
			&ch.OldValue, &ch.NewValue, &ch.Description, &ch.Impact, &ch.DetectedAt); err != nil {
			return nil, err
		}
		out = append(out, &ch)
	}
	return out, rows.Err()
}
