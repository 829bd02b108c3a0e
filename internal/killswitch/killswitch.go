// Package killswitch is the global persistent activity gate (spec §3.7):
// every periodic job and pipeline action checks IsActive before any side
// effect. Activate and Deactivate are explicit calls that update the
// persistent row only; they do not write an audit log entry.
package killswitch

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const createTable = `
CREATE TABLE IF NOT EXISTS kill_switch (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	active   INTEGER NOT NULL DEFAULT 0,
	reason   TEXT NOT NULL DEFAULT '',
	since    TEXT
)`

const seedRow = `INSERT OR IGNORE INTO kill_switch (id, active, reason, since) VALUES (1, 0, '', NULL)`

// Switch is the single persistent kill-switch row, backed by an already-open
// database handle (typically audit.Store.DB(), since both are low-volume
// cross-cutting singletons).
type Switch struct {
	db *sql.DB
}

// New ensures the kill_switch table exists (seeded inactive) and returns a
// handle to it.
func New(db *sql.DB) (*Switch, error) {
	if _, err := db.Exec(createTable); err != nil {
		return nil, fmt.Errorf("create kill_switch table: %w", err)
	}
	if _, err := db.Exec(seedRow); err != nil {
		return nil, fmt.Errorf("seed kill_switch row: %w", err)
	}
	return &Switch{db: db}, nil
}

// State is the current kill-switch value.
type State struct {
	Active bool
	Reason string
	Since  *time.Time
}

// IsActive is the hot read every periodic job and action handler must call
// before producing any outbound side effect.
func (s *Switch) IsActive(ctx context.Context) (bool, error) {
	var active int
	err := s.db.QueryRowContext(ctx, `SELECT active FROM kill_switch WHERE id = 1`).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("is_active: %w", err)
	}
	return active != 0, nil
}

// Get returns the full current state.
func (s *Switch) Get(ctx context.Context) (State, error) {
	var active int
	var reason string
	var since sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT active, reason, since FROM kill_switch WHERE id = 1`).
		Scan(&active, &reason, &since)
	if err != nil {
		return State{}, fmt.Errorf("get kill switch state: %w", err)
	}
	st := State{Active: active != 0, Reason: reason}
	if since.Valid {
		t, err := time.Parse(time.RFC3339Nano, since.String)
		if err == nil {
			st.Since = &t
		}
	}
	return st, nil
}

// Activate sets the switch active with reason, recording the activation
// time. Safe to call repeatedly — it always overwrites reason/since with the
// latest activation.
func (s *Switch) Activate(ctx context.Context, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE kill_switch SET active = 1, reason = ?, since = ? WHERE id = 1`, reason, now)
	if err != nil {
		return fmt.Errorf("activate kill switch: %w", err)
	}
	return nil
}

// Deactivate clears the switch. reason is recorded as the deactivation note
// (cleared from the activation reason).
func (s *Switch) Deactivate(ctx context.Context, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE kill_switch SET active = 0, reason = ?, since = ? WHERE id = 1`, reason, now)
	if err != nil {
		return fmt.Errorf("deactivate kill switch: %w", err)
	}
	return nil
}
