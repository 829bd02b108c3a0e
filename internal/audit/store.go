package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/0ld3ull/operator/internal/migration"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const createTable = `
CREATE TABLE IF NOT EXISTS audit_events (
	id        TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	project   TEXT,
	severity  TEXT NOT NULL,
	topic     TEXT NOT NULL,
	message   TEXT NOT NULL,
	details   TEXT,
	success   INTEGER NOT NULL
)`

const createIndices = `
CREATE INDEX IF NOT EXISTS idx_audit_project ON audit_events(project);
CREATE INDEX IF NOT EXISTS idx_audit_severity ON audit_events(severity);
CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_events(timestamp);
`

// Store is the SQLite-backed, append-only audit log, fronted by an
// in-memory ring buffer for fast Recent/Query reads (the teacher's
// memory-cache-in-front-of-SQLite design from internal/controlplane/audit).
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	ring  *ring
	alert AlertFunc
}

// NewStore opens dbPath and ensures its schema is current. memoryLimit
// bounds the in-memory cache (0 = unbounded). alert, if non-nil, is invoked
// synchronously for every severity=critical event recorded.
func NewStore(dbPath string, memoryLimit int, alert AlertFunc) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit_events table: %w", err)
	}
	if _, err := db.Exec(createIndices); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit_events indices: %w", err)
	}
	if err := migration.EnsureVersion(db, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema version: %w", err)
	}

	s := &Store{db: db, ring: newRing(memoryLimit), alert: alert}
	if err := s.loadRecent(memoryLimit); err != nil {
		// Non-fatal: the store still works purely off SQLite.
		_ = err
	}
	return s, nil
}

// DB exposes the underlying handle so sibling singletons (kill switch, token
// budget) that share this file's schema namespace can open their own tables
// against the same connection rather than a second sqlite file.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record persists evt to disk and the in-memory cache. If evt.Severity is
// critical, the registered alert callback is invoked synchronously before
// Record returns — this is invariant 13 ("audit severity → alert").
func (s *Store) Record(ctx context.Context, evt Event) error {
	enrich(&evt)

	s.ring.add(evt)
	if err := s.persist(ctx, evt); err != nil {
		return err
	}

	if evt.Severity == SeverityCritical {
		s.mu.RLock()
		alert := s.alert
		s.mu.RUnlock()
		if alert != nil {
			alert(evt)
		}
	}
	return nil
}

// SetAlertFunc installs or replaces the critical-severity alert callback.
func (s *Store) SetAlertFunc(fn AlertFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = fn
}

// Emit is a convenience wrapper for the common (non-critical, no details)
// case.
func (s *Store) Emit(ctx context.Context, project string, severity Severity, topic, message string, success bool) error {
	return s.Record(ctx, Event{
		Project:  project,
		Severity: severity,
		Topic:    topic,
		Message:  message,
		Success:  success,
	})
}

// Recent returns the N most recent events from the in-memory cache.
func (s *Store) Recent(n int) []Event {
	return s.ring.query(Filter{Limit: n})
}

// Query returns events from the in-memory cache matching f.
func (s *Store) Query(f Filter) []Event {
	return s.ring.query(f)
}

// QueryPersisted searches SQLite directly, including events evicted from the
// in-memory cache.
func (s *Store) QueryPersisted(ctx context.Context, f Filter) ([]Event, error) {
	query := `SELECT id, timestamp, project, severity, topic, message, details, success FROM audit_events WHERE 1=1`
	var args []any
	if f.Project != "" {
		query += " AND project = ?"
		args = append(args, f.Project)
	}
	if f.Topic != "" {
		query += " AND topic = ?"
		args = append(args, f.Topic)
	}
	if f.Severity != "" {
		query += " AND severity = ?"
		args = append(args, string(f.Severity))
	}
	if !f.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query_persisted: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			continue
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// Count returns the total persisted event count.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&n)
	return n, err
}

// Purge deletes persisted events older than olderThan and returns the
// deleted row count. Nothing in the daemon calls it on a schedule.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) persist(ctx context.Context, evt Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO audit_events (id, timestamp, project, severity, topic, message, details, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.Timestamp.UTC().Format(time.RFC3339Nano), evt.Project, string(evt.Severity),
		evt.Topic, evt.Message, string(evt.Details), boolToInt(evt.Success),
	)
	if err != nil {
		return fmt.Errorf("persist audit event: %w", err)
	}
	return nil
}

func (s *Store) loadRecent(limit int) error {
	events, err := s.QueryPersisted(context.Background(), Filter{Limit: limit})
	if err != nil {
		return err
	}
	s.ring = newRing(s.ring.maxLen)
	for i := len(events) - 1; i >= 0; i-- {
		s.ring.add(events[i])
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var evt Event
	var ts, project, details sql.NullString
	var success int
	if err := row.Scan(&evt.ID, &ts, &project, &evt.Severity, &evt.Topic, &evt.Message, &details, &success); err != nil {
		return Event{}, fmt.Errorf("scan audit event: %w", err)
	}
	if ts.Valid {
		evt.Timestamp, _ = time.Parse(time.RFC3339Nano, ts.String)
	}
	evt.Project = project.String
	if details.Valid && details.String != "" {
		evt.Details = json.RawMessage(details.String)
	}
	evt.Success = success != 0
	return evt, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
