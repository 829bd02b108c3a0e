// Package checkin is the notification dedup layer (spec §3.3/§4.4): every
// operator notification passes through ShouldSend, which hashes the message,
// checks the dedup window, classifies urgency, and records a sent entry.
package checkin

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/0ld3ull/operator/internal/migration"
	_ "modernc.org/sqlite"
)

// Urgency classifies a notification's visibility to the operator.
type Urgency string

const (
	UrgencySkip   Urgency = "skip"
	UrgencyNotify Urgency = "notify"
	UrgencyUrgent Urgency = "urgent"
)

// urgentKeywords triggers Urgency=urgent regardless of action_type, matching
// spec §4.4's literal keyword list.
var urgentKeywords = []string{
	"security", "api down", "kill switch", "breach", "credentials",
	"token expired", "rate limit", "banned", "critical", "emergency",
}

// progressActionTypes are pre-execution / in-flight updates that should
// never reach the operator — "skip" urgency.
var progressActionTypes = map[string]bool{
	"rendering": true,
	"progress":  true,
}

const schemaVersion = 1

const createTable = `
CREATE TABLE IF NOT EXISTS checkin_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	topic        TEXT NOT NULL,
	message_hash TEXT NOT NULL,
	preview      TEXT NOT NULL DEFAULT '',
	action_type  TEXT NOT NULL DEFAULT '',
	sent_at      TEXT NOT NULL
)`

const createIndex = `CREATE INDEX IF NOT EXISTS idx_checkin_hash ON checkin_log(message_hash)`

// Store is the SQLite-backed checkin log.
type Store struct {
	db          *sql.DB
	dedupWindow time.Duration
}

// NewStore opens dbPath and ensures its schema is current. dedupWindow
// defaults to 4 hours if zero.
func NewStore(dbPath string, dedupWindow time.Duration) (*Store, error) {
	if dedupWindow <= 0 {
		dedupWindow = 4 * time.Hour
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open checkin store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkin_log table: %w", err)
	}
	if _, err := db.Exec(createIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkin_log index: %w", err)
	}
	if err := migration.EnsureVersion(db, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema version: %w", err)
	}

	return &Store{db: db, dedupWindow: dedupWindow}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// ClassifyUrgency derives an Urgency from the action type and result text,
// per spec §4.4 step 2.
func ClassifyUrgency(actionType, resultText string) Urgency {
	if progressActionTypes[actionType] {
		return UrgencySkip
	}
	lower := strings.ToLower(resultText)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return UrgencyUrgent
		}
	}
	return UrgencyNotify
}

// ShouldSend implements the three-step protocol from spec §4.4:
//  1. look up SHA-256(message) within the dedup window; duplicate → drop silently
//  2. classify urgency from (actionType, message)
//  3. on non-skip, non-duplicate, caller must call RecordSent after a
//     successful transport send
//
// It returns whether the caller should send, the computed urgency, and the
// message hash to pass to RecordSent.
func (s *Store) ShouldSend(ctx context.Context, topic, message, actionType string) (send bool, urgency Urgency, hash string, err error) {
	hash = hashMessage(message)

	cutoff := time.Now().UTC().Add(-s.dedupWindow).Format(time.RFC3339Nano)
	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkin_log WHERE message_hash = ? AND sent_at >= ?`, hash, cutoff).Scan(&count)
	if err != nil {
		return false, "", "", fmt.Errorf("should_send dedup lookup: %w", err)
	}
	if count > 0 {
		return false, "", hash, nil
	}

	urgency = ClassifyUrgency(actionType, message)
	if urgency == UrgencySkip {
		return false, urgency, hash, nil
	}
	return true, urgency, hash, nil
}

// RecordSent inserts a checkin_log row after a successful transport send.
func (s *Store) RecordSent(ctx context.Context, topic, hash, preview, actionType string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	preview = truncate(preview, 200)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkin_log (topic, message_hash, preview, action_type, sent_at) VALUES (?, ?, ?, ?, ?)`,
		topic, hash, preview, actionType, now)
	if err != nil {
		return fmt.Errorf("record_sent: %w", err)
	}
	return nil
}

// HasRecentlyNotified reports whether any notification for topic was sent
// within the last `window`.
func (s *Store) HasRecentlyNotified(ctx context.Context, topic string, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339Nano)
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM checkin_log WHERE topic = ? AND sent_at > ? LIMIT 1`, topic, cutoff).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has_recently_notified: %w", err)
	}
	return true, nil
}

// Entry is a recorded notification, returned by GetRecent for operator
// review.
type Entry struct {
	Topic      string
	Preview    string
	ActionType string
	SentAt     time.Time
}

// GetRecent returns the most recent notifications within `window`, newest
// first, capped at limit.
func (s *Store) GetRecent(ctx context.Context, window time.Duration, limit int) ([]Entry, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, preview, action_type, sent_at FROM checkin_log WHERE sent_at > ? ORDER BY sent_at DESC LIMIT ?`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("get_recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var sentAt string
		if err := rows.Scan(&e.Topic, &e.Preview, &e.ActionType, &sentAt); err != nil {
			return nil, fmt.Errorf("get_recent scan: %w", err)
		}
		e.SentAt, _ = time.Parse(time.RFC3339Nano, sentAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CleanOld prunes entries older than 30 days and returns the deleted count.
func (s *Store) CleanOld(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkin_log WHERE sent_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean_old: %w", err)
	}
	return res.RowsAffected()
}

func hashMessage(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
