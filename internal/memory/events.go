package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const eventsSchemaVersion = 1

var eventsDDL = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		title          TEXT NOT NULL,
		summary        TEXT NOT NULL,
		significance   INTEGER NOT NULL DEFAULT 5,
		recall_strength REAL NOT NULL DEFAULT 1.0,
		category       TEXT NOT NULL DEFAULT 'world',
		source         TEXT NOT NULL DEFAULT '',
		url            TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		last_decayed_at TEXT NOT NULL
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
		title, summary, category, content='events', content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
		INSERT INTO events_fts(rowid, title, summary, category)
		VALUES (new.id, new.title, new.summary, new.category);
	END`,
	`CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
		INSERT INTO events_fts(events_fts, rowid, title, summary, category)
		VALUES('delete', old.id, old.title, old.summary, old.category);
	END`,
	`CREATE TRIGGER IF NOT EXISTS events_au AFTER UPDATE ON events BEGIN
		INSERT INTO events_fts(events_fts, rowid, title, summary, category)
		VALUES('delete', old.id, old.title, old.summary, old.category);
		INSERT INTO events_fts(rowid, title, summary, category)
		VALUES (new.id, new.title, new.summary, new.category);
	END`,
}

// decayFactor is the per-category daily multiplier applied to recall_strength
// by DecayMemories. "tweet"/"david" events (his own output) fade slower than
// generic world news.
var decayFactor = map[string]float64{
	"tweet": 0.97,
	"david": 0.97,
	"world": 0.90,
}

const defaultDecayFactor = 0.90
const decayFloor = 0.05
const significantFloor = 0.5
const significantThreshold = 8
const maxAgeDays = 365

// Event is a world/personal event whose recall fades over time unless it
// was significant enough to stick — the "where were you when" invariant.
type Event struct {
	ID             int64
	Title          string
	Summary        string
	Significance   int
	RecallStrength float64
	Category       string
	Source         string
	URL            string
	CreatedAt      time.Time
}

// EventStore is the Event typed store (spec §3.4) — the only memory store
// with decay.
type EventStore struct {
	db *sql.DB
}

// NewEventStore opens (or creates) the events database at dbPath.
func NewEventStore(dbPath string) (*EventStore, error) {
	db, err := openDB(dbPath, eventsSchemaVersion, eventsDDL)
	if err != nil {
		return nil, err
	}
	return &EventStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *EventStore) Close() error { return s.db.Close() }

// Add inserts a new event and returns its id. recall_strength starts at 1.0.
func (s *EventStore) Add(ctx context.Context, title, summary string, significance int, category, source, url string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (title, summary, significance, recall_strength, category, source, url, created_at, last_decayed_at)
		 VALUES (?, ?, ?, 1.0, ?, ?, ?, ?, ?)`,
		title, summary, significance, category, source, url, now, now)
	if err != nil {
		return 0, fmt.Errorf("add event: %w", err)
	}
	return res.LastInsertId()
}

// DecayMemories multiplies each event's recall_strength by its category's
// daily factor once for every whole day since the event was last decayed
// (events decayed less than a day ago are left alone); it is called once
// per session at boot (spec §4.5). Significant events (significance >= 8)
// are held at significantFloor instead of falling below it.
func (s *EventStore) DecayMemories(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, significance, recall_strength, category, created_at, last_decayed_at FROM events`)
	if err != nil {
		return fmt.Errorf("decay_memories scan: %w", err)
	}
	type pending struct {
		id       int64
		strength float64
	}
	var updates []pending
	now := time.Now().UTC()
	for rows.Next() {
		var id int64
		var significance int
		var strength float64
		var category, createdAtStr, lastDecayedStr string
		if err := rows.Scan(&id, &significance, &strength, &category, &createdAtStr, &lastDecayedStr); err != nil {
			rows.Close()
			return fmt.Errorf("decay_memories row scan: %w", err)
		}
		lastDecayed, _ := time.Parse(time.RFC3339Nano, lastDecayedStr)
		days := now.Sub(lastDecayed).Hours() / 24
		if days < 1 {
			continue
		}
		factor, ok := decayFactor[category]
		if !ok {
			factor = defaultDecayFactor
		}
		for i := 0; i < int(days); i++ {
			strength *= factor
		}
		if significance >= significantThreshold && strength < significantFloor {
			strength = significantFloor
		}
		updates = append(updates, pending{id: id, strength: strength})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	nowStr := now.Format(time.RFC3339Nano)
	for _, u := range updates {
		if _, err := s.db.ExecContext(ctx, `UPDATE events SET recall_strength = ?, last_decayed_at = ? WHERE id = ?`, u.strength, nowStr, u.id); err != nil {
			return fmt.Errorf("decay_memories update: %w", err)
		}
	}
	return nil
}

// PruneForgotten deletes events whose recall_strength has fallen below
// decayFloor, except significant ones (significance >= 8), and every event
// older than maxAgeDays, significant or not.
func (s *EventStore) PruneForgotten(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE (recall_strength < ? AND significance < ?) OR created_at < ?`,
		decayFloor, significantThreshold, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune_forgotten: %w", err)
	}
	return res.RowsAffected()
}

// Recall searches events matching query whose recall_strength is at least
// minStrength, returning (events, state) where state is "clear" if any
// strong match exists, "fuzzy" if weaker matches exist, "blank" if none.
func (s *EventStore) Recall(ctx context.Context, query string, minStrength float64) ([]Event, string, error) {
	events, err := s.search(ctx, query, 5)
	if err != nil {
		return nil, "", err
	}
	var strong []Event
	for _, e := range events {
		if e.RecallStrength >= minStrength {
			strong = append(strong, e)
		}
	}
	if len(strong) > 0 {
		return strong, "clear", nil
	}
	if len(events) > 0 {
		return events, "fuzzy", nil
	}
	return nil, "blank", nil
}

// GetContext returns (context, state) for query — the Memory Stores common
// contract's get_context, specialized with the event memory-state idiom.
func (s *EventStore) GetContext(ctx context.Context, query string) (string, string, error) {
	events, state, err := s.Recall(ctx, query, 0.4)
	if err != nil || len(events) == 0 {
		return "", "blank", err
	}
	var b strings.Builder
	b.WriteString("[Relevant events]")
	for i, e := range events {
		if i >= 2 {
			break
		}
		summary := e.Summary
		if len(summary) > 100 {
			summary = summary[:100]
		}
		fmt.Fprintf(&b, "\n- %s: %s", e.Title, summary)
	}
	return b.String(), state, nil
}

func (s *EventStore) search(ctx context.Context, query string, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.title, e.summary, e.significance, e.recall_strength, e.category, e.source, e.url, e.created_at
		FROM events e
		JOIN events_fts fts ON e.id = fts.rowid
		WHERE events_fts MATCH ?
		LIMIT ?`, ftsQuery(query), limit)
	if err == nil {
		items, scanErr := scanEventRows(rows)
		if scanErr == nil && len(items) > 0 {
			return items, nil
		}
	}
	return s.searchLike(ctx, query, limit)
}

func (s *EventStore) searchLike(ctx context.Context, query string, limit int) ([]Event, error) {
	like := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, summary, significance, recall_strength, category, source, url, created_at
		FROM events
		WHERE LOWER(title) LIKE ? OR LOWER(summary) LIKE ?
		ORDER BY created_at DESC
		LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search events (like): %w", err)
	}
	return scanEventRows(rows)
}

func scanEventRows(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.ID, &e.Title, &e.Summary, &e.Significance, &e.RecallStrength, &e.Category, &e.Source, &e.URL, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetStats returns total_events, historic_events (age > 30 days), and
// avg_recall_strength, matching the Python source's stats dict shape.
func (s *EventStore) GetStats(ctx context.Context) (map[string]float64, error) {
	var total, historic int
	var avg sql.NullFloat64
	cutoff := time.Now().UTC().AddDate(0, 0, -30).Format(time.RFC3339Nano)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, fmt.Errorf("events stats total: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE created_at < ?`, cutoff).Scan(&historic); err != nil {
		return nil, fmt.Errorf("events stats historic: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT AVG(recall_strength) FROM events`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("events stats avg: %w", err)
	}
	return map[string]float64{
		"total_events":        float64(total),
		"historic_events":     float64(historic),
		"avg_recall_strength": avg.Float64,
	}, nil
}
