package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const peopleSchemaVersion = 1

var peopleDDL = []string{
	`CREATE TABLE IF NOT EXISTS people (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		handle      TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL DEFAULT 'unknown',
		description TEXT NOT NULL DEFAULT '',
		notes       TEXT NOT NULL DEFAULT '',
		interactions INTEGER NOT NULL DEFAULT 0,
		last_channel TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS people_fts USING fts5(
		name, handle, description, notes, content='people', content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS people_ai AFTER INSERT ON people BEGIN
		INSERT INTO people_fts(rowid, name, handle, description, notes)
		VALUES (new.id, new.name, new.handle, new.description, new.notes);
	END`,
	`CREATE TRIGGER IF NOT EXISTS people_ad AFTER DELETE ON people BEGIN
		INSERT INTO people_fts(people_fts, rowid, name, handle, description, notes)
		VALUES('delete', old.id, old.name, old.handle, old.description, old.notes);
	END`,
	`CREATE TRIGGER IF NOT EXISTS people_au AFTER UPDATE ON people BEGIN
		INSERT INTO people_fts(people_fts, rowid, name, handle, description, notes)
		VALUES('delete', old.id, old.name, old.handle, old.description, old.notes);
		INSERT INTO people_fts(rowid, name, handle, description, notes)
		VALUES (new.id, new.name, new.handle, new.description, new.notes);
	END`,
}

// Person is a remembered relationship. Relationships never fade — there is
// no decay path for this store.
type Person struct {
	ID           int64
	Name         string
	Handle       string
	Role         string
	Description  string
	Notes        string
	Interactions int
	LastChannel  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PeopleStore is the Person typed store (spec §3.4).
type PeopleStore struct {
	db *sql.DB
}

// NewPeopleStore opens (or creates) the people database at dbPath.
func NewPeopleStore(dbPath string) (*PeopleStore, error) {
	db, err := openDB(dbPath, peopleSchemaVersion, peopleDDL)
	if err != nil {
		return nil, err
	}
	return &PeopleStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *PeopleStore) Close() error { return s.db.Close() }

// Add inserts a new person and returns its id.
func (s *PeopleStore) Add(ctx context.Context, name, handle, role, description, notes string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO people (name, handle, role, description, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, handle, role, description, notes, now, now)
	if err != nil {
		return 0, fmt.Errorf("add person: %w", err)
	}
	return res.LastInsertId()
}

// Update patches description/notes on an existing person. Empty strings
// leave the corresponding field unchanged.
func (s *PeopleStore) Update(ctx context.Context, id int64, description, notes string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if description != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE people SET description = ?, updated_at = ? WHERE id = ?`, description, now, id); err != nil {
			return fmt.Errorf("update person description: %w", err)
		}
	}
	if notes != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE people SET notes = notes || CASE WHEN notes = '' THEN '' ELSE char(10) END || ?, updated_at = ? WHERE id = ?`, notes, now, id); err != nil {
			return fmt.Errorf("update person notes: %w", err)
		}
	}
	return nil
}

// RecordInteraction bumps the interaction counter and last_channel for a
// person, used whenever David talks to someone he already knows.
func (s *PeopleStore) RecordInteraction(ctx context.Context, id int64, channel string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE people SET interactions = interactions + 1, last_channel = ?, updated_at = ? WHERE id = ?`,
		channel, now, id)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// Find looks up people by name or handle, case-insensitively, via FTS with
// a LIKE fallback — the common Memory Stores contract's search().
func (s *PeopleStore) Find(ctx context.Context, query string) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.handle, p.role, p.description, p.notes, p.interactions, p.last_channel, p.created_at, p.updated_at
		FROM people p
		JOIN people_fts fts ON p.id = fts.rowid
		WHERE people_fts MATCH ?
		LIMIT 10`, ftsQuery(query))
	if err != nil || !rows.Next() {
		if rows != nil {
			rows.Close()
		}
		return s.findLike(ctx, query)
	}
	return scanPeopleRows(rows, true)
}

func (s *PeopleStore) findLike(ctx context.Context, query string) ([]Person, error) {
	like := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, handle, role, description, notes, interactions, last_channel, created_at, updated_at
		FROM people
		WHERE LOWER(name) LIKE ? OR LOWER(handle) LIKE ?
		LIMIT 10`, like, like)
	if err != nil {
		return nil, fmt.Errorf("find person (like): %w", err)
	}
	return scanPeopleRows(rows, false)
}

func scanPeopleRows(rows *sql.Rows, alreadyPositioned bool) ([]Person, error) {
	defer rows.Close()
	var out []Person
	first := alreadyPositioned
	for first || rows.Next() {
		first = false
		var p Person
		var created, updated string
		if err := rows.Scan(&p.ID, &p.Name, &p.Handle, &p.Role, &p.Description, &p.Notes, &p.Interactions, &p.LastChannel, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetContext formats a prompt-injectable block about the best match for
// query, or "" if nobody matches.
func (s *PeopleStore) GetContext(ctx context.Context, query string) (string, error) {
	people, err := s.Find(ctx, query)
	if err != nil || len(people) == 0 {
		return "", err
	}
	p := people[0]
	var b strings.Builder
	fmt.Fprintf(&b, "[Person: %s]", p.Name)
	if p.Role != "" && p.Role != "unknown" {
		fmt.Fprintf(&b, " (%s)", p.Role)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s", p.Description)
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", p.Notes)
	}
	fmt.Fprintf(&b, "\n%d prior interaction(s)", p.Interactions)
	return b.String(), nil
}

// GetStats returns total_people / total_interactions, matching the Python
// source's stats dict shape.
func (s *PeopleStore) GetStats(ctx context.Context) (map[string]int, error) {
	var total, interactions int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(interactions), 0) FROM people`)
	if err := row.Scan(&total, &interactions); err != nil {
		return nil, fmt.Errorf("people stats: %w", err)
	}
	return map[string]int{"total_people": total, "total_interactions": interactions}, nil
}

// ftsQuery quotes a raw query for FTS5 MATCH, escaping embedded quotes the
// same way the teacher's Python ancestor does.
func ftsQuery(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
