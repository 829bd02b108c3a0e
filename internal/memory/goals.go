package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const goalsSchemaVersion = 1

var goalsDDL = []string{
	`CREATE TABLE IF NOT EXISTS goals (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'active',
		priority     INTEGER NOT NULL DEFAULT 5,
		source       TEXT NOT NULL DEFAULT '',
		tags         TEXT NOT NULL DEFAULT '[]',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		completed_at TEXT
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS goals_fts USING fts5(
		title, description, tags, content='goals', content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS goals_ai AFTER INSERT ON goals BEGIN
		INSERT INTO goals_fts(rowid, title, description, tags)
		VALUES (new.id, new.title, new.description, new.tags);
	END`,
	`CREATE TRIGGER IF NOT EXISTS goals_ad AFTER DELETE ON goals BEGIN
		INSERT INTO goals_fts(goals_fts, rowid, title, description, tags)
		VALUES('delete', old.id, old.title, old.description, old.tags);
	END`,
	`CREATE TRIGGER IF NOT EXISTS goals_au AFTER UPDATE ON goals BEGIN
		INSERT INTO goals_fts(goals_fts, rowid, title, description, tags)
		VALUES('delete', old.id, old.title, old.description, old.tags);
		INSERT INTO goals_fts(rowid, title, description, tags)
		VALUES (new.id, new.title, new.description, new.tags);
	END`,
}

// GoalStatus is one of {active, completed, archived} (spec §3.4).
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalArchived  GoalStatus = "archived"
)

// Goal is a goal detected from conversation or set directly.
type Goal struct {
	ID          int64
	Title       string
	Description string
	Status      GoalStatus
	Priority    int
	Source      string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// GoalStore is the Goal typed store (spec §3.4).
type GoalStore struct {
	db *sql.DB
}

// NewGoalStore opens (or creates) the goals database at dbPath.
func NewGoalStore(dbPath string) (*GoalStore, error) {
	db, err := openDB(dbPath, goalsSchemaVersion, goalsDDL)
	if err != nil {
		return nil, err
	}
	return &GoalStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *GoalStore) Close() error { return s.db.Close() }

// Add inserts a new active goal, clamping priority to [1, 10].
func (s *GoalStore) Add(ctx context.Context, title, description string, priority int, source string, tags []string) (int64, error) {
	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		tagsJSON = []byte("[]")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (title, description, priority, source, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title, description, priority, source, string(tagsJSON), now, now)
	if err != nil {
		return 0, fmt.Errorf("add goal: %w", err)
	}
	return res.LastInsertId()
}

// Complete marks a goal completed.
func (s *GoalStore) Complete(ctx context.Context, goalID int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE goals SET status = 'completed', completed_at = ?, updated_at = ? WHERE id = ?`, now, now, goalID)
	if err != nil {
		return fmt.Errorf("complete goal: %w", err)
	}
	return nil
}

// Archive marks a goal archived.
func (s *GoalStore) Archive(ctx context.Context, goalID int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `UPDATE goals SET status = 'archived', updated_at = ? WHERE id = ?`, now, goalID)
	if err != nil {
		return fmt.Errorf("archive goal: %w", err)
	}
	return nil
}

// GetActive returns active goals ordered by priority desc, then recency.
func (s *GoalStore) GetActive(ctx context.Context, limit int) ([]Goal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, source, tags, created_at, updated_at, completed_at
		FROM goals WHERE status = 'active'
		ORDER BY priority DESC, created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get_active goals: %w", err)
	}
	return scanGoalRows(rows)
}

// Search returns goals matching query via FTS, falling back to LIKE.
func (s *GoalStore) Search(ctx context.Context, query string, limit int) ([]Goal, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.title, g.description, g.status, g.priority, g.source, g.tags, g.created_at, g.updated_at, g.completed_at
		FROM goals g
		JOIN goals_fts fts ON g.id = fts.rowid
		WHERE goals_fts MATCH ?
		ORDER BY g.priority DESC
		LIMIT ?`, ftsQuery(query), limit)
	if err == nil {
		goals, scanErr := scanGoalRows(rows)
		if scanErr == nil && len(goals) > 0 {
			return goals, nil
		}
	}

	like := "%" + strings.ToLower(query) + "%"
	rows2, err2 := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, source, tags, created_at, updated_at, completed_at
		FROM goals
		WHERE LOWER(title) LIKE ? OR LOWER(description) LIKE ?
		ORDER BY priority DESC
		LIMIT ?`, like, like, limit)
	if err2 != nil {
		return nil, fmt.Errorf("search goals (like): %w", err2)
	}
	return scanGoalRows(rows2)
}

func scanGoalRows(rows *sql.Rows) ([]Goal, error) {
	defer rows.Close()
	var out []Goal
	for rows.Next() {
		var g Goal
		var status, created, updated, tagsJSON string
		var completed sql.NullString
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &status, &g.Priority, &g.Source, &tagsJSON, &created, &updated, &completed); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Status = GoalStatus(status)
		g.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		g.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		if completed.Valid {
			t, _ := time.Parse(time.RFC3339Nano, completed.String)
			g.CompletedAt = &t
		}
		_ = json.Unmarshal([]byte(tagsJSON), &g.Tags)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetContext formats up to 10 active goals as a prompt-injectable block.
func (s *GoalStore) GetContext(ctx context.Context) (string, error) {
	goals, err := s.GetActive(ctx, 10)
	if err != nil || len(goals) == 0 {
		return "", err
	}
	var b strings.Builder
	b.WriteString("**Active Goals:**")
	for _, g := range goals {
		fmt.Fprintf(&b, "\n- [%d/10] %s", g.Priority, g.Title)
		if g.Description != "" {
			desc := g.Description
			if len(desc) > 100 {
				desc = desc[:100]
			}
			fmt.Fprintf(&b, "\n  %s", desc)
		}
	}
	return b.String(), nil
}

// GetStats returns active/completed/total counts.
func (s *GoalStore) GetStats(ctx context.Context) (map[string]int, error) {
	var active, completed, total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals WHERE status = 'active'`).Scan(&active); err != nil {
		return nil, fmt.Errorf("goal stats active: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals WHERE status = 'completed'`).Scan(&completed); err != nil {
		return nil, fmt.Errorf("goal stats completed: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals`).Scan(&total); err != nil {
		return nil, fmt.Errorf("goal stats total: %w", err)
	}
	return map[string]int{"active": active, "completed": completed, "total": total}, nil
}
