/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package research

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/0ld3ull/operator/internal/migration"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS research_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		source_id TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		published_at TEXT,
		relevance_score REAL NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'none',
		suggested_action TEXT NOT NULL DEFAULT 'ignore',
		matched_goals TEXT NOT NULL DEFAULT '[]',
		reasoning TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_research_items_source ON research_items(source)`,
	`CREATE TABLE IF NOT EXISTS digests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at TEXT NOT NULL,
		scraped INTEGER NOT NULL,
		new INTEGER NOT NULL,
		relevant INTEGER NOT NULL,
		alerts INTEGER NOT NULL,
		tasks INTEGER NOT NULL,
		content INTEGER NOT NULL,
		knowledge INTEGER NOT NULL,
		watch INTEGER NOT NULL,
		ignored INTEGER NOT NULL,
		errors TEXT NOT NULL DEFAULT '[]'
	)`,
}

// Store is the boot-durable "seen source_id" table plus the evaluated-item
// and digest history (spec §4.6 Stage D, "Output of a cycle"). One SQLite
// file per subsystem, same WAL/single-connection shape every other store
// in this repo uses.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the research database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	if err := migration.EnsureVersion(db, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema version: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// FilterNew returns the subset of items whose SourceID has never been
// saved before (spec §4.6 Stage D). It does not insert anything; callers
// save the surviving items themselves after evaluation and routing, so a
// crash between dedup and save does not silently drop an item.
func (s *Store) FilterNew(ctx context.Context, items []ResearchItem) ([]ResearchItem, error) {
	var fresh []ResearchItem
	for _, item := range items {
		if item.SourceID == "" {
			continue
		}
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM research_items WHERE source_id = ?`, item.SourceID).Scan(&exists)
		if err == sql.ErrNoRows {
			fresh = append(fresh, item)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("check source_id %s: %w", item.SourceID, err)
		}
		// Already seen: invariant 11, not re-evaluated.
	}
	return fresh, nil
}

// SaveBatch persists evaluated items, skipping any whose source_id raced
// in ahead of this call (UNIQUE constraint on source_id enforces the
// dedup invariant even without a transaction spanning Filter and Save).
func (s *Store) SaveBatch(ctx context.Context, items []ResearchItem) error {
	for _, item := range items {
		if err := s.save(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) save(ctx context.Context, item ResearchItem) error {
	goals, err := json.Marshal(item.MatchedGoals)
	if err != nil {
		return fmt.Errorf("marshal matched_goals: %w", err)
	}
	var published any
	if !item.PublishedAt.IsZero() {
		published = item.PublishedAt.UTC().Format(time.RFC3339)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO research_items
			(source, source_id, url, title, content, published_at, relevance_score,
			 priority, suggested_action, matched_goals, reasoning, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO NOTHING`,
		item.Source, item.SourceID, item.URL, item.Title, item.Content, published,
		item.RelevanceScore, item.Priority, item.SuggestedAction, string(goals),
		item.Reasoning, item.Summary, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save research item %s: %w", item.SourceID, err)
	}
	return nil
}

// RecordDigest appends a cycle's stats to the digest history table.
func (s *Store) RecordDigest(ctx context.Context, d Digest) error {
	errs, err := json.Marshal(d.Errors)
	if err != nil {
		return fmt.Errorf("marshal digest errors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO digests (run_at, scraped, new, relevant, alerts, tasks, content, knowledge, watch, ignored, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunAt.UTC().Format(time.RFC3339), d.Scraped, d.New, d.Relevant,
		d.Alerts, d.Tasks, d.Content, d.Knowledge, d.Watch, d.Ignored, string(errs))
	if err != nil {
		return fmt.Errorf("record digest: %w", err)
	}
	return nil
}

// DigestHistory returns the most recent digests, newest first.
func (s *Store) DigestHistory(ctx context.Context, limit int) ([]Digest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_at, scraped, new, relevant, alerts, tasks, content, knowledge, watch, ignored, errors
		FROM digests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("digest history: %w", err)
	}
	defer rows.Close()

	var out []Digest
	for rows.Next() {
		var d Digest
		var runAt, errs string
		if err := rows.Scan(&runAt, &d.Scraped, &d.New, &d.Relevant, &d.Alerts,
			&d.Tasks, &d.Content, &d.Knowledge, &d.Watch, &d.Ignored, &errs); err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		d.RunAt, _ = time.Parse(time.RFC3339, runAt)
		_ = json.Unmarshal([]byte(errs), &d.Errors)
		out = append(out, d)
	}
	return out, rows.Err()
}

// RecentFindings returns the highest-scoring items saved since cutoff,
// most relevant first.
func (s *Store) RecentFindings(ctx context.Context, since time.Time, limit int) ([]ResearchItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, source_id, url, title, content, published_at, relevance_score,
		       priority, suggested_action, matched_goals, reasoning, summary, created_at
		FROM research_items
		WHERE created_at >= ?
		ORDER BY relevance_score DESC, id DESC
		LIMIT ?`, since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("recent findings: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]ResearchItem, error) {
	var out []ResearchItem
	for rows.Next() {
		var item ResearchItem
		var published sql.NullString
		var createdAt, goals string
		if err := rows.Scan(&item.ID, &item.Source, &item.SourceID, &item.URL, &item.Title,
			&item.Content, &published, &item.RelevanceScore, &item.Priority, &item.SuggestedAction,
			&goals, &item.Reasoning, &item.Summary, &createdAt); err != nil {
			return nil, fmt.Errorf("scan research item: %w", err)
		}
		if published.Valid {
			item.PublishedAt, _ = time.Parse(time.RFC3339, published.String)
		}
		item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		_ = json.Unmarshal([]byte(goals), &item.MatchedGoals)
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetStats summarizes store contents.
func (s *Store) GetStats(ctx context.Context) (map[string]int, error) {
	stats := map[string]int{}
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM research_items`)
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, fmt.Errorf("count research items: %w", err)
	}
	stats["total_items"] = total

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM research_items WHERE relevance_score >= 6`)
	var relevant int
	if err := row.Scan(&relevant); err != nil {
		return nil, fmt.Errorf("count relevant items: %w", err)
	}
	stats["relevant_items"] = relevant

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM digests`)
	var cycles int
	if err := row.Scan(&cycles); err != nil {
		return nil, fmt.Errorf("count digests: %w", err)
	}
	stats["cycles_run"] = cycles
	return stats, nil
}
