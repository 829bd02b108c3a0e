package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const knowledgeSchemaVersion = 1

var knowledgeDDL = []string{
	`CREATE TABLE IF NOT EXISTS knowledge (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		category   TEXT NOT NULL DEFAULT 'lesson',
		topic      TEXT NOT NULL,
		content    TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT 'experience',
		created_at TEXT NOT NULL,
		last_used  TEXT
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_fts USING fts5(
		topic, content, category, content='knowledge', content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS knowledge_ai AFTER INSERT ON knowledge BEGIN
		INSERT INTO knowledge_fts(rowid, topic, content, category)
		VALUES (new.id, new.topic, new.content, new.category);
	END`,
	`CREATE TRIGGER IF NOT EXISTS knowledge_ad AFTER DELETE ON knowledge BEGIN
		INSERT INTO knowledge_fts(knowledge_fts, rowid, topic, content, category)
		VALUES('delete', old.id, old.topic, old.content, old.category);
	END`,
	`CREATE TRIGGER IF NOT EXISTS knowledge_au AFTER UPDATE ON knowledge BEGIN
		INSERT INTO knowledge_fts(knowledge_fts, rowid, topic, content, category)
		VALUES('delete', old.id, old.topic, old.content, old.category);
		INSERT INTO knowledge_fts(rowid, topic, content, category)
		VALUES (new.id, new.topic, new.content, new.category);
	END`,
}

// Knowledge is a permanent fact about the company/domain — never fades.
type Knowledge struct {
	ID        int64
	Category  string
	Topic     string
	Content   string
	Source    string
	CreatedAt time.Time
}

// KnowledgeStore is the Knowledge typed store (spec §3.4).
type KnowledgeStore struct {
	db *sql.DB
}

// NewKnowledgeStore opens (or creates) the knowledge database at dbPath.
func NewKnowledgeStore(dbPath string) (*KnowledgeStore, error) {
	db, err := openDB(dbPath, knowledgeSchemaVersion, knowledgeDDL)
	if err != nil {
		return nil, err
	}
	return &KnowledgeStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *KnowledgeStore) Close() error { return s.db.Close() }

// Add inserts a new knowledge item and returns its id.
func (s *KnowledgeStore) Add(ctx context.Context, category, topic, content, source string) (int64, error) {
	if category == "" {
		category = "lesson"
	}
	if source == "" {
		source = "experience"
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge (category, topic, content, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		category, topic, content, source, now)
	if err != nil {
		return 0, fmt.Errorf("add knowledge: %w", err)
	}
	return res.LastInsertId()
}

// Search returns up to limit knowledge items matching query, ranked by FTS,
// falling back to a substring LIKE scan when FTS yields nothing.
func (s *KnowledgeStore) Search(ctx context.Context, query string, limit int) ([]Knowledge, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT k.id, k.category, k.topic, k.content, k.source, k.created_at
		FROM knowledge k
		JOIN knowledge_fts fts ON k.id = fts.rowid
		WHERE knowledge_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery(query), limit)
	if err == nil {
		items, scanErr := scanKnowledgeRows(rows)
		if scanErr == nil && len(items) > 0 {
			s.touchLastUsed(ctx, items)
			return items, nil
		}
	}
	return s.searchLike(ctx, query, limit)
}

func (s *KnowledgeStore) searchLike(ctx context.Context, query string, limit int) ([]Knowledge, error) {
	like := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, topic, content, source, created_at
		FROM knowledge
		WHERE LOWER(topic) LIKE ? OR LOWER(content) LIKE ?
		ORDER BY created_at DESC
		LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge (like): %w", err)
	}
	return scanKnowledgeRows(rows)
}

func (s *KnowledgeStore) touchLastUsed(ctx context.Context, items []Knowledge) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, it := range items {
		_, _ = s.db.ExecContext(ctx, `UPDATE knowledge SET last_used = ? WHERE id = ?`, now, it.ID)
	}
}

func scanKnowledgeRows(rows *sql.Rows) ([]Knowledge, error) {
	defer rows.Close()
	var out []Knowledge
	for rows.Next() {
		var k Knowledge
		var created string
		if err := rows.Scan(&k.ID, &k.Category, &k.Topic, &k.Content, &k.Source, &created); err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		k.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetContext formats up to 3 matching knowledge entries as a prompt block.
func (s *KnowledgeStore) GetContext(ctx context.Context, query string) (string, error) {
	items, err := s.Search(ctx, query, 3)
	if err != nil || len(items) == 0 {
		return "", err
	}
	var b strings.Builder
	b.WriteString("[FLIPT Knowledge]")
	for _, it := range items {
		content := it.Content
		if len(content) > 100 {
			content = content[:100]
		}
		fmt.Fprintf(&b, "\n- %s: %s", it.Topic, content)
	}
	return b.String(), nil
}

// GetStats returns total_knowledge, matching the Python source's stats shape.
func (s *KnowledgeStore) GetStats(ctx context.Context) (map[string]int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge`).Scan(&total); err != nil {
		return nil, fmt.Errorf("knowledge stats: %w", err)
	}
	return map[string]int{"total_knowledge": total}, nil
}
