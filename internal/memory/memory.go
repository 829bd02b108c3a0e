// Package memory is the Memory Stores subsystem (spec §3.4/§4.5): four
// independent typed stores — people, knowledge, events, goals — each backed
// by its own SQLite file with an FTS5 virtual table mirroring its textual
// columns. No store references another by foreign key; relations between
// them are discovered by search, not joins.
package memory

import (
	"database/sql"
	"fmt"

	"github.com/0ld3ull/operator/internal/migration"
	_ "modernc.org/sqlite"
)

// openDB opens a per-store SQLite file with the same WAL/single-connection
// setup every other store in this repo uses, then applies the caller's
// schema statements and records schemaVersion via internal/migration.
func openDB(dbPath string, schemaVersion int, ddl []string) (*sql.DB, error) {
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
	return db, nil
}

// Stats is the common summary shape every store's GetStats returns a
// domain-specific variant of; kept here only as a documentation anchor.
type Stats map[string]int
