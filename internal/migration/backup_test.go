package migration_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0ld3ull/operator/internal/migration"
	_ "modernc.org/sqlite"
)

func openFileDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return path
}

func TestBackupDatabase_CreatesIntegrityCheckedCopy(t *testing.T) {
	dbPath := openFileDB(t)
	backupPath, err := migration.BackupDatabase(dbPath)
	if err != nil {
		t.Fatalf("BackupDatabase: %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("want backup file to exist, got %v", err)
	}
}

func TestCleanOldBackups_RemovesOnlyStaleFiles(t *testing.T) {
	dbPath := openFileDB(t)
	fresh, err := migration.BackupDatabase(dbPath)
	if err != nil {
		t.Fatalf("BackupDatabase: %v", err)
	}

	stale := fresh + ".stale"
	if err := os.WriteFile(filepath.Join(filepath.Dir(dbPath), filepath.Base(dbPath)+".bak.stale"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stale backup: %v", err)
	}
	staleAge := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(filepath.Dir(dbPath), filepath.Base(dbPath)+".bak.stale"), staleAge, staleAge); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	_ = stale

	if err := migration.CleanOldBackups(dbPath, 24*time.Hour); err != nil {
		t.Fatalf("CleanOldBackups: %v", err)
	}

	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("want the fresh backup kept, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dbPath), filepath.Base(dbPath)+".bak.stale")); !os.IsNotExist(err) {
		t.Fatalf("want the stale backup removed, got err=%v", err)
	}
}
