package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateNewDB(t *testing.T) {
	db := openTestDB(t)

	version, err := getSchemaVersion(db.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	version, err := getSchemaVersion(db2.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestMigrateFromVersionOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v1.db")

	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	tx, err := raw.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := migrations[0].Up(tx); err != nil {
		t.Fatalf("migration 1: %v", err)
	}
	tx.Commit()
	raw.Exec("PRAGMA user_version = 1")
	raw.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var count int
	db.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_runs_started'").Scan(&count)
	if count != 1 {
		t.Error("expected later migrations to be applied")
	}
}

func TestGetSchemaVersionNewDB(t *testing.T) {
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	version, err := getSchemaVersion(conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on new db, got %d", version)
	}
}

func TestMigrationsOrdered(t *testing.T) {
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("migration %d out of order", migrations[i].Version)
		}
	}
}

func TestMigrateAddsStorySecondsToExistingRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v2.db")

	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	for _, m := range migrations[:2] {
		tx, _ := raw.Begin()
		if err := m.Up(tx); err != nil {
			t.Fatalf("migration %d: %v", m.Version, err)
		}
		tx.Commit()
	}
	raw.Exec("PRAGMA user_version = 2")
	_, err = raw.Exec(`INSERT INTO runs (id, trigger, result, started_at, finished_at)
		VALUES ('old', 'manual', '{}', '2026-01-01T09:00:00Z', '2026-01-01T09:01:00Z')`)
	if err != nil {
		t.Fatalf("insert pre-migration run: %v", err)
	}
	raw.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var seconds int
	if err := db.conn.QueryRow("SELECT story_seconds FROM runs WHERE id = 'old'").Scan(&seconds); err != nil {
		t.Fatalf("reading story_seconds: %v", err)
	}
	if seconds != 0 {
		t.Errorf("expected default 0 for existing run, got %d", seconds)
	}
}

func TestAddColumnIsRerunnable(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 2; i++ {
		tx, err := db.conn.Begin()
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := addColumn(tx, "runs", "story_seconds", "INTEGER NOT NULL DEFAULT 0"); err != nil {
			tx.Rollback()
			t.Fatalf("addColumn pass %d: %v", i+1, err)
		}
		tx.Commit()
	}
}

func TestRunsRejectUnknownTrigger(t *testing.T) {
	db := openTestDB(t)
	_, err := db.conn.Exec(`INSERT INTO runs (id, trigger, result, started_at, finished_at)
		VALUES ('x', 'webhook', '{}', '2026-01-01T09:00:00Z', '2026-01-01T09:01:00Z')`)
	if err == nil {
		t.Error("expected CHECK constraint to reject trigger 'webhook'")
	}
}
