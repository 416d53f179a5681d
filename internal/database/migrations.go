package database

import (
	"database/sql"
	"fmt"
)

// Migration is one schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations must stay ordered by Version. Append only.
var migrations = []Migration{
	{
		Version:     1,
		Description: "runs table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    trigger TEXT NOT NULL CHECK(trigger IN ('manual', 'scheduled', 'cli')),
    success INTEGER NOT NULL DEFAULT 0,
    stage TEXT,
    error TEXT,
    audio_path TEXT,
    title TEXT,
    category TEXT,
    result TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "index runs by start time",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);`)
			return err
		},
	},
	{
		Version:     3,
		Description: "story length on runs",
		Up: func(tx *sql.Tx) error {
			return addColumn(tx, "runs", "story_seconds", "INTEGER NOT NULL DEFAULT 0")
		},
	},
}

// addColumn is ALTER TABLE ADD COLUMN made re-runnable: SQLite has no
// IF NOT EXISTS for columns.
func addColumn(tx *sql.Tx, table, column, decl string) error {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
