package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/history"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/pipeline"
)

var _ history.Store = (*DB)(nil)

// Record inserts or replaces a run. The full result is kept as JSON; the
// flattened columns exist for ad-hoc queries.
func (db *DB) Record(ctx context.Context, run history.Run) error {
	if run.Result == nil {
		return fmt.Errorf("run %s has no result", run.ID)
	}
	data, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	var title, category string
	var seconds int
	if s := run.Result.Story; s != nil {
		title, category, seconds = s.TitleTranslated, string(s.Category), s.TotalDuration()
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		(id, trigger, success, stage, error, audio_path, title, category, story_seconds, result, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Trigger), run.Result.Success, run.Result.Stage, run.Result.Error,
		run.Result.AudioPath, title, category, seconds, string(data),
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (db *DB) Recent(ctx context.Context, limit int) ([]history.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, trigger, result, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []history.Run
	for rows.Next() {
		var (
			run                 history.Run
			trigger, data       string
			startedAt, finished string
		)
		if err := rows.Scan(&run.ID, &trigger, &data, &startedAt, &finished); err != nil {
			return nil, err
		}
		run.Trigger = history.Trigger(trigger)

		var r pipeline.Result
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decoding run %s: %w", run.ID, err)
		}
		run.Result = &r
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at of run %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
