package index

import (
	"context"
	"time"
)

// Run records one scan of a library.
type Run struct {
	ID        int64
	Library   string
	StartedAt time.Time
	Duration  time.Duration
	Files     int
	Entries   int
	Problems  int
	Dangling  int
}

func (db *DB) RecordRun(ctx context.Context, run Run) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO runs (library, started_at, duration_ms, files, entries, problems, dangling)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Library, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds(),
		run.Files, run.Entries, run.Problems, run.Dangling,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Runs returns the most recent runs for library, newest first.
func (db *DB) Runs(ctx context.Context, library string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, library, started_at, duration_ms, files, entries, problems, dangling
		FROM runs WHERE library = ? ORDER BY id DESC LIMIT ?`,
		library, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.Library, &startedAt, &durationMS, &r.Files, &r.Entries, &r.Problems, &r.Dangling); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
