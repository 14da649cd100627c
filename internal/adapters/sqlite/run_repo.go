// Package sqlite keeps run history in an embedded SQLite database for
// single-node deployments without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// RunRepo implements ports.RunHistoryRepository using modernc.org/sqlite.
type RunRepo struct {
	db *sql.DB
}

// Open opens a SQLite database at dsn and configures WAL mode.
func Open(dsn string) (*RunRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &RunRepo{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS optimization_runs (
	run_id       TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	region       TEXT NOT NULL,
	result       TEXT NOT NULL,
	started_at   INTEGER NOT NULL,
	completed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_optimization_runs_completed ON optimization_runs(completed_at);
`

// Migrate creates the schema.
func (r *RunRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, migration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the database.
func (r *RunRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *RunRepo) Close() error {
	return r.db.Close()
}

// Insert stores a run, replacing an earlier copy with the same ID.
func (r *RunRepo) Insert(ctx context.Context, rec *domain.RunRecord) error {
	region, err := json.Marshal(rec.Region)
	if err != nil {
		return fmt.Errorf("sqlite: marshal region: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("sqlite: marshal result: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO optimization_runs (run_id, session_id, region, result, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET result = excluded.result, completed_at = excluded.completed_at`,
		rec.RunID, rec.SessionID, string(region), string(result),
		rec.StartedAt.UnixNano(), rec.CompletedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// List returns a page of runs, newest first, with the total row count.
func (r *RunRepo) List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM optimization_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: count runs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, session_id, region, result, started_at, completed_at
		 FROM optimization_runs ORDER BY completed_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *rec)
	}
	return runs, total, rows.Err()
}

// GetByID returns one run.
func (r *RunRepo) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT run_id, session_id, region, result, started_at, completed_at
		 FROM optimization_runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var region, result string
	var started, completed int64
	if err := row.Scan(&rec.RunID, &rec.SessionID, &region, &result, &started, &completed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(region), &rec.Region); err != nil {
		return nil, fmt.Errorf("sqlite: decode region: %w", err)
	}
	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("sqlite: decode result: %w", err)
	}
	rec.StartedAt = time.Unix(0, started).UTC()
	rec.CompletedAt = time.Unix(0, completed).UTC()
	return &rec, nil
}
