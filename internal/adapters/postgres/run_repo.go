package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// RunRepo implements ports.RunHistoryRepository.
type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Insert stores a run. Redelivered runs overwrite the earlier row.
func (r *RunRepo) Insert(ctx context.Context, rec *domain.RunRecord) error {
	region, err := json.Marshal(rec.Region)
	if err != nil {
		return err
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO optimization_runs (run_id, session_id, region_id, area_km2, microgrid_count,
		                               utilization_pct, output_mw, region, result, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE
		SET result = EXCLUDED.result, completed_at = EXCLUDED.completed_at
	`, rec.RunID, rec.SessionID, rec.Region.ID, rec.Region.AreaKm2, rec.Result.MicrogridCount,
		rec.Result.UtilizationPct, rec.Result.OutputMw, region, result, rec.StartedAt, rec.CompletedAt)
	return err
}

// List returns a page of runs, newest first, with the total row count.
func (r *RunRepo) List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM optimization_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT run_id, session_id, region, result, started_at, completed_at
		FROM optimization_runs
		ORDER BY completed_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
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
	row := r.db.Pool.QueryRow(ctx, `
		SELECT run_id, session_id, region, result, started_at, completed_at
		FROM optimization_runs WHERE run_id = $1
	`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	return rec, err
}

func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var region, result []byte
	if err := row.Scan(&rec.RunID, &rec.SessionID, &region, &result, &rec.StartedAt, &rec.CompletedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(region, &rec.Region); err != nil {
		return nil, fmt.Errorf("decode region: %w", err)
	}
	if err := json.Unmarshal(result, &rec.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &rec, nil
}
