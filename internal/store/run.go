package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type runRepo struct {
	db *sql.DB
}

func (r *runRepo) Save(ctx context.Context, run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO runs
			(created_at, job_id, kind, model, label, config_count, sample_count, fewer_samples, duration_ms, status, output_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt,
		run.JobID,
		run.Kind,
		run.Model,
		run.Label,
		run.ConfigCount,
		run.SampleCount,
		run.Fewer,
		run.DurationMs,
		run.Status,
		run.OutputPath,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		run.ID = int(id)
	}
	return nil
}

func (r *runRepo) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, job_id, kind, model, label, config_count, sample_count, fewer_samples, duration_ms, status, output_path
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.CreatedAt, &run.JobID, &run.Kind, &run.Model, &run.Label,
			&run.ConfigCount, &run.SampleCount, &run.Fewer, &run.DurationMs,
			&run.Status, &run.OutputPath,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
