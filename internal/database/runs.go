package database

import (
	"context"
	"fmt"

	"tracklink-go-srv/internal/models"
)

// InsertRun records one completed full-set reconciliation run.
func (s *Store) InsertRun(ctx context.Context, run models.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO tracking_runs (run_id, started_at, finished_at, processed, skipped, errors)
	VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Processed, run.Skipped, run.Errors)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT run_id, started_at, finished_at, processed, skipped, errors
	FROM tracking_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var out []models.RunSummary
	for rows.Next() {
		var r models.RunSummary
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt,
			&r.Processed, &r.Skipped, &r.Errors); err != nil {
			return nil, fmt.Errorf("recent runs scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
