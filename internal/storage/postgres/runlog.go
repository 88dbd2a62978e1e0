package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bridgeScope/internal/model"
)

// reconciler_runs is the only table that accumulates across runs, so it is
// created in place rather than snapshot-swapped.
const runsDDL = `
	CREATE TABLE IF NOT EXISTS reconciler_runs (
		run_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		counts JSONB NOT NULL,
		PRIMARY KEY (run_id, phase)
	)`

// RecordRun upserts one completed phase into the run log.
func (s *Store) RecordRun(ctx context.Context, summary model.RunSummary) error {
	started, err := time.Parse(time.RFC3339, summary.StartedAt)
	if err != nil {
		return fmt.Errorf("run started_at: %w", err)
	}
	finished, err := time.Parse(time.RFC3339, summary.FinishedAt)
	if err != nil {
		return fmt.Errorf("run finished_at: %w", err)
	}
	counts, err := json.Marshal(summary.Counts)
	if err != nil {
		return fmt.Errorf("run counts: %w", err)
	}

	return withRetry(ctx, publishRetries, publishBackoff, func(ctx context.Context) error {
		if _, err := s.pool.Exec(ctx, runsDDL); err != nil {
			return fmt.Errorf("ensure reconciler_runs: %w", err)
		}
		_, err := s.pool.Exec(ctx, `
			INSERT INTO reconciler_runs (run_id, phase, started_at, finished_at, counts)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id, phase) DO UPDATE
			SET started_at = EXCLUDED.started_at,
				finished_at = EXCLUDED.finished_at,
				counts = EXCLUDED.counts
		`, summary.RunID, summary.Phase, started, finished, counts)
		return err
	})
}
