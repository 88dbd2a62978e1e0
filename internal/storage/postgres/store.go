package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bridgeScope/internal/metrics"
)

const stagingSuffix = "__staging"

// Store provides Postgres persistence for the canonical and rollup tables.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Ping verifies the database is reachable before a phase starts work.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// tableSpec describes one snapshot table: its DDL with a %s placeholder for
// the table name, and a queue function that stages the insert batch.
type tableSpec struct {
	name  string
	ddl   string
	queue func(batch *pgx.Batch, table string)
}

// publishSnapshot rebuilds every table under a __staging name, then swaps
// them all in with drop-and-rename inside the same transaction. Readers see
// either the previous snapshot or the new one, never a mix.
func (s *Store) publishSnapshot(ctx context.Context, specs []tableSpec) error {
	rows := make([]int, len(specs))
	err := withRetry(ctx, publishRetries, publishBackoff, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin publish: %w", err)
		}
		defer tx.Rollback(ctx)

		for i, spec := range specs {
			n, err := stageTable(ctx, tx, spec)
			if err != nil {
				return err
			}
			rows[i] = n
		}
		for _, spec := range specs {
			if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+spec.name); err != nil {
				return fmt.Errorf("drop %s: %w", spec.name, err)
			}
			rename := fmt.Sprintf(`ALTER TABLE %s%s RENAME TO %s`, spec.name, stagingSuffix, spec.name)
			if _, err := tx.Exec(ctx, rename); err != nil {
				return fmt.Errorf("swap %s: %w", spec.name, err)
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}

	for i, spec := range specs {
		metrics.RowsPublishedTotal.WithLabelValues(spec.name).Add(float64(rows[i]))
	}
	return nil
}

func stageTable(ctx context.Context, tx pgx.Tx, spec tableSpec) (int, error) {
	staging := spec.name + stagingSuffix
	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+staging); err != nil {
		return 0, fmt.Errorf("drop stale %s: %w", staging, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(spec.ddl, staging)); err != nil {
		return 0, fmt.Errorf("create %s: %w", staging, err)
	}

	batch := &pgx.Batch{}
	spec.queue(batch, staging)
	rows := batch.Len()
	if rows == 0 {
		return 0, nil
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < rows; i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("fill %s: %w", staging, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("fill %s: %w", staging, err)
	}
	return rows, nil
}

// Optional fields encode absence as the zero value; map that onto SQL NULL.
func nullInt(v uint64) any {
	if v == 0 {
		return nil
	}
	return int64(v)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
