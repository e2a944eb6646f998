// Package storage persists run records and the LLM call audit in Postgres.
// It is optional: when no database is configured the pipeline still runs
// and results land only in filesystem artifacts.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db := &DB{Pool: pool}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS review_runs (
  run_id      text PRIMARY KEY,
  mode        text NOT NULL,
  started_at  timestamptz NOT NULL DEFAULT now(),
  finished_at timestamptz,
  units_total int NOT NULL DEFAULT 0,
  units_done  int NOT NULL DEFAULT 0,
  units_failed int NOT NULL DEFAULT 0,
  summary     text
)`,
		`CREATE TABLE IF NOT EXISTS unit_results (
  run_id       text NOT NULL,
  file_path    text NOT NULL,
  state        text NOT NULL,
  findings     jsonb NOT NULL DEFAULT '[]'::jsonb,
  summary      text,
  proposed_fix text,
  fail_reason  text,
  created_at   timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (run_id, file_path)
)`,
		`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id    text PRIMARY KEY,
  run_id     text,
  file_path  text,
  operation  text NOT NULL,
  provider   text NOT NULL,
  model      text NOT NULL,
  status     text NOT NULL,
  error_type text,
  created_at timestamptz NOT NULL DEFAULT now()
)`,
	}
	for _, q := range stmts {
		if _, err := d.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure storage schema: %w", err)
		}
	}
	return nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}
