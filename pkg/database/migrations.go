package database

import (
	"context"
	"fmt"
)

// schema 는 momo 스키마 DDL (idempotent)
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS momo`,
	`CREATE TABLE IF NOT EXISTS momo.daily_prices (
		symbol           TEXT        NOT NULL,
		trade_date       DATE        NOT NULL,
		open_price       DOUBLE PRECISION,
		high_price       DOUBLE PRECISION,
		low_price        DOUBLE PRECISION,
		close_price      DOUBLE PRECISION NOT NULL,
		unadjusted_close DOUBLE PRECISION,
		volume           BIGINT      NOT NULL DEFAULT 0,
		dividend         DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS momo.index_membership (
		index_name  TEXT    NOT NULL,
		symbol      TEXT    NOT NULL,
		change_date DATE    NOT NULL,
		is_member   BOOLEAN NOT NULL,
		PRIMARY KEY (index_name, symbol, change_date)
	)`,
	`CREATE TABLE IF NOT EXISTS momo.validation_reports (
		universe      TEXT        NOT NULL,
		start_date    DATE        NOT NULL,
		end_date      DATE        NOT NULL,
		total_symbols INTEGER     NOT NULL,
		is_valid      BOOLEAN     NOT NULL,
		summary       TEXT        NOT NULL,
		report        JSONB       NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (universe, start_date, end_date)
	)`,
	`CREATE TABLE IF NOT EXISTS momo.backtest_runs (
		run_id      TEXT        PRIMARY KEY,
		strategy_id TEXT        NOT NULL,
		config_hash TEXT        NOT NULL,
		config_yaml TEXT        NOT NULL,
		metrics     JSONB       NOT NULL,
		warnings    JSONB       NOT NULL DEFAULT '[]'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS momo.return_records (
		run_id           TEXT    NOT NULL REFERENCES momo.backtest_runs(run_id) ON DELETE CASCADE,
		period_date      DATE    NOT NULL,
		end_date         DATE    NOT NULL,
		portfolio_return DOUBLE PRECISION NOT NULL,
		cumulative_value DOUBLE PRECISION NOT NULL,
		turnover         DOUBLE PRECISION NOT NULL,
		long_count       INTEGER NOT NULL,
		short_count      INTEGER NOT NULL,
		active_cohorts   INTEGER NOT NULL,
		missing_returns  INTEGER NOT NULL,
		degenerate       BOOLEAN NOT NULL,
		PRIMARY KEY (run_id, period_date)
	)`,
}

// Migrate creates the momo schema and tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return nil
}
