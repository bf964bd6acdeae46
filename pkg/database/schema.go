package database

import (
	"context"
	"fmt"
)

// RequiredTables lists every table the index service reads or writes
var RequiredTables = []string{
	"data.daily_prices",
	"indices.runs",
	"indices.levels",
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS data`,
	`CREATE SCHEMA IF NOT EXISTS indices`,
	`CREATE TABLE IF NOT EXISTS data.daily_prices (
		stock_code  TEXT        NOT NULL,
		trade_date  DATE        NOT NULL,
		open_price  DOUBLE PRECISION,
		high_price  DOUBLE PRECISION,
		low_price   DOUBLE PRECISION,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT,
		PRIMARY KEY (stock_code, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS indices.runs (
		run_id       TEXT PRIMARY KEY,
		strategy_id  TEXT        NOT NULL,
		config_hash  TEXT        NOT NULL,
		config_yaml  TEXT        NOT NULL DEFAULT '',
		start_date   DATE        NOT NULL,
		end_date     DATE        NOT NULL,
		final_level  DOUBLE PRECISION NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE indices.runs ADD COLUMN IF NOT EXISTS config_yaml TEXT NOT NULL DEFAULT ''`,
	`CREATE TABLE IF NOT EXISTS indices.levels (
		strategy_id TEXT        NOT NULL,
		trade_date  DATE        NOT NULL,
		level       DOUBLE PRECISION NOT NULL,
		run_id      TEXT        NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (strategy_id, trade_date)
	)`,
}

// EnsureSchema creates the schemas and tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
