// Package otcdb implements Postgres-backed persistence for the coordinator
// (spec.md §4.4, C4): API keys, quotes, and swaps, with atomic
// read-modify-write transitions on the swap aggregate. Grounded on
// degeri-dcrlnd's channeldb repository style (one Go type per aggregate,
// explicit SQL rather than an ORM) adapted from its bbolt/kvdb backend to
// lib/pq + database/sql, following peterzen-dcrdex's manifest for the
// driver choice.
package otcdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps a Postgres connection pool and exposes the per-aggregate
// repositories.
type DB struct {
	sql *sql.DB

	ApiKeys *ApiKeyRepo
	Quotes  *QuoteRepo
	Swaps   *SwapRepo
}

// Open connects to dsn and wires up the repositories. It does not run
// migrations; that is cmd/otc-server's responsibility at startup.
func Open(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("otcdb: open: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("otcdb: ping: %w", err)
	}
	return &DB{
		sql:     sqlDB,
		ApiKeys: &ApiKeyRepo{db: sqlDB},
		Quotes:  &QuoteRepo{db: sqlDB},
		Swaps:   &SwapRepo{db: sqlDB},
	}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error { return d.sql.Close() }

// Migrate creates the schema if it does not already exist. Idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("otcdb: migrate: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY,
		market_maker TEXT UNIQUE NOT NULL,
		hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quotes (
		id UUID PRIMARY KEY,
		market_maker_id UUID NOT NULL,
		from_currency JSONB NOT NULL,
		from_amount TEXT NOT NULL,
		to_currency JSONB NOT NULL,
		to_amount TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS quotes_expires_at_idx ON quotes (expires_at)`,
	`CREATE TABLE IF NOT EXISTS swaps (
		id UUID PRIMARY KEY,
		market_maker_id UUID NOT NULL,
		quote_id UUID NOT NULL REFERENCES quotes(id),
		user_deposit_salt BYTEA NOT NULL,
		user_deposit_address TEXT NOT NULL,
		mm_nonce BYTEA NOT NULL,
		user_destination_address TEXT NOT NULL,
		user_refund_address TEXT NOT NULL,
		status TEXT NOT NULL,
		user_deposit_status JSONB,
		mm_deposit_status JSONB,
		settlement_status JSONB,
		failure_reason TEXT,
		failure_at TIMESTAMPTZ,
		mm_notified_at TIMESTAMPTZ,
		mm_private_key_sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS swaps_status_idx ON swaps (status)`,
}
