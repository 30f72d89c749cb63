// Package migrations creates the storefront schema on a plain Postgres database.
// Supabase projects carry the same tables; this is for self-hosted deployments.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS size_options (
		id          TEXT PRIMARY KEY,
		label       TEXT NOT NULL,
		size        TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		price       BIGINT NOT NULL CHECK (price >= 0),
		sort_order  INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS resin_options (
		id          TEXT PRIMARY KEY,
		label       TEXT NOT NULL,
		hex         TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		sort_order  INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS wood_options (
		id             TEXT PRIMARY KEY,
		label          TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		color          TEXT NOT NULL DEFAULT '',
		price_addition BIGINT NOT NULL DEFAULT 0 CHECK (price_addition >= 0),
		sort_order     INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS leg_options (
		id             TEXT PRIMARY KEY,
		label          TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		color          TEXT NOT NULL DEFAULT '',
		price_addition BIGINT NOT NULL DEFAULT 0 CHECK (price_addition >= 0),
		sort_order     INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id        TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		size_id     TEXT NOT NULL REFERENCES size_options(id),
		resin_id    TEXT NOT NULL REFERENCES resin_options(id),
		wood_id     TEXT NOT NULL REFERENCES wood_options(id),
		leg_id      TEXT NOT NULL REFERENCES leg_options(id),
		total_price BIGINT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_created_idx ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		"index"     INT NOT NULL DEFAULT 0,
		name        TEXT NOT NULL,
		subtitle    TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		glow        TEXT NOT NULL DEFAULT '',
		accent      TEXT NOT NULL DEFAULT '',
		gradient    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS product_images (
		id         TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		url        TEXT NOT NULL,
		sort_order INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS product_specs (
		id         TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		label      TEXT NOT NULL,
		value      TEXT NOT NULL,
		sort_order INT NOT NULL DEFAULT 0
	)`,
}

// Count is the number of statements Apply executes.
func Count() int { return len(statements) }

// Apply runs every statement in order. Statements are idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
