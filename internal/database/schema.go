// Package database opens the development API's Postgres pool and creates
// its tables.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		phone         TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL,
		password_hash BYTEA NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_sessions (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		device_id          TEXT NOT NULL,
		refresh_token_hash BYTEA NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at         TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, device_id)
	)`,
	`CREATE INDEX IF NOT EXISTS user_sessions_refresh_idx ON user_sessions (refresh_token_hash)`,
}

// Migrate creates the tables the development API needs. It is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
