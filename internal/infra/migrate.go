package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of *pgxpool.Pool that Migrate needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema is applied in order. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS identity_accounts (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		secret_digest BYTEA NOT NULL,
		phone_number TEXT NOT NULL,
		jid TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_credentials (
		phone_number TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		password_hash TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		phone_number TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		has_password BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_identity_accounts_phone_number ON identity_accounts(phone_number)`,
	`CREATE INDEX IF NOT EXISTS idx_user_credentials_account_id ON user_credentials(account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_profiles_account_id ON user_profiles(account_id)`,
}

// Migrate creates the tables used by the Postgres stores.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
