package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		tenant_id  UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tenants_name_key ON tenants (name)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id         UUID PRIMARY KEY,
		tenant_id       TEXT NOT NULL,
		email           TEXT NOT NULL,
		credential_hash TEXT NOT NULL,
		failed_logins   INTEGER NOT NULL DEFAULT 0 CHECK (failed_logins >= 0),
		account_locked  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
	`CREATE INDEX IF NOT EXISTS users_tenant_id_idx ON users (tenant_id)`,
}

// EnsureSchema applies the identity service DDL. Statements are idempotent so
// the call is safe on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
