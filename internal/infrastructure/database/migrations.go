package database

import "fmt"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS merchants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		receiving_address TEXT NOT NULL DEFAULT '',
		webhook_url TEXT NOT NULL DEFAULT '',
		webhook_secret TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payment_sessions (
		session_id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL REFERENCES merchants(id),
		customer_email TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		chain TEXT NOT NULL,
		pay_address TEXT NOT NULL,
		expected_amount NUMERIC(38, 18) NOT NULL,
		token_symbol TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		proof TEXT NOT NULL DEFAULT '',
		metadata JSONB,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_sessions_status_expires
		ON payment_sessions (status, expires_at)`,
	`CREATE TABLE IF NOT EXISTS notification_jobs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload JSONB NOT NULL,
		attempt INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL,
		next_run_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT notification_jobs_session_kind UNIQUE (session_id, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_jobs_due
		ON notification_jobs (kind, status, next_run_at)`,
}

// Migrate applies the schema. Statements are idempotent so repeated startup
// is safe.
func (dm *DBManager) Migrate() error {
	for i, stmt := range migrations {
		if _, err := dm.Db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
