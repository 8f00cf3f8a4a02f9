package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema if needed. It is idempotent and only ever runs
// as part of the explicit provisioning step (cmd/provision), never as a side
// effect of starting the API server.
//
// The unique indexes are the authoritative backstop for the application's
// check-then-insert duplicate detection.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS registrations (
			id                     text PRIMARY KEY,
			name                   text NOT NULL,
			email                  text NOT NULL,
			whatsapp_number        text NOT NULL,
			gender                 text NOT NULL,
			cohort                 text NOT NULL,
			adults                 int  NOT NULL DEFAULT 0 CHECK (adults >= 0),
			children               int  NOT NULL DEFAULT 0 CHECK (children >= 0),
			infants                int  NOT NULL DEFAULT 0 CHECK (infants >= 0),
			guests                 jsonb NOT NULL DEFAULT '[]'::jsonb,
			extension              jsonb NOT NULL DEFAULT '{}'::jsonb,
			contribution_amount    int  NOT NULL DEFAULT 0 CHECK (contribution_amount >= 0),
			payment_status         text NOT NULL DEFAULT 'pending'
			                       CHECK (payment_status IN ('pending','completed','failed')),
			payment_transaction_id text NOT NULL,
			verified               boolean NOT NULL DEFAULT false,
			verification_date      timestamptz,
			verified_by            text NOT NULL DEFAULT '',
			is_email_sent          boolean NOT NULL DEFAULT false,
			created_at             timestamptz NOT NULL DEFAULT now(),
			updated_at             timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS registrations_email_uniq
			ON registrations (lower(email))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS registrations_whatsapp_uniq
			ON registrations (whatsapp_number)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS registrations_txn_uniq
			ON registrations (payment_transaction_id)`,
		`CREATE INDEX IF NOT EXISTS registrations_cohort_idx
			ON registrations (cohort)`,
		`CREATE INDEX IF NOT EXISTS registrations_email_unsent_idx
			ON registrations (created_at) WHERE is_email_sent = false`,
		`CREATE TABLE IF NOT EXISTS users (
			id            text PRIMARY KEY,
			username      text NOT NULL UNIQUE,
			password_hash text NOT NULL,
			role          text NOT NULL DEFAULT 'admin',
			created_at    timestamptz NOT NULL DEFAULT now(),
			updated_at    timestamptz NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
