package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"repurposer/domain/model"

	"github.com/lib/pq"
)

var tenantTables = []string{
	`CREATE TABLE IF NOT EXISTS %[1]s.users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		tier TEXT NOT NULL DEFAULT 'free',
		repurposes_this_month INTEGER NOT NULL DEFAULT 0,
		usage_reset_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.brand_voices (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		sample_posts TEXT[] NOT NULL DEFAULT '{}',
		generated_prompt TEXT,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.content_sources (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		url TEXT,
		title TEXT NOT NULL,
		raw_text TEXT,
		is_processed BOOLEAN NOT NULL DEFAULT FALSE,
		processing_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.repurposed_posts (
		id BIGSERIAL PRIMARY KEY,
		source_id BIGINT,
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		brand_voice_id BIGINT,
		hook TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		hashtags TEXT[] NOT NULL DEFAULT '{}',
		thread_posts TEXT[],
		status TEXT NOT NULL,
		error_message TEXT,
		scheduled_for TIMESTAMPTZ,
		published_at TIMESTAMPTZ,
		platform_post_id TEXT,
		platform_post_url TEXT,
		media_key TEXT,
		media_url TEXT,
		media_content_type TEXT,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		recurrence_pattern TEXT,
		recurrence_days BIGINT[],
		recurrence_time TEXT,
		recurrence_timezone TEXT,
		last_recurrence_created TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.social_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		platform_user_id TEXT NOT NULL,
		platform_username TEXT,
		display_name TEXT,
		profile_url TEXT,
		avatar_url TEXT,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		token_expires_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, platform, platform_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.scheduled_posts (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		post_id BIGINT,
		prompt TEXT,
		platforms TEXT[] NOT NULL DEFAULT '{}',
		brand_voice_id BIGINT,
		frequency TEXT NOT NULL DEFAULT 'once',
		scheduled_time TIMESTAMPTZ NOT NULL,
		next_run TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		status TEXT NOT NULL DEFAULT 'pending',
		run_count INTEGER NOT NULL DEFAULT 0,
		last_run TIMESTAMPTZ,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS %[1]s.posting_logs (
		id BIGSERIAL PRIMARY KEY,
		social_account_id BIGINT,
		post_id BIGINT NOT NULL,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		error_class TEXT NOT NULL DEFAULT '',
		error_message TEXT,
		platform_response TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS repurposed_posts_due_idx ON %[1]s.repurposed_posts (status, scheduled_for)`,
	`CREATE INDEX IF NOT EXISTS repurposed_posts_recurring_idx ON %[1]s.repurposed_posts (is_recurring) WHERE is_recurring`,
	`CREATE INDEX IF NOT EXISTS scheduled_posts_due_idx ON %[1]s.scheduled_posts (is_active, status, next_run)`,
	`CREATE INDEX IF NOT EXISTS posting_logs_post_idx ON %[1]s.posting_logs (post_id, created_at)`,
}

// EnsureTenantSchema creates the tenant schema and its tables if missing, then
// adds columns introduced after the first rollout. Safe to call at startup.
func EnsureTenantSchema(db *sql.DB, tenant model.Tenant) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := tenant.Schema
	if schema == "" {
		schema = "public"
	}
	quoted := pq.QuoteIdentifier(schema)
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoted); err != nil {
		return fmt.Errorf("creating schema %s failed: %w", schema, err)
	}
	for _, ddl := range tenantTables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(ddl, quoted)); err != nil {
			return fmt.Errorf("ensuring tenant %s tables failed: %w", schema, err)
		}
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"repurposed_posts", "recurrence_timezone", "ALTER TABLE %s.repurposed_posts ADD COLUMN recurrence_timezone TEXT"},
		{"posting_logs", "error_class", "ALTER TABLE %s.posting_logs ADD COLUMN error_class TEXT NOT NULL DEFAULT ''"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, schema, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, fmt.Sprintf(c.ddl, quoted)); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

// EnsureTenantCatalog creates the shared tenant registry in the public schema.
func EnsureTenantCatalog(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS public.tenants (
		schema_name TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func columnExists(ctx context.Context, db *sql.DB, schema, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_schema=$1 AND table_name=$2 AND column_name=$3`, schema, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
