package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations — DDL схемы в порядке применения. Все выражения
// идемпотентны, Migrate можно звать при каждом старте процесса.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id         UUID PRIMARY KEY,
		text       TEXT NOT NULL,
		media_refs TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS templates (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS variants (
		id          UUID PRIMARY KEY,
		template_id UUID NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		text        TEXT NOT NULL,
		weight      INTEGER NOT NULL DEFAULT 1,
		active      BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_variants_template
		ON variants (template_id) WHERE active`,

	`CREATE TABLE IF NOT EXISTS schedules (
		id               UUID PRIMARY KEY,
		name             TEXT,
		kind             TEXT NOT NULL,
		expr             TEXT NOT NULL,
		timezone         TEXT NOT NULL DEFAULT 'UTC',
		post_id          UUID REFERENCES posts(id),
		template_id      UUID REFERENCES templates(id),
		selection_policy TEXT,
		no_repeat_window INTEGER NOT NULL DEFAULT 0,
		no_repeat_scope  TEXT,
		last_variant_pos INTEGER,
		enabled          BOOLEAN NOT NULL DEFAULT true,
		next_run_at      TIMESTAMPTZ,
		last_run_at      TIMESTAMPTZ,
		last_job_id      UUID,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_schedules_due
		ON schedules (next_run_at) WHERE enabled AND next_run_at IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id               UUID PRIMARY KEY,
		schedule_id      UUID NOT NULL REFERENCES schedules(id),
		planned_at       TIMESTAMPTZ NOT NULL,
		variant_id       UUID,
		post_id          UUID,
		selection_policy TEXT,
		selection_seed   BIGINT,
		status           TEXT NOT NULL DEFAULT 'PLANNED',
		attempt          INTEGER NOT NULL DEFAULT 0,
		enqueued_at      TIMESTAMPTZ,
		started_at       TIMESTAMPTZ,
		finished_at      TIMESTAMPTZ,
		error            TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (schedule_id, planned_at)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_status
		ON jobs (status, updated_at)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_schedule
		ON jobs (schedule_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS selection_history (
		id          BIGSERIAL PRIMARY KEY,
		schedule_id UUID NOT NULL,
		template_id UUID NOT NULL,
		variant_id  UUID NOT NULL,
		job_id      UUID NOT NULL,
		planned_at  TIMESTAMPTZ NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_history_template
		ON selection_history (template_id, planned_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_history_schedule
		ON selection_history (schedule_id, planned_at DESC)`,

	`CREATE TABLE IF NOT EXISTS published_records (
		id           UUID PRIMARY KEY,
		job_id       UUID NOT NULL UNIQUE,
		schedule_id  UUID NOT NULL,
		variant_id   UUID,
		external_id  TEXT,
		text         TEXT NOT NULL,
		published_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_published_at
		ON published_records (published_at DESC)`,
}

// Migrate приводит схему БД к актуальному виду.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}
