package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ruporhq/rupor/internal/domain"
)

// ScheduleRepo — репозиторий для работы с schedules.
type ScheduleRepo struct {
	db DB
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(db DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// WithTx возвращает копию репозитория, выполняющую запросы внутри tx.
func (r *ScheduleRepo) WithTx(tx pgx.Tx) *ScheduleRepo {
	return &ScheduleRepo{db: tx}
}

// Create создаёт новый schedule.
func (r *ScheduleRepo) Create(ctx context.Context, schedule *domain.Schedule) error {
	query := `
		INSERT INTO schedules (id, name, kind, expr, timezone, post_id, template_id,
		                       selection_policy, no_repeat_window, no_repeat_scope,
		                       last_variant_pos, enabled, next_run_at, last_run_at,
		                       last_job_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.Exec(ctx, query,
		schedule.ID,
		nullString(schedule.Name),
		schedule.Kind,
		schedule.Expr,
		schedule.Timezone,
		schedule.PostID,
		schedule.TemplateID,
		nullString(string(schedule.SelectionPolicy)),
		schedule.NoRepeatWindow,
		nullString(string(schedule.NoRepeatScope)),
		schedule.LastVariantPos,
		schedule.Enabled,
		schedule.NextRunAt,
		schedule.LastRunAt,
		schedule.LastJobID,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetByID возвращает schedule по ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	query := `
		SELECT id, name, kind, expr, timezone, post_id, template_id,
		       selection_policy, no_repeat_window, no_repeat_scope, last_variant_pos,
		       enabled, next_run_at, last_run_at, last_job_id, created_at, updated_at
		FROM schedules
		WHERE id = $1
	`
	return r.scanSchedule(r.db.QueryRow(ctx, query, id))
}

// List возвращает список schedules с фильтрацией.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error) {
	query := `
		SELECT id, name, kind, expr, timezone, post_id, template_id,
		       selection_policy, no_repeat_window, no_repeat_scope, last_variant_pos,
		       enabled, next_run_at, last_run_at, last_job_id, created_at, updated_at
		FROM schedules
		WHERE ($1::boolean IS NULL OR enabled = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, filter.Enabled, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		schedule, err := r.scanScheduleFromRows(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, rows.Err()
}

// ClaimDue захватывает одно due-расписание под обработку.
//
// Вызывается внутри транзакции тика: FOR UPDATE SKIP LOCKED позволяет
// нескольким экземплярам scheduler разбирать расписания без конфликтов.
// Расписания из excluded пропускаются (уже обработанные или упавшие
// в текущем тике). Если готовых нет — ErrNotFound.
func (r *ScheduleRepo) ClaimDue(ctx context.Context, now time.Time, excluded []uuid.UUID) (*domain.Schedule, error) {
	if excluded == nil {
		// nil кодируется как NULL и ломает ANY
		excluded = []uuid.UUID{}
	}
	query := `
		SELECT id, name, kind, expr, timezone, post_id, template_id,
		       selection_policy, no_repeat_window, no_repeat_scope, last_variant_pos,
		       enabled, next_run_at, last_run_at, last_job_id, created_at, updated_at
		FROM schedules
		WHERE enabled = true
		  AND next_run_at IS NOT NULL
		  AND next_run_at <= $1
		  AND NOT (id = ANY($2))
		ORDER BY next_run_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`
	return r.scanSchedule(r.db.QueryRow(ctx, query, now, excluded))
}

// ListUninitialized возвращает включённые schedules без next_run_at.
// Такие появляются после создания или повторного включения: тик
// инициализирует их перед основным проходом.
func (r *ScheduleRepo) ListUninitialized(ctx context.Context, limit int) ([]domain.Schedule, error) {
	query := `
		SELECT id, name, kind, expr, timezone, post_id, template_id,
		       selection_policy, no_repeat_window, no_repeat_scope, last_variant_pos,
		       enabled, next_run_at, last_run_at, last_job_id, created_at, updated_at
		FROM schedules
		WHERE enabled = true
		  AND next_run_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list uninitialized schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		schedule, err := r.scanScheduleFromRows(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, rows.Err()
}

// Update обновляет schedule.
func (r *ScheduleRepo) Update(ctx context.Context, schedule *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET name = $2, kind = $3, expr = $4, timezone = $5,
		    selection_policy = $6, no_repeat_window = $7, no_repeat_scope = $8,
		    last_variant_pos = $9, enabled = $10, next_run_at = $11,
		    last_run_at = $12, last_job_id = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		schedule.ID,
		nullString(schedule.Name),
		schedule.Kind,
		schedule.Expr,
		schedule.Timezone,
		nullString(string(schedule.SelectionPolicy)),
		schedule.NoRepeatWindow,
		nullString(string(schedule.NoRepeatScope)),
		schedule.LastVariantPos,
		schedule.Enabled,
		schedule.NextRunAt,
		schedule.LastRunAt,
		schedule.LastJobID,
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled включает/выключает schedule. При выключении next_run_at
// сбрасывается; при включении остаётся NULL до инициализации тиком,
// чтобы не публиковать накопившиеся за простой срабатывания.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result, err := r.db.Exec(ctx, `
		UPDATE schedules
		SET enabled = $2,
		    next_run_at = CASE WHEN $2 THEN next_run_at ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, enabled)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOverdue возвращает число расписаний, чьё next_run_at отстаёт
// от now больше чем на grace. Ненулевое значение — признак того, что
// scheduler стоит или не успевает.
func (r *ScheduleRepo) CountOverdue(ctx context.Context, now time.Time, grace time.Duration) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM schedules
		WHERE enabled = true
		  AND next_run_at IS NOT NULL
		  AND next_run_at <= $1
	`, now.Add(-grace)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overdue schedules: %w", err)
	}
	return count, nil
}

// --- Helpers ---

// ScheduleFilter — параметры фильтрации schedules.
type ScheduleFilter struct {
	Enabled *bool
	Limit   int
	Offset  int
}

func (r *ScheduleRepo) scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	var name, policy, scope *string

	err := row.Scan(
		&s.ID,
		&name,
		&s.Kind,
		&s.Expr,
		&s.Timezone,
		&s.PostID,
		&s.TemplateID,
		&policy,
		&s.NoRepeatWindow,
		&scope,
		&s.LastVariantPos,
		&s.Enabled,
		&s.NextRunAt,
		&s.LastRunAt,
		&s.LastJobID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	if name != nil {
		s.Name = *name
	}
	if policy != nil {
		s.SelectionPolicy = domain.SelectionPolicy(*policy)
	}
	if scope != nil {
		s.NoRepeatScope = domain.NoRepeatScope(*scope)
	}
	return &s, nil
}

func (r *ScheduleRepo) scanScheduleFromRows(rows pgx.Rows) (*domain.Schedule, error) {
	var s domain.Schedule
	var name, policy, scope *string

	err := rows.Scan(
		&s.ID,
		&name,
		&s.Kind,
		&s.Expr,
		&s.Timezone,
		&s.PostID,
		&s.TemplateID,
		&policy,
		&s.NoRepeatWindow,
		&scope,
		&s.LastVariantPos,
		&s.Enabled,
		&s.NextRunAt,
		&s.LastRunAt,
		&s.LastJobID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	if name != nil {
		s.Name = *name
	}
	if policy != nil {
		s.SelectionPolicy = domain.SelectionPolicy(*policy)
	}
	if scope != nil {
		s.NoRepeatScope = domain.NoRepeatScope(*scope)
	}
	return &s, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
