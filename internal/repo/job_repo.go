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

// JobRepo — репозиторий для работы с jobs.
type JobRepo struct {
	db DB
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(db DB) *JobRepo {
	return &JobRepo{db: db}
}

// WithTx возвращает копию репозитория, выполняющую запросы внутри tx.
func (r *JobRepo) WithTx(tx pgx.Tx) *JobRepo {
	return &JobRepo{db: tx}
}

// Create создаёт новый job.
//
// Уникальность (schedule_id, planned_at) — граница at-most-once:
// повторная вставка того же срабатывания возвращает ErrDuplicateJob,
// и вызывающий просто пропускает уже обработанное событие.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (id, schedule_id, planned_at, variant_id, post_id,
		                  selection_policy, selection_seed, status, attempt,
		                  enqueued_at, started_at, finished_at, error,
		                  created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.ScheduleID,
		job.PlannedAt,
		job.VariantID,
		job.PostID,
		nullString(string(job.SelectionPolicy)),
		job.SelectionSeed,
		job.Status,
		job.Attempt,
		job.EnqueuedAt,
		job.StartedAt,
		job.FinishedAt,
		nullString(job.Error),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateJob
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`
	return r.scanJob(r.db.QueryRow(ctx, query, id))
}

// Transition переводит job в статус target с блокировкой строки.
//
// Проверка допустимости перехода и побочные эффекты (метки времени,
// attempt, текст ошибки) выполняются доменной моделью под FOR UPDATE,
// поэтому конкурирующие переходы сериализуются: проигравший получает
// *domain.TransitionError и трактует его как "job уже обработан".
func (r *JobRepo) Transition(ctx context.Context, id uuid.UUID, target domain.JobStatus, errMsg string) (*domain.Job, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE id = $1
		FOR UPDATE
	`
	job, err := r.scanJob(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := job.TransitionTo(target, errMsg); err != nil {
		return nil, err
	}

	if err := (&JobRepo{db: tx}).Update(ctx, job); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return job, nil
}

// Update обновляет job.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET status = $2, attempt = $3, enqueued_at = $4, started_at = $5,
		    finished_at = $6, error = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		job.ID,
		job.Status,
		job.Attempt,
		job.EnqueuedAt,
		job.StartedAt,
		job.FinishedAt,
		nullString(job.Error),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает список jobs с фильтрацией.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE ($1::uuid IS NULL OR schedule_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query,
		nullUUID(filter.ScheduleID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	return r.collectJobs(rows)
}

// ListEnqueued возвращает jobs в статусе ENQUEUED (для polling-воркера).
func (r *JobRepo) ListEnqueued(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE status = 'ENQUEUED'
		ORDER BY planned_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list enqueued jobs: %w", err)
	}
	defer rows.Close()

	return r.collectJobs(rows)
}

// ListRetryable возвращает упавшие jobs с оставшимися попытками.
// Готовность по backoff воркер проверяет сам по finished_at.
func (r *JobRepo) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE status = 'FAILED'
		  AND attempt < $1
		ORDER BY finished_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable jobs: %w", err)
	}
	defer rows.Close()

	return r.collectJobs(rows)
}

// ListStaleRunning возвращает jobs, выполняющиеся дольше дедлайна.
// Такие остаются после падения воркера: процесс умер, статус завис.
func (r *JobRepo) ListStaleRunning(ctx context.Context, olderThan time.Time, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE status = 'RUNNING'
		  AND started_at < $1
		ORDER BY started_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale running jobs: %w", err)
	}
	defer rows.Close()

	return r.collectJobs(rows)
}

// ListStuckPlanned возвращает jobs, застрявшие в PLANNED.
// Окно между созданием job и переводом в ENQUEUED — миллисекунды;
// всё, что висит дольше, означает упавший между шагами scheduler.
func (r *JobRepo) ListStuckPlanned(ctx context.Context, olderThan time.Time, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE status = 'PLANNED'
		  AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck planned jobs: %w", err)
	}
	defer rows.Close()

	return r.collectJobs(rows)
}

// ListExhaustedFailed возвращает jobs без оставшихся попыток.
func (r *JobRepo) ListExhaustedFailed(ctx context.Context, maxAttempts, limit int) ([]domain.Job, error) {
	query := `
		SELECT id, schedule_id, planned_at, variant_id, post_id,
		       selection_policy, selection_seed, status, attempt,
		       enqueued_at, started_at, finished_at, error, created_at, updated_at
		FROM jobs
		WHERE status = 'FAILED'
		  AND attempt >= $1
		ORDER BY finished_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list exhausted jobs: %w", err)
	}
	defer rows.Close()

	return r.collectJobs(rows)
}

// CountByStatus возвращает количество jobs по каждому статусу.
func (r *JobRepo) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[domain.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

// --- Helpers ---

// JobFilter — параметры фильтрации jobs.
type JobFilter struct {
	ScheduleID *uuid.UUID
	Status     domain.JobStatus
	Limit      int
	Offset     int
}

func (r *JobRepo) collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *JobRepo) scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	var policy, jobError *string

	err := row.Scan(
		&j.ID,
		&j.ScheduleID,
		&j.PlannedAt,
		&j.VariantID,
		&j.PostID,
		&policy,
		&j.SelectionSeed,
		&j.Status,
		&j.Attempt,
		&j.EnqueuedAt,
		&j.StartedAt,
		&j.FinishedAt,
		&jobError,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if policy != nil {
		j.SelectionPolicy = domain.SelectionPolicy(*policy)
	}
	if jobError != nil {
		j.Error = *jobError
	}
	return &j, nil
}

func (r *JobRepo) scanJobFromRows(rows pgx.Rows) (*domain.Job, error) {
	var j domain.Job
	var policy, jobError *string

	err := rows.Scan(
		&j.ID,
		&j.ScheduleID,
		&j.PlannedAt,
		&j.VariantID,
		&j.PostID,
		&policy,
		&j.SelectionSeed,
		&j.Status,
		&j.Attempt,
		&j.EnqueuedAt,
		&j.StartedAt,
		&j.FinishedAt,
		&jobError,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if policy != nil {
		j.SelectionPolicy = domain.SelectionPolicy(*policy)
	}
	if jobError != nil {
		j.Error = *jobError
	}
	return &j, nil
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
