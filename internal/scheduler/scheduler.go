package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ruporhq/rupor/internal/dedupe"
	"github.com/ruporhq/rupor/internal/domain"
	"github.com/ruporhq/rupor/internal/mq"
	"github.com/ruporhq/rupor/internal/recurrence"
	"github.com/ruporhq/rupor/internal/repo"
	"github.com/ruporhq/rupor/internal/selection"
	"github.com/ruporhq/rupor/internal/telemetry"
)

// Scheduler — планировщик, превращающий due schedules в jobs.
type Scheduler struct {
	db        repo.DB
	schedules *repo.ScheduleRepo
	jobs      *repo.JobRepo
	templates *repo.TemplateRepo
	history   *repo.HistoryRepo
	resolver  *recurrence.Resolver
	guard     dedupe.Guard
	publisher *mq.Publisher
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	DB           repo.DB
	ScheduleRepo *repo.ScheduleRepo
	JobRepo      *repo.JobRepo
	TemplateRepo *repo.TemplateRepo
	HistoryRepo  *repo.HistoryRepo
	Resolver     *recurrence.Resolver
	Guard        dedupe.Guard
	Publisher    *mq.Publisher
	Logger       *slog.Logger
	BatchSize    int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	guard := cfg.Guard
	if guard == nil {
		guard = dedupe.NopGuard{}
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = recurrence.NewResolver(recurrence.DefaultCacheSize)
	}

	return &Scheduler{
		db:        cfg.DB,
		schedules: cfg.ScheduleRepo,
		jobs:      cfg.JobRepo,
		templates: cfg.TemplateRepo,
		history:   cfg.HistoryRepo,
		resolver:  resolver,
		guard:     guard,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Инициализирует schedules без next_run_at
// 2. По одному захватывает due schedules (FOR UPDATE SKIP LOCKED)
// 3. Для каждого создаёт job и переносит next_run_at на следующее
//    срабатывание
// 4. Публикует job.enqueued в RabbitMQ
//
// Ошибки одного schedule не блокируют обработку остальных. Каждый
// schedule за тик обрабатывается не более одного раза: при отставании
// пропущенные срабатывания догоняются по одному на тик.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now().UTC()
	telemetry.SchedulerTicks.Inc()

	if err := s.initSchedules(ctx, now); err != nil {
		s.logger.Error("failed to initialize schedules", "error", err)
		// Инициализация не блокирует обработку уже готовых schedules
	}

	var created, duplicates, skipped int
	excluded := make([]uuid.UUID, 0, s.batchSize)

	for len(excluded) < s.batchSize {
		claimed, outcome, err := s.processNext(ctx, now, excluded)
		if claimed == nil {
			if err != nil {
				s.logger.Error("failed to claim due schedule", "error", err)
			}
			// Due schedules закончились
			break
		}
		excluded = append(excluded, *claimed)

		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", *claimed,
				"error", err,
			)
			continue
		}
		switch outcome {
		case outcomeCreated:
			created++
		case outcomeDuplicate:
			duplicates++
		case outcomeSkipped:
			skipped++
		}
	}

	if len(excluded) > 0 {
		s.logger.Info("scheduler tick completed",
			"claimed", len(excluded),
			"jobs_created", created,
			"duplicates", duplicates,
			"skipped", skipped,
		)
	}

	return nil
}

// initSchedules проставляет next_run_at всем включённым schedules,
// у которых он ещё не вычислен: новым и только что включённым.
// Расписания с исчерпанным правилом или невалидным выражением
// выключаются сразу.
//
// Тик идемпотентен и здесь: два экземпляра, инициализирующие один
// schedule, вычислят одинаковый next_run_at.
func (s *Scheduler) initSchedules(ctx context.Context, now time.Time) error {
	schedules, err := s.schedules.ListUninitialized(ctx, s.batchSize)
	if err != nil {
		return fmt.Errorf("list uninitialized: %w", err)
	}

	for i := range schedules {
		sched := &schedules[i]

		next, ok, err := s.resolver.Next(sched.ID, recurrence.SpecFor(sched), now)
		switch {
		case err != nil:
			s.logger.Warn("schedule has invalid recurrence, disabling",
				"schedule_id", sched.ID,
				"kind", sched.Kind,
				"error", err,
			)
			telemetry.SchedulesExhausted.Inc()
			sched.Disable()
		case !ok:
			s.logger.Info("schedule already exhausted, disabling",
				"schedule_id", sched.ID,
				"kind", sched.Kind,
			)
			telemetry.SchedulesExhausted.Inc()
			sched.Disable()
		default:
			sched.AdvanceTo(next)
			s.logger.Debug("schedule initialized",
				"schedule_id", sched.ID,
				"next_run_at", next,
			)
		}

		if err := s.schedules.Update(ctx, sched); err != nil {
			s.logger.Error("failed to update schedule after init",
				"schedule_id", sched.ID,
				"error", err,
			)
		}
	}

	return nil
}

// Результат обработки одного захваченного schedule.
type outcome int

const (
	outcomeCreated outcome = iota
	outcomeDuplicate
	outcomeSkipped
)

// processNext захватывает один due schedule и обрабатывает его в
// транзакции. Возвращает id захваченного schedule (nil, если due
// больше нет) и итог обработки.
//
// Вся работа по срабатыванию — создание job, запись истории выбора,
// перенос next_run_at — коммитится атомарно. Падение между шагами
// откатывает всё, и срабатывание повторит следующий тик.
func (s *Scheduler) processNext(ctx context.Context, now time.Time, excluded []uuid.UUID) (*uuid.UUID, outcome, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, outcomeSkipped, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	scheduleRepo := s.schedules.WithTx(tx)

	sched, err := scheduleRepo.ClaimDue(ctx, now, excluded)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, outcomeSkipped, nil
		}
		return nil, outcomeSkipped, fmt.Errorf("claim due schedule: %w", err)
	}

	plannedAt := sched.NextRunAt.UTC()

	// Advisory-замок против одновременной обработки срабатывания
	// другим экземпляром. Отказ Redis не останавливает планирование:
	// дубликат всё равно отсечёт уникальный индекс jobs.
	acquired, err := s.guard.Acquire(ctx, sched.ID, plannedAt)
	if err != nil {
		s.logger.Warn("dedupe guard unavailable, relying on unique index",
			"schedule_id", sched.ID,
			"error", err,
		)
		acquired = true
	}
	if !acquired {
		s.logger.Debug("occurrence held by another scheduler, skipping",
			"schedule_id", sched.ID,
			"planned_at", plannedAt,
		)
		return &sched.ID, outcomeSkipped, nil
	}
	defer s.guard.Release(ctx, sched.ID, plannedAt)

	res, err := s.fireSchedule(ctx, tx, sched, plannedAt, now)
	if err != nil {
		return &sched.ID, outcomeSkipped, err
	}

	if err := tx.Commit(ctx); err != nil {
		return &sched.ID, outcomeSkipped, fmt.Errorf("commit tx: %w", err)
	}

	// После коммита job виден всем. Очередь — ускоритель доставки,
	// её недоступность не отменяет срабатывание: worker подберёт job
	// поллингом, а застрявший PLANNED подтолкнёт reaper.
	if res.job != nil {
		s.enqueueJob(ctx, res.job)
	}

	switch {
	case res.job != nil:
		telemetry.JobsPlanned.Inc()
		return &sched.ID, outcomeCreated, nil
	case res.duplicate:
		telemetry.DuplicatesSkipped.Inc()
		return &sched.ID, outcomeDuplicate, nil
	default:
		return &sched.ID, outcomeSkipped, nil
	}
}

// Результат fireSchedule: созданный job (nil, если срабатывание
// пропущено) и признак «job уже существовал».
type fireResult struct {
	job       *domain.Job
	duplicate bool
}

// fireSchedule выполняет одно срабатывание schedule внутри транзакции:
// выбирает контент, создаёт job в PLANNED и переносит next_run_at.
//
// Срабатывание без job тоже двигает расписание вперёд: пустой пул
// вариантов и уже существующий job не должны зацикливать тик на одном
// и том же occurrence.
func (s *Scheduler) fireSchedule(ctx context.Context, tx pgx.Tx, sched *domain.Schedule, plannedAt, now time.Time) (fireResult, error) {
	var res fireResult

	job := &domain.Job{
		ID:         uuid.New(),
		ScheduleID: sched.ID,
		PlannedAt:  plannedAt,
		PostID:     sched.PostID,
		Status:     domain.JobStatusPlanned,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var sel *selection.Result
	if sched.IsTemplateBased() {
		var skip bool
		var err error
		sel, skip, err = s.selectVariant(ctx, sched, plannedAt)
		if err != nil {
			return res, err
		}
		if skip {
			// Нечего публиковать. Пропускаем occurrence, но расписание
			// двигаем, иначе тик будет крутиться на нём вечно.
			s.logger.Warn("no eligible variants, skipping occurrence",
				"schedule_id", sched.ID,
				"template_id", *sched.TemplateID,
				"planned_at", plannedAt,
			)
			if err := s.advance(ctx, s.schedules.WithTx(tx), sched, plannedAt); err != nil {
				return res, err
			}
			return res, nil
		}
		job.VariantID = &sel.Variant.ID
		job.SelectionPolicy = sched.SelectionPolicy
		job.SelectionSeed = &sel.Seed
	}

	jobRepo := s.jobs.WithTx(tx)
	if err := jobRepo.Create(ctx, job); err != nil {
		if errors.Is(err, repo.ErrDuplicateJob) {
			// Job на это срабатывание уже создан другим экземпляром.
			// Не ошибка: двигаем расписание и идём дальше.
			s.logger.Debug("job already exists for occurrence",
				"schedule_id", sched.ID,
				"planned_at", plannedAt,
			)
			res.duplicate = true
			if err := s.advance(ctx, s.schedules.WithTx(tx), sched, plannedAt); err != nil {
				return res, err
			}
			return res, nil
		}
		return res, fmt.Errorf("create job: %w", err)
	}

	// Окно неповторения читает историю выбора, поэтому она пишется
	// в той же транзакции, что и job.
	if sel != nil && sched.SelectionPolicy == domain.SelectionNoRepeat {
		entry := &domain.SelectionHistoryEntry{
			ScheduleID: sched.ID,
			TemplateID: *sched.TemplateID,
			VariantID:  sel.Variant.ID,
			JobID:      job.ID,
			PlannedAt:  plannedAt,
			RecordedAt: now,
		}
		if err := s.history.WithTx(tx).Record(ctx, entry); err != nil {
			return res, fmt.Errorf("record selection: %w", err)
		}
	}
	if sel != nil && sel.Cursor >= 0 {
		sched.SetCursor(sel.Cursor)
	}

	sched.RecordFiring(job.ID, now)
	if err := s.advance(ctx, s.schedules.WithTx(tx), sched, plannedAt); err != nil {
		return res, err
	}

	s.logger.Info("created job from schedule",
		"job_id", job.ID,
		"schedule_id", sched.ID,
		"planned_at", plannedAt,
		"variant_id", job.VariantID,
	)

	res.job = job
	return res, nil
}

// selectVariant выбирает вариант контента для срабатывания.
// Возвращает skip=true, когда в шаблоне нет пригодных вариантов.
func (s *Scheduler) selectVariant(ctx context.Context, sched *domain.Schedule, plannedAt time.Time) (*selection.Result, bool, error) {
	variants, err := s.templates.ListActiveVariants(ctx, *sched.TemplateID)
	if err != nil {
		return nil, false, fmt.Errorf("list variants: %w", err)
	}

	pool := selection.Eligible(variants)
	if len(pool) == 0 {
		return nil, true, nil
	}

	var recent []uuid.UUID
	if sched.SelectionPolicy == domain.SelectionNoRepeat && sched.NoRepeatWindow > 0 {
		var scopeID *uuid.UUID
		if sched.NoRepeatScope != domain.ScopeTemplate {
			scopeID = &sched.ID
		}
		recent, err = s.history.RecentVariantIDs(ctx, *sched.TemplateID, scopeID, sched.NoRepeatWindow)
		if err != nil {
			return nil, false, fmt.Errorf("recent variants: %w", err)
		}
	}

	sel, err := selection.Select(pool, selection.Input{
		ScheduleID: sched.ID,
		PlannedAt:  plannedAt,
		Policy:     sched.SelectionPolicy,
		Cursor:     sched.Cursor(),
		Recent:     recent,
	})
	if err != nil {
		if errors.Is(err, selection.ErrNoEligibleVariants) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("select variant: %w", err)
	}
	return sel, false, nil
}

// advance переносит next_run_at на следующее срабатывание после fired.
// Исчерпанное правило и невалидное выражение выключают расписание.
func (s *Scheduler) advance(ctx context.Context, scheduleRepo *repo.ScheduleRepo, sched *domain.Schedule, fired time.Time) error {
	next, ok, err := s.resolver.Next(sched.ID, recurrence.SpecFor(sched), fired)
	switch {
	case err != nil:
		s.logger.Warn("recurrence became invalid, disabling schedule",
			"schedule_id", sched.ID,
			"error", err,
		)
		telemetry.SchedulesExhausted.Inc()
		sched.Disable()
	case !ok:
		s.logger.Info("schedule exhausted, disabling",
			"schedule_id", sched.ID,
			"kind", sched.Kind,
		)
		telemetry.SchedulesExhausted.Inc()
		sched.Disable()
	default:
		sched.AdvanceTo(next)
	}

	if err := scheduleRepo.Update(ctx, sched); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// enqueueJob переводит job в ENQUEUED и публикует событие в очередь.
// Оба шага не фатальны: job уже создан в БД.
func (s *Scheduler) enqueueJob(ctx context.Context, job *domain.Job) {
	if _, err := s.jobs.Transition(ctx, job.ID, domain.JobStatusEnqueued, ""); err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			// Кто-то уже увёл job дальше по конвейеру
			s.logger.Debug("job already advanced", "job_id", job.ID, "error", err)
			return
		}
		s.logger.Warn("failed to enqueue job, reaper will retry",
			"job_id", job.ID,
			"error", err,
		)
		return
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJobEnqueued(ctx, job.ID, job.ScheduleID, job.PlannedAt); err != nil {
		// Не фатальная ошибка — job уже в ENQUEUED,
		// worker подберёт его поллингом
		s.logger.Warn("failed to publish job.enqueued",
			"job_id", job.ID,
			"error", err,
		)
	}
}
