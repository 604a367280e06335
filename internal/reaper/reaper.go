package reaper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ruporhq/rupor/internal/domain"
	"github.com/ruporhq/rupor/internal/mq"
	"github.com/ruporhq/rupor/internal/repo"
	"github.com/ruporhq/rupor/internal/telemetry"
)

// Default configuration values.
const (
	defaultSweepInterval   = time.Minute
	defaultBatchSize       = 100
	defaultMaxAttempts     = 5
	defaultStaleRunningTTL = 10 * time.Minute
	defaultStuckPlannedTTL = 2 * time.Minute
)

// Reaper возвращает в оборот jobs, брошенные умершими процессами.
//
// Три вида зависаний:
//   - RUNNING дольше StaleRunningTTL: worker умер посреди попытки.
//     Job уходит в FAILED (и в DEAD_LETTER, если попытки исчерпаны),
//     откуда его подберёт polling живого worker.
//   - PLANNED дольше StuckPlannedTTL: scheduler умер между коммитом
//     и enqueue. Job переводится в ENQUEUED с повторным событием
//     в очередь.
//   - FAILED с исчерпанными попытками: страховка на случай, если
//     worker умер ровно между последним FAILED и DEAD_LETTER.
type Reaper struct {
	jobs      *repo.JobRepo
	publisher *mq.Publisher

	sweepInterval   time.Duration
	batchSize       int
	maxAttempts     int
	staleRunningTTL time.Duration
	stuckPlannedTTL time.Duration

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Reaper.
type Config struct {
	JobRepo   *repo.JobRepo
	Publisher *mq.Publisher

	SweepInterval   time.Duration // интервал обхода (default: 1m)
	BatchSize       int           // jobs за один обход (default: 100)
	MaxAttempts     int           // порог исчерпания попыток (default: 5)
	StaleRunningTTL time.Duration // RUNNING старше — считается брошенным (default: 10m)
	StuckPlannedTTL time.Duration // PLANNED старше — считается застрявшим (default: 2m)

	Logger *slog.Logger
}

// New создаёт новый Reaper.
func New(cfg Config) *Reaper {
	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	staleRunningTTL := cfg.StaleRunningTTL
	if staleRunningTTL <= 0 {
		staleRunningTTL = defaultStaleRunningTTL
	}

	stuckPlannedTTL := cfg.StuckPlannedTTL
	if stuckPlannedTTL <= 0 {
		stuckPlannedTTL = defaultStuckPlannedTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reaper{
		jobs:            cfg.JobRepo,
		publisher:       cfg.Publisher,
		sweepInterval:   sweepInterval,
		batchSize:       batchSize,
		maxAttempts:     maxAttempts,
		staleRunningTTL: staleRunningTTL,
		stuckPlannedTTL: stuckPlannedTTL,
		logger:          logger,
	}
}

// Start запускает цикл обходов.
func (r *Reaper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	r.logger.Info("starting reaper",
		"sweep_interval", r.sweepInterval,
		"stale_running_ttl", r.staleRunningTTL,
		"stuck_planned_ttl", r.stuckPlannedTTL,
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sweepLoop(ctx)
	}()
}

// Stop останавливает Reaper.
func (r *Reaper) Stop() {
	r.logger.Info("stopping reaper...")

	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.wg.Wait()

	r.logger.Info("reaper stopped")
}

// sweepLoop — цикл обходов.
func (r *Reaper) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	r.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep выполняет один обход всех трёх видов зависаний.
// Ошибки по одному job не прерывают обход.
func (r *Reaper) Sweep(ctx context.Context) {
	now := time.Now()

	r.sweepStaleRunning(ctx, now)
	r.sweepStuckPlanned(ctx, now)
	r.sweepExhaustedFailed(ctx)
}

// sweepStaleRunning хоронит попытки умерших workers.
func (r *Reaper) sweepStaleRunning(ctx context.Context, now time.Time) {
	jobs, err := r.jobs.ListStaleRunning(ctx, now.Add(-r.staleRunningTTL), r.batchSize)
	if err != nil {
		r.logger.Error("failed to list stale running jobs", "error", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]

		failed, err := r.jobs.Transition(ctx, job.ID, domain.JobStatusFailed, "worker died mid-attempt")
		if err != nil {
			// Job успел двинуться сам — не наша забота
			r.logger.Debug("stale job moved concurrently", "job_id", job.ID, "error", err)
			continue
		}

		r.logger.Warn("reaped stale running job",
			"job_id", job.ID,
			"schedule_id", job.ScheduleID,
			"attempt", failed.Attempt,
			"started_at", job.StartedAt,
		)
		telemetry.JobsReaped.WithLabelValues("stale_running").Inc()

		if failed.Attempt >= r.maxAttempts {
			r.deadLetter(ctx, failed)
		}
	}
}

// sweepStuckPlanned доводит jobs, не дошедшие до очереди.
func (r *Reaper) sweepStuckPlanned(ctx context.Context, now time.Time) {
	jobs, err := r.jobs.ListStuckPlanned(ctx, now.Add(-r.stuckPlannedTTL), r.batchSize)
	if err != nil {
		r.logger.Error("failed to list stuck planned jobs", "error", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]

		enqueued, err := r.jobs.Transition(ctx, job.ID, domain.JobStatusEnqueued, "")
		if err != nil {
			r.logger.Debug("stuck job moved concurrently", "job_id", job.ID, "error", err)
			continue
		}

		r.logger.Warn("reaped stuck planned job",
			"job_id", job.ID,
			"schedule_id", job.ScheduleID,
			"planned_at", job.PlannedAt,
		)
		telemetry.JobsReaped.WithLabelValues("stuck_planned").Inc()

		if r.publisher != nil {
			if err := r.publisher.PublishJobEnqueued(ctx, enqueued.ID, enqueued.ScheduleID, enqueued.PlannedAt); err != nil {
				// Worker всё равно увидит ENQUEUED поллингом
				r.logger.Warn("failed to publish job.enqueued",
					"job_id", job.ID,
					"error", err,
				)
			}
		}
	}
}

// sweepExhaustedFailed добивает jobs с исчерпанными попытками.
func (r *Reaper) sweepExhaustedFailed(ctx context.Context) {
	jobs, err := r.jobs.ListExhaustedFailed(ctx, r.maxAttempts, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list exhausted jobs", "error", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]
		r.deadLetter(ctx, job)
		telemetry.JobsReaped.WithLabelValues("exhausted_failed").Inc()
	}
}

// deadLetter переводит job в DEAD_LETTER и публикует событие.
func (r *Reaper) deadLetter(ctx context.Context, job *domain.Job) {
	dead, err := r.jobs.Transition(ctx, job.ID, domain.JobStatusDeadLetter, "")
	if err != nil {
		r.logger.Debug("job moved concurrently before dead letter", "job_id", job.ID, "error", err)
		return
	}

	telemetry.JobsDeadLettered.Inc()
	r.logger.Error("job dead lettered by reaper",
		"job_id", dead.ID,
		"schedule_id", dead.ScheduleID,
		"attempt", dead.Attempt,
		"error", dead.Error,
	)

	if r.publisher != nil {
		payload := mq.JobCompletedPayload{
			JobID:      dead.ID,
			ScheduleID: dead.ScheduleID,
			Status:     string(dead.Status),
			Attempt:    dead.Attempt,
			Error:      dead.Error,
		}
		if err := r.publisher.PublishJobDeadLettered(ctx, payload); err != nil {
			r.logger.Warn("failed to publish job.dead_lettered",
				"job_id", dead.ID,
				"error", err,
			)
		}
	}
}
