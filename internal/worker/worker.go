package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ruporhq/rupor/internal/domain"
	"github.com/ruporhq/rupor/internal/mq"
	"github.com/ruporhq/rupor/internal/publish"
	"github.com/ruporhq/rupor/internal/repo"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
	defaultMaxAttempts  = 5

	// nearDupSample — сколько последних публикаций сравнивать
	// с новым текстом.
	nearDupSample = 50
)

// Worker публикует jobs.
//
// Worker — stateless компонент системы, который:
//   - Получает jobs из очереди RabbitMQ (event-driven)
//   - Периодически проверяет enqueued и retryable jobs в БД
//     (polling fallback)
//   - Раскрывает подстановки и валидирует итоговый текст
//   - Вызывает внешний канал публикации
//   - Реализует retry с exponential backoff и dead-lettering
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди. Гонку за job выигрывает тот,
// чей переход ENQUEUED -> RUNNING прошёл первым; остальные видят
// TransitionError и отступают.
type Worker struct {
	// Repositories
	db        repo.DB
	jobs      *repo.JobRepo
	schedules *repo.ScheduleRepo
	templates *repo.TemplateRepo
	posts     *repo.PostRepo
	published *repo.PublishedRepo

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection

	// Внешний канал публикации
	pub publish.Publisher

	// Consumer
	consumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	backoff      BackoffConfig
	templateEnv  map[string]string

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Repositories
	DB            repo.DB
	JobRepo       *repo.JobRepo
	ScheduleRepo  *repo.ScheduleRepo
	TemplateRepo  *repo.TemplateRepo
	PostRepo      *repo.PostRepo
	PublishedRepo *repo.PublishedRepo

	// MQ
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Publisher — внешний канал публикации.
	Pub publish.Publisher

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество jobs за один poll (default: 50)

	// MaxAttempts — сколько раз пробовать публикацию (default: 5).
	MaxAttempts int

	// Backoff — задержки между повторами.
	Backoff BackoffConfig

	// TemplateEnv — значения для {{ .Env }} в подстановках.
	TemplateEnv map[string]string

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		db:           cfg.DB,
		jobs:         cfg.JobRepo,
		schedules:    cfg.ScheduleRepo,
		templates:    cfg.TemplateRepo,
		posts:        cfg.PostRepo,
		published:    cfg.PublishedRepo,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		pub:          cfg.Pub,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		backoff:      cfg.Backoff.withDefaults(),
		templateEnv:  cfg.TemplateEnv,
		logger:       logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Consumer для jobs.enqueued
//   - Polling горутину для fallback
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"max_attempts", w.maxAttempts,
	)

	// Consumer работает только при настроенном RabbitMQ;
	// без него worker живёт на одном polling
	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueJobsEnqueued),
			Handler:  w.handleJobEnqueued,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("job consumer error", "error", err)
			}
		}()
	}

	// Запускаем polling
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем jobs, созданные пока были выключены)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling: свежие enqueued jobs плюс
// упавшие jobs, у которых истёк backoff.
func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.jobs.ListEnqueued(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list enqueued jobs", "error", err)
		return
	}

	retryable, err := w.jobs.ListRetryable(ctx, w.maxAttempts, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list retryable jobs", "error", err)
		return
	}

	now := time.Now()
	for i := range retryable {
		if w.retryDue(&retryable[i], now) {
			jobs = append(jobs, retryable[i])
		}
	}

	if len(jobs) == 0 {
		return
	}

	w.logger.Debug("poll found jobs", "count", len(jobs))

	for i := range jobs {
		job := &jobs[i]

		if err := w.processJob(ctx, job.ID); err != nil {
			w.logger.Error("failed to process job from poll",
				"job_id", job.ID,
				"error", err,
			)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// retryDue проверяет, истёк ли backoff упавшего job.
// Jobs, упавшие в другом экземпляре worker, подбираются отсюда.
func (w *Worker) retryDue(job *domain.Job, now time.Time) bool {
	if job.FinishedAt == nil {
		return true
	}
	return !now.Before(job.FinishedAt.Add(w.backoff.Delay(job.Attempt)))
}
