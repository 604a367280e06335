package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики пайплайна публикаций. Регистрируются в default registry,
// сервисы отдают их на /metrics через promhttp.
var (
	// SchedulerTicks — количество тиков планировщика.
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rupor_scheduler_ticks_total",
		Help: "Total scheduler ticks executed",
	})

	// JobsPlanned — созданные jobs.
	JobsPlanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rupor_jobs_planned_total",
		Help: "Total jobs created by the scheduler",
	})

	// DuplicatesSkipped — срабатывания, для которых job уже существовал.
	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rupor_duplicates_skipped_total",
		Help: "Occurrences skipped because a job already existed",
	})

	// SchedulesExhausted — расписания, отключённые из-за исчерпания
	// или невалидного выражения.
	SchedulesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rupor_schedules_exhausted_total",
		Help: "Schedules disabled after exhaustion or invalid expression",
	})

	// PublishAttempts — попытки публикации по результату:
	// success, transient, permanent.
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rupor_publish_attempts_total",
		Help: "Publish attempts by outcome",
	}, []string{"outcome"})

	// JobsDeadLettered — jobs, ушедшие в dead letter.
	JobsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rupor_jobs_dead_lettered_total",
		Help: "Jobs moved to dead letter",
	})

	// JobsReaped — jobs, подобранные реапером, по виду зависания:
	// stale_running, stuck_planned, exhausted_failed.
	JobsReaped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rupor_jobs_reaped_total",
		Help: "Jobs recovered by the reaper by reason",
	}, []string{"reason"})

	// HTTPRequests — запросы к API по методу и статусу ответа.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rupor_api_http_requests_total",
		Help: "API HTTP requests by method and status",
	}, []string{"method", "status"})
)
