package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/ruporhq/rupor/internal/domain"
)

// Schedule DTOs

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name,omitempty"`
	Kind            string     `json:"kind"`
	Expr            string     `json:"expr"`
	Timezone        string     `json:"timezone"`
	PostID          *uuid.UUID `json:"post_id,omitempty"`
	TemplateID      *uuid.UUID `json:"template_id,omitempty"`
	SelectionPolicy string     `json:"selection_policy,omitempty"`
	NoRepeatWindow  int        `json:"no_repeat_window,omitempty"`
	NoRepeatScope   string     `json:"no_repeat_scope,omitempty"`
	Enabled         bool       `json:"enabled"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastJobID       *uuid.UUID `json:"last_job_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:              s.ID,
		Name:            s.Name,
		Kind:            string(s.Kind),
		Expr:            s.Expr,
		Timezone:        s.Timezone,
		PostID:          s.PostID,
		TemplateID:      s.TemplateID,
		SelectionPolicy: string(s.SelectionPolicy),
		NoRepeatWindow:  s.NoRepeatWindow,
		NoRepeatScope:   string(s.NoRepeatScope),
		Enabled:         s.Enabled,
		NextRunAt:       s.NextRunAt,
		LastRunAt:       s.LastRunAt,
		LastJobID:       s.LastJobID,
		CreatedAt:       s.CreatedAt,
	}
}

// SetEnabledRequest — запрос на включение/выключение schedule.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// PreviewResponse — результат предпросмотра выбора варианта.
// Никаких побочных эффектов: курсор и история не трогаются.
type PreviewResponse struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	PlannedAt  time.Time `json:"planned_at"`
	VariantID  uuid.UUID `json:"variant_id"`
	Text       string    `json:"text"`
	Seed       int64     `json:"seed"`
}

// OccurrencesResponse — ближайшие срабатывания schedule.
type OccurrencesResponse struct {
	ScheduleID  uuid.UUID   `json:"schedule_id"`
	From        time.Time   `json:"from"`
	Occurrences []time.Time `json:"occurrences"`
}

// Job DTOs

// JobResponse — ответ с job.
type JobResponse struct {
	ID              uuid.UUID  `json:"id"`
	ScheduleID      uuid.UUID  `json:"schedule_id"`
	PlannedAt       time.Time  `json:"planned_at"`
	VariantID       *uuid.UUID `json:"variant_id,omitempty"`
	PostID          *uuid.UUID `json:"post_id,omitempty"`
	SelectionPolicy string     `json:"selection_policy,omitempty"`
	SelectionSeed   *int64     `json:"selection_seed,omitempty"`
	Status          string     `json:"status"`
	Attempt         int        `json:"attempt"`
	EnqueuedAt      *time.Time `json:"enqueued_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j *domain.Job) JobResponse {
	return JobResponse{
		ID:              j.ID,
		ScheduleID:      j.ScheduleID,
		PlannedAt:       j.PlannedAt,
		VariantID:       j.VariantID,
		PostID:          j.PostID,
		SelectionPolicy: string(j.SelectionPolicy),
		SelectionSeed:   j.SelectionSeed,
		Status:          string(j.Status),
		Attempt:         j.Attempt,
		EnqueuedAt:      j.EnqueuedAt,
		StartedAt:       j.StartedAt,
		FinishedAt:      j.FinishedAt,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt,
	}
}

// PublishedResponse — ответ с фактом публикации.
type PublishedResponse struct {
	ID          uuid.UUID  `json:"id"`
	JobID       uuid.UUID  `json:"job_id"`
	ScheduleID  uuid.UUID  `json:"schedule_id"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	Text        string     `json:"text"`
	PublishedAt time.Time  `json:"published_at"`
}

// PublishedFromDomain конвертирует domain.PublishedRecord в PublishedResponse.
func PublishedFromDomain(rec *domain.PublishedRecord) PublishedResponse {
	return PublishedResponse{
		ID:          rec.ID,
		JobID:       rec.JobID,
		ScheduleID:  rec.ScheduleID,
		VariantID:   rec.VariantID,
		ExternalID:  rec.ExternalID,
		Text:        rec.Text,
		PublishedAt: rec.PublishedAt,
	}
}

// Stats DTOs

// JobStatsResponse — количество jobs по статусам.
type JobStatsResponse struct {
	ByStatus map[string]int `json:"by_status"`
	Total    int            `json:"total"`
}

// SchedulerHealthResponse — здоровье планировщика.
type SchedulerHealthResponse struct {
	OverdueSchedules int    `json:"overdue_schedules"`
	StaleRunningJobs int    `json:"stale_running_jobs"`
	Healthy          bool   `json:"healthy"`
	CheckedAt        string `json:"checked_at"`
}
