package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ruporhq/rupor/internal/domain"
	"github.com/ruporhq/rupor/internal/repo"
)

// Health thresholds.
const (
	healthOverdueGrace  = 5 * time.Minute
	healthStaleRunning  = 10 * time.Minute
	healthStaleScanSize = 1000
)

// ListJobs возвращает список jobs с фильтрацией.
// GET /api/v1/jobs?status=...&schedule_id=...&limit=...&offset=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := repo.JobFilter{}

	// Парсим query параметры
	if scheduleIDStr := r.URL.Query().Get("schedule_id"); scheduleIDStr != "" {
		scheduleID, err := uuid.Parse(scheduleIDStr)
		if err != nil {
			BadRequest(w, "invalid schedule_id")
			return
		}
		filter.ScheduleID = &scheduleID
	}

	if !h.parseJobListQuery(w, r, &filter) {
		return
	}

	jobs, err := h.jobRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]JobResponse, len(jobs))
	for i := range jobs {
		result[i] = JobFromDomain(&jobs[i])
	}

	List(w, result, len(result))
}

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, JobFromDomain(job))
}

// CancelJob отменяет job.
// POST /api/v1/jobs/{id}/cancel
//
// Отменить можно только PLANNED и ENQUEUED: начатую попытку публикации
// уже не остановить.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobRepo.Transition(r.Context(), id, domain.JobStatusCancelled, "")
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			InvalidState(w, "job is "+string(te.From)+", only planned or enqueued jobs can be cancelled")
			return
		}
		HandleRepoError(w, h.logger, err, "job not found")
		return
	}

	Success(w, JobFromDomain(job))
}

// GetPublished возвращает факт публикации job.
// GET /api/v1/jobs/{id}/published
func (h *Handler) GetPublished(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	rec, err := h.publishedRepo.GetByJobID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job has no published record") {
		return
	}

	Success(w, PublishedFromDomain(rec))
}

// JobStats возвращает количество jobs по статусам.
// GET /api/v1/stats/jobs
func (h *Handler) JobStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.jobRepo.CountByStatus(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	byStatus := make(map[string]int, len(counts))
	total := 0
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}

	Success(w, JobStatsResponse{ByStatus: byStatus, Total: total})
}

// SchedulerHealth возвращает здоровье планировщика: просроченные
// schedules и подозрительно долгие RUNNING jobs.
// GET /api/v1/health/scheduler
func (h *Handler) SchedulerHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	overdue, err := h.scheduleRepo.CountOverdue(r.Context(), now, healthOverdueGrace)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	stale, err := h.jobRepo.ListStaleRunning(r.Context(), now.Add(-healthStaleRunning), healthStaleScanSize)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Success(w, SchedulerHealthResponse{
		OverdueSchedules: overdue,
		StaleRunningJobs: len(stale),
		Healthy:          overdue == 0 && len(stale) == 0,
		CheckedAt:        now.Format(time.RFC3339),
	})
}

// --- Helpers ---

// parseJobListQuery заполняет общие параметры списка jobs.
// false — ответ с ошибкой уже отправлен.
func (h *Handler) parseJobListQuery(w http.ResponseWriter, r *http.Request, filter *repo.JobFilter) bool {
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status, err := domain.ParseJobStatus(statusStr)
		if err != nil {
			BadRequest(w, "invalid status")
			return false
		}
		filter.Status = status
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	return true
}

// mustParseInt парсит строку в int с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if n, err := json.Number(s).Int64(); err == nil {
		return n
	}
	return defaultVal
}
