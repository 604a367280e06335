package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ruporhq/rupor/internal/domain"
	"github.com/ruporhq/rupor/internal/recurrence"
	"github.com/ruporhq/rupor/internal/repo"
	"github.com/ruporhq/rupor/internal/selection"
)

// ListSchedules возвращает список schedules с фильтрацией.
// GET /api/v1/schedules?enabled=...&limit=...&offset=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter := repo.ScheduleFilter{}

	// Парсим query параметры
	if enabledStr := r.URL.Query().Get("enabled"); enabledStr != "" {
		enabled := enabledStr == "true"
		filter.Enabled = &enabled
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	schedules, err := h.scheduleRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		result[i] = ScheduleFromDomain(&schedules[i])
	}

	List(w, result, len(result))
}

// GetSchedule возвращает schedule по ID.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	schedule, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// SetScheduleEnabled включает или выключает schedule.
// PUT /api/v1/schedules/{id}/enabled
//
// У включённого заново расписания next_run_at вычислит ближайший тик,
// от текущего момента: пропущенные за время простоя срабатывания
// не наверстываются.
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.scheduleRepo.SetEnabled(r.Context(), id, req.Enabled); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	// Возвращаем обновлённый schedule
	schedule, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// PreviewSelection возвращает вариант, который был бы выбран для
// заданного момента, с тем же детерминированным seed, что и в
// продакшене. Никаких побочных эффектов: курсор и история не трогаются.
// GET /api/v1/schedules/{id}/preview?planned_at=...&seed=...
func (h *Handler) PreviewSelection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	schedule, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	if !schedule.IsTemplateBased() {
		BadRequest(w, "schedule has fixed content, nothing to preview")
		return
	}

	plannedAt := time.Now().UTC()
	if schedule.NextRunAt != nil {
		plannedAt = schedule.NextRunAt.UTC()
	}
	if v := r.URL.Query().Get("planned_at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			BadRequest(w, "invalid planned_at, expected RFC 3339")
			return
		}
		plannedAt = parsed.UTC()
	}

	input := selection.Input{
		ScheduleID: schedule.ID,
		PlannedAt:  plannedAt,
		Policy:     schedule.SelectionPolicy,
		Cursor:     schedule.Cursor(),
	}

	if v := r.URL.Query().Get("seed"); v != "" {
		seed := mustParseInt(v, 0)
		input.Seed = &seed
	}

	variants, err := h.templateRepo.ListActiveVariants(r.Context(), *schedule.TemplateID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	pool := selection.Eligible(variants)
	if len(pool) == 0 {
		InvalidState(w, "no eligible variants")
		return
	}

	if schedule.SelectionPolicy == domain.SelectionNoRepeat && schedule.NoRepeatWindow > 0 {
		var scopeID *uuid.UUID
		if schedule.NoRepeatScope != domain.ScopeTemplate {
			scopeID = &schedule.ID
		}
		recent, err := h.historyRepo.RecentVariantIDs(r.Context(), *schedule.TemplateID, scopeID, schedule.NoRepeatWindow)
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		input.Recent = recent
	}

	res, err := selection.Select(pool, input)
	if err != nil {
		InvalidState(w, err.Error())
		return
	}

	Success(w, PreviewResponse{
		ScheduleID: schedule.ID,
		PlannedAt:  plannedAt,
		VariantID:  res.Variant.ID,
		Text:       res.Variant.Text,
		Seed:       res.Seed,
	})
}

// ListOccurrences возвращает ближайшие срабатывания schedule.
// GET /api/v1/schedules/{id}/occurrences?from=...&limit=...
func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	schedule, err := h.scheduleRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	from := time.Now().UTC()
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			BadRequest(w, "invalid from, expected RFC 3339")
			return
		}
		from = parsed.UTC()
	}

	limit := int(mustParseInt(r.URL.Query().Get("limit"), 10))
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	occurrences, err := h.resolver.Occurrences(schedule.ID, recurrence.SpecFor(schedule), from, limit)
	if err != nil {
		BadRequest(w, "invalid recurrence: "+err.Error())
		return
	}

	Success(w, OccurrencesResponse{
		ScheduleID:  schedule.ID,
		From:        from,
		Occurrences: occurrences,
	})
}

// ListScheduleJobs возвращает jobs одного schedule.
// GET /api/v1/schedules/{id}/jobs?status=...&limit=...&offset=...
func (h *Handler) ListScheduleJobs(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	// Проверяем, что schedule существует
	if _, err := h.scheduleRepo.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	filter := repo.JobFilter{ScheduleID: &id}
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
