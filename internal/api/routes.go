package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
	mux.Handle("GET /api/v1/schedules/{id}/preview", chain(http.HandlerFunc(h.PreviewSelection)))
	mux.Handle("GET /api/v1/schedules/{id}/occurrences", chain(http.HandlerFunc(h.ListOccurrences)))
	mux.Handle("GET /api/v1/schedules/{id}/jobs", chain(http.HandlerFunc(h.ListScheduleJobs)))

	// Jobs
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("POST /api/v1/jobs/{id}/cancel", chain(http.HandlerFunc(h.CancelJob)))
	mux.Handle("GET /api/v1/jobs/{id}/published", chain(http.HandlerFunc(h.GetPublished)))

	// Stats и health
	mux.Handle("GET /api/v1/stats/jobs", chain(http.HandlerFunc(h.JobStats)))
	mux.Handle("GET /api/v1/health/scheduler", chain(http.HandlerFunc(h.SchedulerHealth)))
}
