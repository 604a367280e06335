package api

import (
	"log/slog"

	"github.com/ruporhq/rupor/internal/recurrence"
	"github.com/ruporhq/rupor/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	scheduleRepo  *repo.ScheduleRepo
	jobRepo       *repo.JobRepo
	templateRepo  *repo.TemplateRepo
	historyRepo   *repo.HistoryRepo
	publishedRepo *repo.PublishedRepo
	resolver      *recurrence.Resolver
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	ScheduleRepo  *repo.ScheduleRepo
	JobRepo       *repo.JobRepo
	TemplateRepo  *repo.TemplateRepo
	HistoryRepo   *repo.HistoryRepo
	PublishedRepo *repo.PublishedRepo
	Resolver      *recurrence.Resolver
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = recurrence.NewResolver(recurrence.DefaultCacheSize)
	}

	return &Handler{
		scheduleRepo:  cfg.ScheduleRepo,
		jobRepo:       cfg.JobRepo,
		templateRepo:  cfg.TemplateRepo,
		historyRepo:   cfg.HistoryRepo,
		publishedRepo: cfg.PublishedRepo,
		resolver:      resolver,
		logger:        cfg.Logger,
	}
}
