package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ruporhq/rupor/internal/domain"
)

// HistoryRepo — репозиторий истории выборов вариантов.
// Пишется только для расписаний с политикой no_repeat_window.
type HistoryRepo struct {
	db DB
}

// NewHistoryRepo создаёт новый HistoryRepo.
func NewHistoryRepo(db DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// WithTx возвращает копию репозитория, выполняющую запросы внутри tx.
func (r *HistoryRepo) WithTx(tx pgx.Tx) *HistoryRepo {
	return &HistoryRepo{db: tx}
}

// Record записывает выбор варианта. ID присваивает БД.
func (r *HistoryRepo) Record(ctx context.Context, entry *domain.SelectionHistoryEntry) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO selection_history (schedule_id, template_id, variant_id, job_id, planned_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		entry.ScheduleID,
		entry.TemplateID,
		entry.VariantID,
		entry.JobID,
		entry.PlannedAt,
		entry.RecordedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert selection history: %w", err)
	}
	return nil
}

// RecentVariantIDs возвращает ID последних выбранных вариантов шаблона,
// новые первыми. scheduleID сужает окно до одного расписания
// (scope=schedule); nil — по всему шаблону (scope=template).
func (r *HistoryRepo) RecentVariantIDs(ctx context.Context, templateID uuid.UUID, scheduleID *uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT variant_id
		FROM selection_history
		WHERE template_id = $1
		  AND ($2::uuid IS NULL OR schedule_id = $2)
		ORDER BY planned_at DESC, id DESC
		LIMIT $3
	`, templateID, nullUUID(scheduleID), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent variants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan variant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
