package domain

import (
	"time"

	"github.com/google/uuid"
)

// SelectionHistoryEntry — факт выбора варианта для одного срабатывания.
// Append-only; пишется в одной транзакции с созданием job, когда id job
// уже известен. Используется окном неповторения; старые записи можно
// удалять без потери корректности.
type SelectionHistoryEntry struct {
	// ID — последовательный идентификатор записи.
	ID int64 `json:"id"`

	// ScheduleID — расписание, для которого сделан выбор.
	ScheduleID uuid.UUID `json:"schedule_id"`

	// TemplateID — шаблон, из которого выбирали.
	TemplateID uuid.UUID `json:"template_id"`

	// VariantID — выбранный вариант.
	VariantID uuid.UUID `json:"variant_id"`

	// JobID — job, для которого сделан выбор.
	JobID uuid.UUID `json:"job_id"`

	// PlannedAt — момент срабатывания.
	PlannedAt time.Time `json:"planned_at"`

	// RecordedAt — время записи.
	RecordedAt time.Time `json:"recorded_at"`
}
