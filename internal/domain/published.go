package domain

import (
	"time"

	"github.com/google/uuid"
)

// PublishedRecord — факт успешной публикации.
// Создаётся ровно один раз на job, в одной транзакции с переходом
// в SUCCEEDED. Служит источником для аналитики и для advisory-проверки
// почти-дубликатов текста.
type PublishedRecord struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// JobID — опубликованный job. Уникален: одна запись на job.
	JobID uuid.UUID `json:"job_id"`

	// ScheduleID — расписание (денормализация для выборок).
	ScheduleID uuid.UUID `json:"schedule_id"`

	// VariantID — опубликованный вариант (денормализация для аналитики).
	VariantID *uuid.UUID `json:"variant_id,omitempty"`

	// ExternalID — идентификатор публикации во внешней системе.
	ExternalID string `json:"external_id"`

	// Text — итоговый текст после раскрытия подстановок.
	Text string `json:"text"`

	// PublishedAt — время публикации.
	PublishedAt time.Time `json:"published_at"`
}
