package domain

import (
	"time"

	"github.com/google/uuid"
)

// Template — именованная группа вариантов контента.
// Расписание с TemplateID выбирает один вариант на каждое срабатывание.
type Template struct {
	// ID — уникальный идентификатор шаблона.
	ID uuid.UUID `json:"id"`

	// Name — имя шаблона.
	Name string `json:"name"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// Variant — один вариант текста публикации внутри шаблона.
type Variant struct {
	// ID — уникальный идентификатор варианта.
	ID uuid.UUID `json:"id"`

	// TemplateID — шаблон, которому принадлежит вариант.
	TemplateID uuid.UUID `json:"template_id"`

	// Text — текст публикации. Может содержать {{...}}-подстановки,
	// раскрываемые перед публикацией.
	Text string `json:"text"`

	// Weight — вес для weighted_random. Значения меньше 1 трактуются как 1.
	Weight int `json:"weight"`

	// Active — неактивные варианты не участвуют в выборе.
	Active bool `json:"active"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}
