package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxPostLength — максимальная длина публикуемого текста в рунах.
// Действует и на варианты при выборе, и на итоговый текст после подстановок.
const MaxPostLength = 280

// Post — фиксированный контент для расписаний без шаблона.
// Создаётся внешним CRUD-слоем; этот сервис читает посты, не меняя их.
type Post struct {
	// ID — уникальный идентификатор поста.
	ID uuid.UUID `json:"id"`

	// Text — текст публикации. Может содержать {{...}}-подстановки.
	Text string `json:"text"`

	// MediaRefs — ссылки на прикреплённые медиа (URL или storage-ключи).
	MediaRefs []string `json:"media_refs,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}
