package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — одно запланированное срабатывание расписания.
//
// Job создаётся тиком планировщика в статусе PLANNED и дальше меняется
// только через валидируемые переходы (см. JobStatus). Пара (ScheduleID,
// PlannedAt) уникальна в БД — это и есть граница at-most-once создания.
// Jobs не удаляются: история остаётся для аудита.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// ScheduleID — расписание, породившее job.
	ScheduleID uuid.UUID `json:"schedule_id"`

	// PlannedAt — момент срабатывания (occurrence, UTC). Неизменяем.
	PlannedAt time.Time `json:"planned_at"`

	// VariantID — выбранный вариант контента. nil для фиксированного контента.
	// Выбор происходит один раз при создании job; retry его не пересматривает.
	VariantID *uuid.UUID `json:"variant_id,omitempty"`

	// PostID — фиксированный контент (снимок на момент создания).
	PostID *uuid.UUID `json:"post_id,omitempty"`

	// SelectionPolicy — политика, по которой выбран вариант. Для аудита.
	SelectionPolicy SelectionPolicy `json:"selection_policy,omitempty"`

	// SelectionSeed — seed детерминированного выбора. Для аудита и replay.
	SelectionSeed *int64 `json:"selection_seed,omitempty"`

	// Status — текущий статус.
	Status JobStatus `json:"status"`

	// Attempt — номер попытки публикации.
	// Увеличивается при каждом входе в RUNNING.
	Attempt int `json:"attempt"`

	// EnqueuedAt — время передачи в очередь выполнения.
	EnqueuedAt *time.Time `json:"enqueued_at,omitempty"`

	// StartedAt — время начала последней попытки.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения последней попытки.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст последней ошибки.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания job.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Duration возвращает продолжительность последней попытки.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// IsFinished возвращает true, если job в финальном статусе.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// TransitionTo применяет переход в target вместе со стандартными side
// effects: отметки времени и инкремент Attempt при входе в RUNNING.
// Недопустимый переход возвращает TransitionError, job не меняется.
func (j *Job) TransitionTo(target JobStatus, errMsg string) error {
	if !j.Status.CanTransitionTo(target) {
		return &TransitionError{From: j.Status, To: target}
	}

	now := time.Now()
	switch target {
	case JobStatusEnqueued:
		j.EnqueuedAt = &now
	case JobStatusRunning:
		j.StartedAt = &now
		j.FinishedAt = nil
		j.Attempt++
	case JobStatusSucceeded:
		j.FinishedAt = &now
	case JobStatusFailed:
		j.FinishedAt = &now
		j.Error = errMsg
	case JobStatusDeadLetter:
		if j.FinishedAt == nil {
			j.FinishedAt = &now
		}
		if errMsg != "" {
			j.Error = errMsg
		}
	case JobStatusCancelled:
		j.FinishedAt = &now
	}

	j.Status = target
	j.UpdatedAt = now
	return nil
}
