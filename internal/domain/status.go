package domain

import "fmt"

// JobStatus — статус publish-задания.
//
// Жизненный цикл:
//
//	PLANNED → ENQUEUED → RUNNING → SUCCEEDED
//	                             ↘ FAILED → RUNNING (retry)
//	                                      ↘ DEAD_LETTER
//	PLANNED | ENQUEUED → CANCELLED
type JobStatus string

const (
	// JobStatusPlanned — job создан тиком планировщика, ещё не передан на выполнение.
	JobStatusPlanned JobStatus = "PLANNED"

	// JobStatusEnqueued — job передан в очередь выполнения.
	JobStatusEnqueued JobStatus = "ENQUEUED"

	// JobStatusRunning — воркер выполняет публикацию.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — публикация прошла успешно.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — попытка публикации не удалась, возможен retry.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusDeadLetter — попытки исчерпаны или ошибка постоянная.
	JobStatusDeadLetter JobStatus = "DEAD_LETTER"

	// JobStatusCancelled — job отменён до начала выполнения.
	JobStatusCancelled JobStatus = "CANCELLED"
)

// jobTransitions — таблица допустимых переходов статусов.
// Переход вне таблицы — TransitionError.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPlanned:  {JobStatusEnqueued, JobStatusCancelled},
	JobStatusEnqueued: {JobStatusRunning, JobStatusCancelled},
	JobStatusRunning:  {JobStatusSucceeded, JobStatusFailed},
	JobStatusFailed:   {JobStatusRunning, JobStatusDeadLetter},
}

// IsTerminal возвращает true, если статус финальный (job завершён).
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusDeadLetter, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет, допустим ли переход в target.
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	for _, t := range jobTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ParseJobStatus парсит строку в JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusPlanned, JobStatusEnqueued, JobStatusRunning,
		JobStatusSucceeded, JobStatusFailed, JobStatusDeadLetter, JobStatusCancelled:
		return JobStatus(s), nil
	default:
		return "", fmt.Errorf("unknown job status: %q", s)
	}
}

// TransitionError — попытка недопустимого перехода статуса job.
// Содержит исходный и целевой статусы перехода.
type TransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid job transition: %s -> %s", e.From, e.To)
}
