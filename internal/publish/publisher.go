package publish

import (
	"context"
	"errors"
	"fmt"
)

// Publisher отправляет готовый текст во внешний канал публикации.
// Возвращает внешний идентификатор публикации, если канал его дал.
type Publisher interface {
	Publish(ctx context.Context, text string, mediaRefs []string) (string, error)
}

// TransientError — временный сбой публикации: rate limit, 5xx, таймаут.
// Повтор с backoff имеет смысл.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient publish failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError — необратимый сбой публикации: невалидный запрос,
// ошибка авторизации, отклонённый контент. Повторы не помогут,
// job сразу уходит в dead letter.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent publish failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Transient оборачивает ошибку как временную.
func Transient(format string, args ...any) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// Permanent оборачивает ошибку как необратимую.
func Permanent(format string, args ...any) error {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

// IsPermanent сообщает, что повторять публикацию бессмысленно.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsTransient сообщает, что сбой временный. Неклассифицированные
// ошибки тоже считаются временными: неизвестный сбой безопаснее
// повторить, чем похоронить job.
func IsTransient(err error) bool {
	return err != nil && !IsPermanent(err)
}
