package worker

import "errors"

var (
	// ErrJobNotFound — job из события не найден в БД.
	ErrJobNotFound = errors.New("job not found")

	// ErrTextEmpty — итоговый текст после подстановок пуст.
	ErrTextEmpty = errors.New("rendered text is empty")

	// ErrTextTooLong — итоговый текст длиннее предела публикации.
	ErrTextTooLong = errors.New("rendered text exceeds max length")
)
