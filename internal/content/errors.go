package content

import "errors"

// Ошибки рендеринга текста публикации.
var (
	// ErrTemplateParse — ошибка парсинга подстановок.
	ErrTemplateParse = errors.New("template parse failed")

	// ErrTemplateRender — ошибка раскрытия подстановок.
	ErrTemplateRender = errors.New("template render failed")
)
