// Package content раскрывает подстановки в текстах публикаций.
//
// Тексты постов и вариантов могут содержать Go template выражения,
// которые worker раскрывает непосредственно перед публикацией:
//
//	text, err := content.Render(variant.Text, content.NewContext(sched.Name, plannedAt))
//
// Ошибка рендеринга — постоянная: job с нераскрываемым текстом
// уходит в dead letter, повторы не помогут.
package content
