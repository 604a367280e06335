// Package publish отправляет готовый текст публикации во внешний канал.
//
// Единственная реализация для продакшена — HTTPPublisher: POST с JSON-телом
// {text, media_refs} и Bearer-авторизацией. Без настроенного канала
// используется DryRunPublisher, который пишет публикацию в лог.
//
// Ошибки публикации делятся на два класса:
//
//   - TransientError: rate limit, 5xx, сетевые сбои и таймауты.
//     Worker повторяет попытку с экспоненциальным backoff.
//   - PermanentError: невалидный запрос, ошибка авторизации,
//     отклонённый контент. Job сразу уходит в dead letter.
//
// Неклассифицированная ошибка трактуется как временная: неизвестный
// сбой безопаснее повторить.
package publish
