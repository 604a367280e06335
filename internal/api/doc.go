// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (репозитории, resolver, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, metrics, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - schedule_handler.go — обработчики для /schedules
//   - job_handler.go      — обработчики для /jobs, stats и health
//
// API отдаёт read models конвейера публикаций и две управляющие
// операции: переключение schedule и отмену job. Контент (посты,
// шаблоны, варианты) создаётся внешним CRUD-слоем и здесь доступен
// только на чтение.
package api
