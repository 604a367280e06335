// Package scheduler превращает due schedules в jobs.
//
// Каждый тик планировщик захватывает подошедшие по времени расписания
// по одному через FOR UPDATE SKIP LOCKED, так что несколько экземпляров
// работают параллельно без внешней координации. Одно срабатывание
// обрабатывается атомарно: выбор варианта, создание job в PLANNED,
// запись истории выбора и перенос next_run_at коммитятся одной
// транзакцией.
//
// Ключевые инварианты:
//
//   - Job на пару (schedule_id, planned_at) создаётся не более одного
//     раза. Границу держит уникальный индекс jobs; Redis-замок поверх
//     него только сокращает гонки.
//   - Расписание двигается вперёд даже без job: пустой пул вариантов
//     и уже существующий job не зацикливают тик.
//   - Исчерпанное правило и невалидное выражение выключают расписание,
//     а не роняют тик.
//
// Публикация job.enqueued в RabbitMQ происходит после коммита и не
// фатальна: worker в любом случае подбирает jobs поллингом.
package scheduler
