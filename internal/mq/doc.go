// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - job.enqueued       — job готов к публикации (потребляет worker)
//   - job.completed      — публикация состоялась (внешние подписчики)
//   - job.dead_lettered  — job исчерпал попытки (внешние подписчики)
//
// Exchanges:
//   - rupor.jobs — события жизненного цикла jobs
//   - rupor.dlq  — необработанные сообщения
//
// Очередь — ускоритель, не источник истины: состояние job живёт в БД,
// и воркер опрашивает её независимо от MQ. Потерянное сообщение задержит
// публикацию до следующего опроса, но не отменит её.
package mq
