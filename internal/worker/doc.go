// Package worker доводит enqueued jobs до финального статуса.
//
// Worker слушает очередь jobs.enqueued и параллельно поллит БД:
// очередь ускоряет доставку, но не является источником истины, поэтому
// потерянное сообщение ничего не ломает. Захват job — атомарный переход
// ENQUEUED -> RUNNING; проигравшие гонку экземпляры видят TransitionError
// и отступают, что делает повторную доставку сообщений безвредной.
//
// Попытка публикации: загрузка контента (вариант или пост), раскрытие
// {{...}}-подстановок, финальная валидация длины, advisory-проверка на
// почти-дубликат, вызов внешнего канала. Успех фиксируется переходом в
// SUCCEEDED вместе с PublishedRecord в одной транзакции.
//
// Сбои классифицируются пакетом publish: временные повторяются с
// экспоненциальным backoff и jitter до MaxAttempts, необратимые сразу
// уводят job в DEAD_LETTER. Прерванный рестартом backoff оставляет job
// в FAILED; его добирает polling этого или другого экземпляра.
package worker
