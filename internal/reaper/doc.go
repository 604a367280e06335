// Package reaper возвращает в оборот jobs, брошенные умершими процессами.
//
// Конвейер публикации опирается на то, что каждый job кто-то доведёт до
// финального статуса. Когда scheduler или worker умирает между шагами,
// job застревает в промежуточном состоянии. Reaper периодически обходит
// такие jobs и чинит их валидными переходами state machine: брошенный
// RUNNING падает в FAILED, застрявший PLANNED доводится до ENQUEUED,
// FAILED с исчерпанными попытками уходит в DEAD_LETTER.
//
// Несколько экземпляров reaper безопасны: гонки разрешает state machine,
// проигравший переход получает TransitionError и пропускает job.
package reaper
