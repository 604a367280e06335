// Package selection реализует детерминированный выбор варианта контента.
//
// Seed выбора выводится из (schedule_id, planned_at), поэтому повторный
// расчёт для того же срабатывания — в другом процессе, при повторе тика,
// в предпросмотре — даёт тот же вариант. Сам выбор происходит ровно один
// раз, при создании job; seed сохраняется на job для воспроизводимости.
//
// Политики:
//   - uniform_random    — равновероятный выбор
//   - weighted_random   — вероятность пропорциональна весу варианта
//   - round_robin       — циклический обход, курсор хранится на schedule
//   - no_repeat_window  — равновероятный выбор без недавних вариантов;
//     если окно покрыло весь пул, выбор из полного пула
//
// Использование:
//
//	pool := selection.Eligible(variants)
//	res, err := selection.Select(pool, selection.Input{
//	    ScheduleID: sched.ID,
//	    PlannedAt:  plannedAt,
//	    Policy:     sched.SelectionPolicy,
//	    Cursor:     sched.Cursor(),
//	    Recent:     recentIDs,
//	})
//
// Дополнительно пакет даёт советующую проверку почти-дубликатов
// (NearDuplicate) для финального текста перед публикацией.
package selection
