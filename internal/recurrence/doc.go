// Package recurrence вычисляет время срабатывания расписаний.
//
// Поддерживаются три вида правил:
//   - one_shot        — одиночное срабатывание в заданный момент
//   - cron            — cron-выражение из 5 полей
//   - recurrence_rule — iCal RRULE по RFC 5545 (FREQ/COUNT/UNTIL/BYHOUR/...)
//
// Все вычисления строго "после" переданного момента (exclusive bound),
// поэтому повторный вызов с сохранённым next_run_at никогда не вернёт
// его же ещё раз. Результат всегда в UTC; локальное время дня при этом
// сохраняется через переходы DST, потому что следующая дата вычисляется
// в timezone расписания.
//
// Скомпилированные правила кэшируются (bounded cache). Ключ включает
// хэш выражения, так что изменение расписания делает старую запись
// недостижимой без явной инвалидации.
//
// Использование:
//
//	res := recurrence.NewResolver(recurrence.DefaultCacheSize)
//
//	next, ok, err := res.Next(sched.ID, recurrence.SpecFor(sched), after)
//	if err != nil {
//	    // невалидный Expr или timezone
//	}
//	if !ok {
//	    sched.Disable() // правило исчерпано (one-shot в прошлом, COUNT/UNTIL)
//	}
package recurrence
