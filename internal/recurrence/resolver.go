package recurrence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	"github.com/ruporhq/rupor/internal/domain"
)

// cronParser — парсер cron-выражений (5 полей, без дескрипторов).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Spec — правило повторения в разобранном для резолвера виде.
// Anchor используется только для recurrence_rule без явного DTSTART:
// от него выводится стартовая точка правила.
type Spec struct {
	Kind     domain.ScheduleKind
	Expr     string
	Timezone string
	Anchor   time.Time
}

// SpecFor собирает Spec из schedule. Пустой timezone трактуется как UTC.
func SpecFor(s *domain.Schedule) Spec {
	tz := s.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return Spec{
		Kind:     s.Kind,
		Expr:     s.Expr,
		Timezone: tz,
		Anchor:   s.CreatedAt,
	}
}

// compiled — скомпилированное правило. Заполнено ровно одно из полей
// once / cronSched / rule в зависимости от Kind.
type compiled struct {
	loc       *time.Location
	once      time.Time
	cronSched cron.Schedule
	rule      *rrule.RRule
}

// Resolver вычисляет следующее время срабатывания по Spec.
// Скомпилированные правила кэшируются, поэтому один Resolver
// разделяется между всеми schedules процесса.
type Resolver struct {
	cache *cache
}

// NewResolver создаёт Resolver с кэшем на maxEntries записей.
func NewResolver(maxEntries int) *Resolver {
	return &Resolver{cache: newCache(maxEntries)}
}

// Next возвращает ближайшее время срабатывания строго после after (UTC).
//
// Второе значение false без ошибки означает, что правило исчерпано:
// one-shot уже в прошлом, либо RRULE дошло до COUNT/UNTIL. Ошибка
// возвращается только для невалидного Expr или timezone.
func (r *Resolver) Next(scheduleID uuid.UUID, spec Spec, after time.Time) (time.Time, bool, error) {
	key := cacheKey(scheduleID, spec)
	c, ok := r.cache.get(key)
	if !ok {
		var err error
		c, err = compile(spec)
		if err != nil {
			return time.Time{}, false, err
		}
		r.cache.put(key, c)
	}

	switch {
	case c.cronSched != nil:
		next := c.cronSched.Next(after.In(c.loc))
		if next.IsZero() {
			return time.Time{}, false, nil
		}
		return next.UTC(), true, nil

	case c.rule != nil:
		next := c.rule.After(after, false)
		if next.IsZero() {
			return time.Time{}, false, nil
		}
		return next.UTC(), true, nil

	default:
		if c.once.After(after) {
			return c.once.UTC(), true, nil
		}
		return time.Time{}, false, nil
	}
}

// Occurrences возвращает до limit ближайших срабатываний после from.
// Используется для предпросмотра расписания через API.
func (r *Resolver) Occurrences(scheduleID uuid.UUID, spec Spec, from time.Time, limit int) ([]time.Time, error) {
	out := make([]time.Time, 0, limit)
	after := from
	for len(out) < limit {
		next, ok, err := r.Next(scheduleID, spec, after)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, next)
		after = next
	}
	return out, nil
}

// Validate проверяет, что Expr и Timezone компилируются.
func Validate(spec Spec) error {
	_, err := compile(spec)
	return err
}

// compile разбирает Spec в готовое к вычислениям правило.
func compile(spec Spec) (*compiled, error) {
	loc, err := time.LoadLocation(spec.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", spec.Timezone, err)
	}

	switch spec.Kind {
	case domain.ScheduleKindOneShot:
		at, err := parseInstant(spec.Expr, loc)
		if err != nil {
			return nil, fmt.Errorf("parse one-shot instant %q: %w", spec.Expr, err)
		}
		return &compiled{loc: loc, once: at}, nil

	case domain.ScheduleKindCron:
		sched, err := cronParser.Parse(spec.Expr)
		if err != nil {
			return nil, fmt.Errorf("parse cron expression %q: %w", spec.Expr, err)
		}
		return &compiled{loc: loc, cronSched: sched}, nil

	case domain.ScheduleKindRule:
		opt, err := rrule.StrToROption(spec.Expr)
		if err != nil {
			return nil, fmt.Errorf("parse recurrence rule %q: %w", spec.Expr, err)
		}
		if opt.Dtstart.IsZero() {
			// DTSTART не задан — выводим стартовую точку из момента
			// создания schedule, притянув к первому подходящему времени дня.
			opt.Dtstart = derivedStart(opt, spec.Anchor, loc)
		} else {
			opt.Dtstart = opt.Dtstart.In(loc)
		}
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("compile recurrence rule %q: %w", spec.Expr, err)
		}
		return &compiled{loc: loc, rule: rule}, nil

	default:
		return nil, fmt.Errorf("unknown schedule kind %q", spec.Kind)
	}
}

// parseInstant разбирает момент one-shot: RFC 3339 либо локальное
// время без смещения, трактуемое в timezone расписания.
func parseInstant(expr string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, expr); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", expr, loc)
}

// derivedStart выводит DTSTART для правила без явной стартовой точки.
//
// Время дня берётся из BYHOUR/BYMINUTE/BYSECOND правила (первые значения),
// недостающие компоненты — из UTC-времени anchor. Если полученное время дня
// уже прошло относительно anchor, стартовая дата сдвигается на следующий
// день. Результат собирается в timezone расписания.
func derivedStart(opt *rrule.ROption, anchor time.Time, loc *time.Location) time.Time {
	u := anchor.UTC()

	if len(opt.Byhour) == 0 && len(opt.Byminute) == 0 && len(opt.Bysecond) == 0 {
		// Правило не задаёт время дня — стартуем от anchor как есть.
		t := anchor.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}

	h, m, s := u.Hour(), u.Minute(), 0
	if len(opt.Byhour) > 0 {
		h = opt.Byhour[0]
		m = 0
	}
	if len(opt.Byminute) > 0 {
		m = opt.Byminute[0]
	}
	if len(opt.Bysecond) > 0 {
		s = opt.Bysecond[0]
	}

	day := u
	if h*3600+m*60+s < u.Hour()*3600+u.Minute()*60+u.Second() {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, loc)
}
