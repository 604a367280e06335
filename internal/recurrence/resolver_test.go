package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ruporhq/rupor/internal/domain"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestResolver_OneShot(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	spec := Spec{
		Kind:     domain.ScheduleKindOneShot,
		Expr:     "2030-06-01T12:00:00Z",
		Timezone: "UTC",
	}
	at := mustTime(t, "2030-06-01T12:00:00Z")

	next, ok, err := res.Next(id, spec, at.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || !next.Equal(at) {
		t.Errorf("expected %v, got %v (ok=%v)", at, next, ok)
	}

	// Граница exclusive: after == instant не возвращает instant
	_, ok, err = res.Next(id, spec, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("one-shot at the bound should be exhausted")
	}

	// Момент в прошлом — правило исчерпано
	_, ok, _ = res.Next(id, spec, at.Add(time.Hour))
	if ok {
		t.Error("past one-shot should be exhausted")
	}
}

func TestResolver_OneShot_LocalTime(t *testing.T) {
	res := NewResolver(16)
	spec := Spec{
		Kind:     domain.ScheduleKindOneShot,
		Expr:     "2030-06-01T12:00:00",
		Timezone: "Europe/Berlin",
	}

	next, ok, err := res.Next(uuid.New(), spec, mustTime(t, "2030-01-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Июнь в Берлине — UTC+2
	want := mustTime(t, "2030-06-01T10:00:00Z")
	if !ok || !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestResolver_Cron_Daily(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	spec := Spec{Kind: domain.ScheduleKindCron, Expr: "0 9 * * *", Timezone: "UTC"}

	next, ok, err := res.Next(id, spec, mustTime(t, "2024-01-01T10:00:00Z"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := mustTime(t, "2024-01-02T09:00:00Z")
	if !ok || !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	// Граница exclusive: ровно 09:00 возвращает следующий день
	next, _, err = res.Next(id, spec, want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(mustTime(t, "2024-01-03T09:00:00Z")) {
		t.Errorf("bound must be exclusive, got %v", next)
	}
}

// Весенний переход DST в Чикаго (2024-03-10, 02:00 CST -> 03:00 CDT):
// расписание "каждый день в 09:00" сохраняет локальное время, интервал
// между соседними срабатываниями в UTC сжимается до 23 часов.
func TestResolver_Cron_DST_SpringForward(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	spec := Spec{Kind: domain.ScheduleKindCron, Expr: "0 9 * * *", Timezone: "America/Chicago"}

	before, ok, err := res.Next(id, spec, mustTime(t, "2024-03-09T00:00:00Z"))
	if err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}
	// 09:00 CST = 15:00 UTC
	if want := mustTime(t, "2024-03-09T15:00:00Z"); !before.Equal(want) {
		t.Errorf("expected %v, got %v", want, before)
	}

	after, ok, err := res.Next(id, spec, before)
	if err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}
	// 09:00 CDT = 14:00 UTC
	if want := mustTime(t, "2024-03-10T14:00:00Z"); !after.Equal(want) {
		t.Errorf("expected %v, got %v", want, after)
	}
	if d := after.Sub(before); d != 23*time.Hour {
		t.Errorf("expected 23h between firings across spring-forward, got %v", d)
	}
}

// Осенний переход DST в Чикаго (2024-11-03): интервал растягивается до 25 часов.
func TestResolver_Cron_DST_FallBack(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	spec := Spec{Kind: domain.ScheduleKindCron, Expr: "0 9 * * *", Timezone: "America/Chicago"}

	before, ok, err := res.Next(id, spec, mustTime(t, "2024-11-02T00:00:00Z"))
	if err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}
	// 09:00 CDT = 14:00 UTC
	if want := mustTime(t, "2024-11-02T14:00:00Z"); !before.Equal(want) {
		t.Errorf("expected %v, got %v", want, before)
	}

	after, ok, err := res.Next(id, spec, before)
	if err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}
	// 09:00 CST = 15:00 UTC
	if want := mustTime(t, "2024-11-03T15:00:00Z"); !after.Equal(want) {
		t.Errorf("expected %v, got %v", want, after)
	}
	if d := after.Sub(before); d != 25*time.Hour {
		t.Errorf("expected 25h between firings across fall-back, got %v", d)
	}
}

// Правило без явного DTSTART: стартовая точка выводится из момента
// создания schedule и притягивается к первому подходящему времени дня.
func TestResolver_Rule_DerivedStart(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	anchor := mustTime(t, "2024-01-01T14:23:17Z")
	spec := Spec{
		Kind:     domain.ScheduleKindRule,
		Expr:     "FREQ=DAILY;BYHOUR=9;BYMINUTE=0",
		Timezone: "America/Chicago",
		Anchor:   anchor,
	}

	// 09:00 уже прошло относительно anchor (14:23 UTC), поэтому первое
	// срабатывание — 2 января 09:00 по Чикаго (CST, UTC-6).
	next, ok, err := res.Next(id, spec, anchor)
	if err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}
	if want := mustTime(t, "2024-01-02T15:00:00Z"); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	// Следующее — ровно через сутки, локальное время сохраняется
	next2, ok, err := res.Next(id, spec, next)
	if err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}
	if want := mustTime(t, "2024-01-03T15:00:00Z"); !next2.Equal(want) {
		t.Errorf("expected %v, got %v", want, next2)
	}
}

func TestResolver_Rule_CountExhaustion(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	anchor := mustTime(t, "2024-01-01T08:00:00Z")
	spec := Spec{
		Kind:     domain.ScheduleKindRule,
		Expr:     "FREQ=DAILY;COUNT=3",
		Timezone: "UTC",
		Anchor:   anchor,
	}

	after := anchor.Add(-time.Hour)
	var got []time.Time
	for {
		next, ok, err := res.Next(id, spec, after)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, next)
		after = next
	}

	want := []time.Time{
		mustTime(t, "2024-01-01T08:00:00Z"),
		mustTime(t, "2024-01-02T08:00:00Z"),
		mustTime(t, "2024-01-03T08:00:00Z"),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestResolver_Rule_ExplicitDtstartUntil(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	spec := Spec{
		Kind:     domain.ScheduleKindRule,
		Expr:     "DTSTART:20240101T090000Z\nRRULE:FREQ=DAILY;UNTIL=20240103T090000Z",
		Timezone: "UTC",
	}

	next, ok, err := res.Next(id, spec, mustTime(t, "2024-01-02T10:00:00Z"))
	if err != nil || !ok {
		t.Fatalf("resolve failed: ok=%v err=%v", ok, err)
	}
	if want := mustTime(t, "2024-01-03T09:00:00Z"); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	// После UNTIL правило исчерпано
	_, ok, err = res.Next(id, spec, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("rule past UNTIL should be exhausted")
	}
}

func TestResolver_InvalidSpecs(t *testing.T) {
	res := NewResolver(16)
	id := uuid.New()
	after := time.Now()

	cases := []struct {
		name string
		spec Spec
	}{
		{"bad timezone", Spec{Kind: domain.ScheduleKindCron, Expr: "0 9 * * *", Timezone: "Mars/Olympus"}},
		{"bad cron", Spec{Kind: domain.ScheduleKindCron, Expr: "not a cron", Timezone: "UTC"}},
		{"bad rrule", Spec{Kind: domain.ScheduleKindRule, Expr: "FREQ=SOMETIMES", Timezone: "UTC"}},
		{"bad instant", Spec{Kind: domain.ScheduleKindOneShot, Expr: "tomorrow-ish", Timezone: "UTC"}},
		{"unknown kind", Spec{Kind: "hourly", Expr: "0 9 * * *", Timezone: "UTC"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := res.Next(id, tc.spec, after); err == nil {
				t.Error("expected error")
			}
			if err := Validate(tc.spec); err == nil {
				t.Error("Validate should reject the spec too")
			}
		})
	}
}

func TestResolver_Occurrences(t *testing.T) {
	res := NewResolver(16)
	spec := Spec{Kind: domain.ScheduleKindCron, Expr: "0 12 * * *", Timezone: "UTC"}

	occ, err := res.Occurrences(uuid.New(), spec, mustTime(t, "2024-05-01T00:00:00Z"), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(occ) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occ))
	}
	if !occ[0].Equal(mustTime(t, "2024-05-01T12:00:00Z")) ||
		!occ[2].Equal(mustTime(t, "2024-05-03T12:00:00Z")) {
		t.Errorf("unexpected occurrences: %v", occ)
	}

	// Исчерпываемое правило возвращает меньше limit
	oneShot := Spec{Kind: domain.ScheduleKindOneShot, Expr: "2030-01-01T00:00:00Z", Timezone: "UTC"}
	occ, err = res.Occurrences(uuid.New(), oneShot, mustTime(t, "2024-01-01T00:00:00Z"), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(occ) != 1 {
		t.Errorf("expected single occurrence, got %d", len(occ))
	}
}

func TestSpecFor(t *testing.T) {
	sched := &domain.Schedule{
		ID:        uuid.New(),
		Kind:      domain.ScheduleKindCron,
		Expr:      "0 9 * * *",
		CreatedAt: time.Now(),
	}

	spec := SpecFor(sched)
	if spec.Timezone != "UTC" {
		t.Errorf("empty timezone should default to UTC, got %q", spec.Timezone)
	}
	if spec.Expr != sched.Expr || spec.Kind != sched.Kind {
		t.Error("spec should mirror schedule fields")
	}
	if !spec.Anchor.Equal(sched.CreatedAt) {
		t.Error("anchor should be the schedule creation time")
	}
}

func TestDerivedStart(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	t.Run("time of day already passed", func(t *testing.T) {
		spec := Spec{
			Kind:     domain.ScheduleKindRule,
			Expr:     "FREQ=DAILY;BYHOUR=9;BYMINUTE=0",
			Timezone: "America/Chicago",
			Anchor:   mustTime(t, "2024-01-01T14:23:17Z"),
		}
		c, err := compile(spec)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		want := time.Date(2024, 1, 2, 9, 0, 0, 0, chicago)
		if got := c.rule.OrigOptions.Dtstart; !got.Equal(want) {
			t.Errorf("expected dtstart %v, got %v", want, got)
		}
	})

	t.Run("time of day still ahead", func(t *testing.T) {
		spec := Spec{
			Kind:     domain.ScheduleKindRule,
			Expr:     "FREQ=DAILY;BYHOUR=18;BYMINUTE=30",
			Timezone: "America/Chicago",
			Anchor:   mustTime(t, "2024-01-01T14:23:17Z"),
		}
		c, err := compile(spec)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		want := time.Date(2024, 1, 1, 18, 30, 0, 0, chicago)
		if got := c.rule.OrigOptions.Dtstart; !got.Equal(want) {
			t.Errorf("expected dtstart %v, got %v", want, got)
		}
	})
}
