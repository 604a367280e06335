package selection

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ruporhq/rupor/internal/domain"
)

const (
	idA = "00000000-0000-0000-0000-000000000001"
	idB = "00000000-0000-0000-0000-000000000002"
	idC = "00000000-0000-0000-0000-000000000003"
)

func makeVariant(id string, weight int) domain.Variant {
	return domain.Variant{
		ID:     uuid.MustParse(id),
		Text:   "variant " + id,
		Weight: weight,
		Active: true,
	}
}

func TestEligible(t *testing.T) {
	pool := []domain.Variant{
		makeVariant(idA, 1),
		{ID: uuid.New(), Text: "inactive", Weight: 1, Active: false},
		{ID: uuid.New(), Text: "", Weight: 1, Active: true},
		{ID: uuid.New(), Text: "   \n\t ", Weight: 1, Active: true},
		{ID: uuid.New(), Text: strings.Repeat("я", domain.MaxPostLength+1), Weight: 1, Active: true},
		{ID: uuid.New(), Text: strings.Repeat("я", domain.MaxPostLength), Weight: 1, Active: true},
	}

	got := Eligible(pool)
	if len(got) != 2 {
		t.Fatalf("expected 2 eligible variants, got %d", len(got))
	}
	// Ровно MaxPostLength рун (не байт) — проходит
	for _, v := range got {
		if !v.Active || strings.TrimSpace(v.Text) == "" {
			t.Errorf("ineligible variant slipped through: %+v", v)
		}
	}
}

func TestSelect_EmptyPool(t *testing.T) {
	_, err := Select(nil, Input{Policy: domain.SelectionUniform})
	if !errors.Is(err, ErrNoEligibleVariants) {
		t.Errorf("expected ErrNoEligibleVariants, got %v", err)
	}
}

func TestSelect_UnknownPolicy(t *testing.T) {
	pool := []domain.Variant{makeVariant(idA, 1)}
	_, err := Select(pool, Input{Policy: "coin_flip"})
	if err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestSelect_Deterministic(t *testing.T) {
	pool := []domain.Variant{makeVariant(idA, 1), makeVariant(idB, 1), makeVariant(idC, 1)}
	in := Input{
		ScheduleID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		PlannedAt:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Policy:     domain.SelectionUniform,
	}

	first, err := Select(pool, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Seed != DeriveSeed(in.ScheduleID, in.PlannedAt) {
		t.Error("result seed should be the derived seed")
	}

	// Повторный выбор с теми же входами даёт тот же вариант
	for i := 0; i < 5; i++ {
		got, err := Select(pool, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Variant.ID != first.Variant.ID {
			t.Fatalf("selection is not deterministic: %s vs %s", got.Variant.ID, first.Variant.ID)
		}
	}

	// Порядок пула не влияет на результат
	reversed := []domain.Variant{pool[2], pool[1], pool[0]}
	got, err := Select(reversed, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Variant.ID != first.Variant.ID {
		t.Error("selection should not depend on pool order")
	}
}

func TestDeriveSeed(t *testing.T) {
	schedID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Представление времени не влияет: тот же момент в другой зоне
	moscow := time.FixedZone("MSK", 3*60*60)
	if DeriveSeed(schedID, at) != DeriveSeed(schedID, at.In(moscow)) {
		t.Error("seed must not depend on timezone representation")
	}

	// Субсекундная часть отбрасывается
	if DeriveSeed(schedID, at) != DeriveSeed(schedID, at.Add(500*time.Millisecond)) {
		t.Error("seed must ignore sub-second precision")
	}

	// Другой момент или другой schedule — другой seed
	if DeriveSeed(schedID, at) == DeriveSeed(schedID, at.Add(time.Minute)) {
		t.Error("different planned_at should give different seed")
	}
	if DeriveSeed(schedID, at) == DeriveSeed(uuid.New(), at) {
		t.Error("different schedules should give different seeds")
	}
}

func TestSelect_Weighted_Distribution(t *testing.T) {
	heavy := makeVariant(idA, 3)
	light := makeVariant(idB, 1)
	schedID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	const draws = 10000
	heavyHits := 0
	for i := 0; i < draws; i++ {
		res, err := Select(
			[]domain.Variant{heavy, light},
			Input{
				ScheduleID: schedID,
				PlannedAt:  base.Add(time.Duration(i) * time.Second),
				Policy:     domain.SelectionWeighted,
			},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Variant.ID == heavy.ID {
			heavyHits++
		}
	}

	// Вес 3:1 — ожидаем ~75% с допуском ±5%
	frac := float64(heavyHits) / draws
	if frac < 0.70 || frac > 0.80 {
		t.Errorf("expected heavy variant fraction around 0.75, got %.3f", frac)
	}
}

func TestSelect_Weighted_ClampsWeight(t *testing.T) {
	// Невалидные веса трактуются как 1 — выбор не должен паниковать
	pool := []domain.Variant{makeVariant(idA, 0), makeVariant(idB, -5)}
	res, err := Select(pool, Input{
		ScheduleID: uuid.New(),
		PlannedAt:  time.Now(),
		Policy:     domain.SelectionWeighted,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Variant.ID != pool[0].ID && res.Variant.ID != pool[1].ID {
		t.Error("selected variant should come from the pool")
	}
}

func TestSelect_RoundRobin(t *testing.T) {
	pool := []domain.Variant{makeVariant(idC, 1), makeVariant(idA, 1), makeVariant(idB, 1)}
	in := Input{
		ScheduleID: uuid.New(),
		PlannedAt:  time.Now(),
		Policy:     domain.SelectionRoundRobin,
		Cursor:     -1,
	}

	// Обход в порядке отсортированных ID, начиная с первого
	wantOrder := []string{idA, idB, idC, idA}
	for i, want := range wantOrder {
		res, err := Select(pool, in)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Variant.ID != uuid.MustParse(want) {
			t.Fatalf("step %d: expected %s, got %s", i, want, res.Variant.ID)
		}
		in.Cursor = res.Cursor
	}
}

func TestSelect_RoundRobin_CursorOutOfRange(t *testing.T) {
	// Пул сжался: сохранённый курсор указывает за его пределы
	pool := []domain.Variant{makeVariant(idA, 1), makeVariant(idB, 1)}
	res, err := Select(pool, Input{
		ScheduleID: uuid.New(),
		PlannedAt:  time.Now(),
		Policy:     domain.SelectionRoundRobin,
		Cursor:     7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Variant.ID != uuid.MustParse(idA) {
		t.Errorf("out-of-range cursor should wrap to the first variant, got %s", res.Variant.ID)
	}
	if res.Cursor != 0 {
		t.Errorf("expected cursor 0, got %d", res.Cursor)
	}
}

func TestSelect_NoRepeat(t *testing.T) {
	pool := []domain.Variant{makeVariant(idA, 1), makeVariant(idB, 1), makeVariant(idC, 1)}
	in := Input{
		ScheduleID: uuid.New(),
		PlannedAt:  time.Now(),
		Policy:     domain.SelectionNoRepeat,
		Recent:     []uuid.UUID{uuid.MustParse(idA), uuid.MustParse(idB)},
	}

	// Недавние исключены — остался единственный кандидат
	res, err := Select(pool, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Variant.ID != uuid.MustParse(idC) {
		t.Errorf("recent variants must be excluded, got %s", res.Variant.ID)
	}
}

func TestSelect_NoRepeat_FullPoolFallback(t *testing.T) {
	pool := []domain.Variant{makeVariant(idA, 1), makeVariant(idB, 1)}
	in := Input{
		ScheduleID: uuid.New(),
		PlannedAt:  time.Now(),
		Policy:     domain.SelectionNoRepeat,
		Recent:     []uuid.UUID{uuid.MustParse(idA), uuid.MustParse(idB)},
	}

	// Окно покрыло весь пул — выбор из полного пула, а не ошибка
	res, err := Select(pool, in)
	if err != nil {
		t.Fatalf("expected fallback to the full pool, got error: %v", err)
	}
	if res.Variant.ID != pool[0].ID && res.Variant.ID != pool[1].ID {
		t.Error("fallback should still pick from the pool")
	}
}

func TestSelect_SeedOverride(t *testing.T) {
	pool := []domain.Variant{makeVariant(idA, 1), makeVariant(idB, 1), makeVariant(idC, 1)}
	seed := int64(42)
	in := Input{
		ScheduleID: uuid.New(),
		PlannedAt:  time.Now(),
		Policy:     domain.SelectionUniform,
		Seed:       &seed,
	}

	first, err := Select(pool, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Seed != seed {
		t.Errorf("explicit seed should be used as-is, got %d", first.Seed)
	}

	second, err := Select(pool, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Variant.ID != first.Variant.ID {
		t.Error("same explicit seed should give the same variant")
	}
}
