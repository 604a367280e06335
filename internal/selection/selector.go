package selection

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ruporhq/rupor/internal/domain"
)

// ErrNoEligibleVariants возвращается, когда после фильтрации пул пуст.
// Для тика это не ошибка публикации: срабатывание пропускается.
var ErrNoEligibleVariants = errors.New("no eligible variants")

// Input — параметры одного выбора.
type Input struct {
	// ScheduleID и PlannedAt вместе задают seed выбора.
	ScheduleID uuid.UUID
	PlannedAt  time.Time

	// Policy — политика выбора.
	Policy domain.SelectionPolicy

	// Seed — явный seed вместо производного. Используется предпросмотром;
	// при создании job всегда nil.
	Seed *int64

	// Cursor — позиция последнего выбора для round_robin (-1, если выборок
	// не было). Для остальных политик игнорируется.
	Cursor int

	// Recent — ID недавно выбранных вариантов для no_repeat_window,
	// уже усечённые до размера окна.
	Recent []uuid.UUID
}

// Result — итог выбора.
type Result struct {
	// Variant — выбранный вариант.
	Variant domain.Variant

	// Seed — использованный seed. Сохраняется на job для воспроизводимости.
	Seed int64

	// Cursor — новая позиция курсора round_robin; -1 для остальных политик.
	Cursor int
}

// Eligible фильтрует пул до пригодных к публикации вариантов:
// активные, с непустым текстом, не длиннее domain.MaxPostLength.
func Eligible(pool []domain.Variant) []domain.Variant {
	out := make([]domain.Variant, 0, len(pool))
	for _, v := range pool {
		if !v.Active {
			continue
		}
		if strings.TrimSpace(v.Text) == "" {
			continue
		}
		if utf8.RuneCountInString(v.Text) > domain.MaxPostLength {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Select выбирает вариант из пула согласно политике.
//
// Выбор детерминирован: один и тот же (schedule, planned_at, pool)
// всегда даёт один и тот же вариант. Пул сортируется по ID на месте,
// чтобы позиции не зависели от порядка выдачи БД.
func Select(pool []domain.Variant, in Input) (*Result, error) {
	if len(pool) == 0 {
		return nil, ErrNoEligibleVariants
	}

	slices.SortFunc(pool, func(a, b domain.Variant) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	seed := DeriveSeed(in.ScheduleID, in.PlannedAt)
	if in.Seed != nil {
		seed = *in.Seed
	}

	switch in.Policy {
	case domain.SelectionUniform:
		rng := newRNG(seed)
		return &Result{Variant: pool[rng.IntN(len(pool))], Seed: seed, Cursor: -1}, nil

	case domain.SelectionWeighted:
		rng := newRNG(seed)
		return &Result{Variant: pickWeighted(pool, rng), Seed: seed, Cursor: -1}, nil

	case domain.SelectionRoundRobin:
		pos := in.Cursor
		if pos < 0 || pos >= len(pool) {
			// Пул сжался или выборок ещё не было — продолжаем с начала
			pos = len(pool) - 1
		}
		next := (pos + 1) % len(pool)
		return &Result{Variant: pool[next], Seed: seed, Cursor: next}, nil

	case domain.SelectionNoRepeat:
		candidates := excludeRecent(pool, in.Recent)
		if len(candidates) == 0 {
			// Окно покрыло весь пул — откатываемся на полный пул,
			// срабатывание важнее неповторения
			candidates = pool
		}
		rng := newRNG(seed)
		return &Result{Variant: candidates[rng.IntN(len(candidates))], Seed: seed, Cursor: -1}, nil

	default:
		return nil, fmt.Errorf("unknown selection policy: %q", in.Policy)
	}
}

// DeriveSeed выводит seed выбора из идентичности срабатывания.
// planned_at нормализуется в UTC и усекается до секунды, чтобы seed
// не зависел от представления времени в конкретном процессе.
func DeriveSeed(scheduleID uuid.UUID, plannedAt time.Time) int64 {
	key := scheduleID.String() + ":" + plannedAt.UTC().Truncate(time.Second).Format(time.RFC3339)
	sum := sha256.Sum256([]byte(key))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// newRNG создаёт детерминированный генератор из seed.
func newRNG(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9E3779B97F4A7C15))
}

// pickWeighted выбирает вариант с вероятностью, пропорциональной весу.
// Вес меньше 1 трактуется как 1, чтобы вариант не выпадал из ротации молча.
func pickWeighted(pool []domain.Variant, rng *rand.Rand) domain.Variant {
	total := 0
	for _, v := range pool {
		total += weightOf(v)
	}
	n := rng.IntN(total)
	for _, v := range pool {
		n -= weightOf(v)
		if n < 0 {
			return v
		}
	}
	return pool[len(pool)-1]
}

func weightOf(v domain.Variant) int {
	if v.Weight < 1 {
		return 1
	}
	return v.Weight
}

// excludeRecent убирает из пула варианты, встречающиеся в recent.
func excludeRecent(pool []domain.Variant, recent []uuid.UUID) []domain.Variant {
	if len(recent) == 0 {
		return pool
	}
	seen := make(map[uuid.UUID]struct{}, len(recent))
	for _, id := range recent {
		seen[id] = struct{}{}
	}
	out := make([]domain.Variant, 0, len(pool))
	for _, v := range pool {
		if _, ok := seen[v.ID]; !ok {
			out = append(out, v)
		}
	}
	return out
}
