package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ruporhq/rupor/internal/domain"
)

func TestCache_Bounded(t *testing.T) {
	c := newCache(2)

	c.put("a", &compiled{})
	c.put("b", &compiled{})
	c.put("c", &compiled{})

	if got := c.len(); got != 2 {
		t.Errorf("cache should stay within bound, got %d entries", got)
	}
	// Последняя вставка всегда остаётся
	if _, ok := c.get("c"); !ok {
		t.Error("freshly inserted entry should be present")
	}
}

func TestCache_GetPut(t *testing.T) {
	c := newCache(4)

	if _, ok := c.get("missing"); ok {
		t.Error("empty cache should miss")
	}

	v := &compiled{once: time.Now()}
	c.put("k", v)

	got, ok := c.get("k")
	if !ok || got != v {
		t.Error("cache should return the stored entry")
	}
}

func TestCacheKey(t *testing.T) {
	id := uuid.New()
	anchor := time.Now()
	spec := Spec{Kind: domain.ScheduleKindCron, Expr: "0 9 * * *", Timezone: "UTC", Anchor: anchor}

	k1 := cacheKey(id, spec)
	k2 := cacheKey(id, spec)
	if k1 != k2 {
		t.Error("key must be deterministic")
	}

	// Изменение выражения меняет ключ — старая запись становится недостижимой
	changed := spec
	changed.Expr = "0 10 * * *"
	if cacheKey(id, changed) == k1 {
		t.Error("expression change must produce a new key")
	}

	changedTz := spec
	changedTz.Timezone = "Europe/Berlin"
	if cacheKey(id, changedTz) == k1 {
		t.Error("timezone change must produce a new key")
	}

	if cacheKey(uuid.New(), spec) == k1 {
		t.Error("different schedules must not share keys")
	}
}
