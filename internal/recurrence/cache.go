package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheSize — размер кэша по умолчанию. Достаточно для
// нескольких тысяч активных расписаний на процесс.
const DefaultCacheSize = 1024

// cache — ограниченный по размеру кэш скомпилированных правил.
// При переполнении вытесняется произвольная запись: паттерн доступа
// равномерный (каждый тик трогает каждое due-расписание), LRU здесь
// ничего не добавляет.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*compiled
	max     int
}

func newCache(max int) *cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &cache{
		entries: make(map[string]*compiled, max),
		max:     max,
	}
}

func (c *cache) get(key string) (*compiled, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *cache) put(key string, v *compiled) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = v
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheKey строит ключ кэша: schedule ID плюс хэш параметров правила.
// Изменение Expr, Timezone или Anchor меняет ключ, так что устаревшая
// запись просто перестаёт читаться и со временем вытесняется.
func cacheKey(scheduleID uuid.UUID, spec Spec) string {
	sum := sha256.Sum256([]byte(spec.Expr + "|" + spec.Timezone + "|" + spec.Anchor.UTC().Format(time.RFC3339Nano)))
	return scheduleID.String() + ":" + hex.EncodeToString(sum[:8])
}
