package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard — советующий замок на обработку одного срабатывания.
//
// Замок сокращает гонки между экземплярами scheduler: захватить
// срабатывание успевает один, остальные пропускают его без запросов
// к БД. Корректность при этом не на замке — её гарантирует
// уникальность (schedule_id, planned_at) в таблице jobs. Отказавший
// Redis делает замок прозрачным, а не останавливает планирование.
type Guard interface {
	// Acquire пытается захватить срабатывание. false без ошибки —
	// замок держит другой процесс, событие можно пропустить.
	Acquire(ctx context.Context, scheduleID uuid.UUID, plannedAt time.Time) (bool, error)

	// Release отпускает замок. Вызывается после коммита; если процесс
	// умер раньше, замок снимет TTL.
	Release(ctx context.Context, scheduleID uuid.UUID, plannedAt time.Time) error
}

// RedisGuard — Guard на Redis SET NX с TTL.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard создаёт Guard поверх подключения к Redis.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// Acquire захватывает ключ срабатывания атомарным SET NX.
func (g *RedisGuard) Acquire(ctx context.Context, scheduleID uuid.UUID, plannedAt time.Time) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(scheduleID, plannedAt), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe acquire: %w", err)
	}
	return ok, nil
}

// Release снимает ключ срабатывания.
func (g *RedisGuard) Release(ctx context.Context, scheduleID uuid.UUID, plannedAt time.Time) error {
	if err := g.client.Del(ctx, guardKey(scheduleID, plannedAt)).Err(); err != nil {
		return fmt.Errorf("dedupe release: %w", err)
	}
	return nil
}

// guardKey строит ключ срабатывания. planned_at нормализуется в UTC,
// чтобы все процессы считали ключ одинаково.
func guardKey(scheduleID uuid.UUID, plannedAt time.Time) string {
	return "dedupe:" + scheduleID.String() + ":" + plannedAt.UTC().Format(time.RFC3339)
}

// NopGuard — Guard без Redis: всегда разрешает обработку.
// Дубликаты при этом по-прежнему отсекает уникальный индекс jobs.
type NopGuard struct{}

func (NopGuard) Acquire(context.Context, uuid.UUID, time.Time) (bool, error) {
	return true, nil
}

func (NopGuard) Release(context.Context, uuid.UUID, time.Time) error {
	return nil
}
