package worker

import (
	"math/rand/v2"
	"time"
)

// Backoff defaults.
const (
	defaultInitialDelay = 10 * time.Second
	defaultMaxDelay     = 10 * time.Minute
	defaultJitter       = 0.2
)

// BackoffConfig — параметры задержки между попытками публикации.
type BackoffConfig struct {
	// InitialDelay — задержка после первой неудачи (default: 10s).
	InitialDelay time.Duration

	// MaxDelay — потолок задержки (default: 10m).
	MaxDelay time.Duration

	// Jitter — доля случайного разброса вокруг вычисленной задержки,
	// 0..1 (default: 0.2). Разброс разводит по времени воркеры,
	// упавшие на одном и том же сбое внешнего канала.
	Jitter float64
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Jitter <= 0 || c.Jitter > 1 {
		c.Jitter = defaultJitter
	}
	return c
}

// Delay вычисляет задержку перед попыткой attempt+1.
//
// delay = InitialDelay * 2^(attempt-1), с потолком MaxDelay,
// затем +-Jitter случайного разброса.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.MaxDelay {
			delay = c.MaxDelay
			break
		}
	}
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}

	if c.Jitter > 0 {
		// delay * (1 - jitter + 2*jitter*U), U ~ [0,1)
		spread := 1 - c.Jitter + 2*c.Jitter*rand.Float64()
		delay = time.Duration(float64(delay) * spread)
	}

	return delay
}
