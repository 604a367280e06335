package worker

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ruporhq/rupor/internal/domain"
)

// --- Backoff Tests ---

func TestBackoff_ExponentialGrowth(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second}, // клампится в attempt=1
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // потолок
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_CapBelowDouble(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 10 * time.Second,
		MaxDelay:     15 * time.Second,
		Jitter:       0,
	}

	if got := cfg.Delay(2); got != 15*time.Second {
		t.Errorf("Delay(2) = %v, want cap 15s", got)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       0.2,
	}

	// База для attempt=3 — 4s; jitter держит результат в [3.2s, 4.8s]
	lo := time.Duration(float64(4*time.Second) * 0.8)
	hi := time.Duration(float64(4*time.Second) * 1.2)

	for i := 0; i < 100; i++ {
		got := cfg.Delay(3)
		if got < lo || got > hi {
			t.Fatalf("Delay(3) = %v, want within [%v, %v]", got, lo, hi)
		}
	}
}

func TestBackoff_Defaults(t *testing.T) {
	cfg := BackoffConfig{}.withDefaults()

	if cfg.InitialDelay != defaultInitialDelay {
		t.Errorf("expected initial delay %v, got %v", defaultInitialDelay, cfg.InitialDelay)
	}
	if cfg.MaxDelay != defaultMaxDelay {
		t.Errorf("expected max delay %v, got %v", defaultMaxDelay, cfg.MaxDelay)
	}
	if cfg.Jitter != defaultJitter {
		t.Errorf("expected jitter %v, got %v", defaultJitter, cfg.Jitter)
	}

	custom := BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Jitter:       0.5,
	}.withDefaults()
	if custom.InitialDelay != time.Second || custom.MaxDelay != time.Minute || custom.Jitter != 0.5 {
		t.Errorf("valid custom values should be kept, got %+v", custom)
	}

	bad := BackoffConfig{Jitter: 1.5}.withDefaults()
	if bad.Jitter != defaultJitter {
		t.Errorf("out-of-range jitter should reset to default, got %v", bad.Jitter)
	}
}

// --- Text validation Tests ---

func TestValidateText(t *testing.T) {
	if err := validateText("привет"); err != nil {
		t.Errorf("short text should pass: %v", err)
	}

	if err := validateText(""); !errors.Is(err, ErrTextEmpty) {
		t.Errorf("expected ErrTextEmpty, got %v", err)
	}

	// Ровно на границе — проходит
	exact := strings.Repeat("я", domain.MaxPostLength)
	if err := validateText(exact); err != nil {
		t.Errorf("text at the limit should pass: %v", err)
	}

	// На одну руну длиннее — нет
	over := strings.Repeat("я", domain.MaxPostLength+1)
	if err := validateText(over); !errors.Is(err, ErrTextTooLong) {
		t.Errorf("expected ErrTextTooLong, got %v", err)
	}
}

// --- Poll eligibility Tests ---

func TestRetryDue(t *testing.T) {
	w := &Worker{
		backoff: BackoffConfig{
			InitialDelay: time.Minute,
			MaxDelay:     time.Minute,
			Jitter:       0,
		},
	}
	now := time.Now()

	recent := now.Add(-30 * time.Second)
	if w.retryDue(&domain.Job{Attempt: 1, FinishedAt: &recent}, now) {
		t.Error("job inside backoff window should not be due")
	}

	old := now.Add(-61 * time.Second)
	if !w.retryDue(&domain.Job{Attempt: 1, FinishedAt: &old}, now) {
		t.Error("job past backoff window should be due")
	}

	if !w.retryDue(&domain.Job{Attempt: 1}, now) {
		t.Error("job without finished_at should be due")
	}
}

// --- Config Tests ---

func TestNew_Defaults(t *testing.T) {
	w := New(Config{})

	if w.pollInterval != defaultPollInterval {
		t.Errorf("expected poll interval %v, got %v", defaultPollInterval, w.pollInterval)
	}
	if w.batchSize != defaultBatchSize {
		t.Errorf("expected batch size %d, got %d", defaultBatchSize, w.batchSize)
	}
	if w.maxAttempts != defaultMaxAttempts {
		t.Errorf("expected max attempts %d, got %d", defaultMaxAttempts, w.maxAttempts)
	}
	if w.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
	if w.backoff.InitialDelay != defaultInitialDelay {
		t.Errorf("backoff defaults should apply, got %+v", w.backoff)
	}
}

func TestNew_CustomConfig(t *testing.T) {
	w := New(Config{
		PollInterval: time.Second,
		BatchSize:    7,
		MaxAttempts:  3,
	})

	if w.pollInterval != time.Second {
		t.Errorf("expected poll interval 1s, got %v", w.pollInterval)
	}
	if w.batchSize != 7 {
		t.Errorf("expected batch size 7, got %d", w.batchSize)
	}
	if w.maxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", w.maxAttempts)
	}
}
