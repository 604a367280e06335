package reaper

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	r := New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if r.sweepInterval != defaultSweepInterval {
		t.Errorf("expected sweep interval %v, got %v", defaultSweepInterval, r.sweepInterval)
	}
	if r.batchSize != defaultBatchSize {
		t.Errorf("expected batch size %d, got %d", defaultBatchSize, r.batchSize)
	}
	if r.maxAttempts != defaultMaxAttempts {
		t.Errorf("expected max attempts %d, got %d", defaultMaxAttempts, r.maxAttempts)
	}
	if r.staleRunningTTL != defaultStaleRunningTTL {
		t.Errorf("expected stale running TTL %v, got %v", defaultStaleRunningTTL, r.staleRunningTTL)
	}
	if r.stuckPlannedTTL != defaultStuckPlannedTTL {
		t.Errorf("expected stuck planned TTL %v, got %v", defaultStuckPlannedTTL, r.stuckPlannedTTL)
	}
}

func TestNew_CustomConfig(t *testing.T) {
	r := New(Config{
		SweepInterval:   5 * time.Second,
		BatchSize:       10,
		MaxAttempts:     3,
		StaleRunningTTL: time.Minute,
		StuckPlannedTTL: 30 * time.Second,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if r.sweepInterval != 5*time.Second {
		t.Errorf("expected sweep interval 5s, got %v", r.sweepInterval)
	}
	if r.batchSize != 10 {
		t.Errorf("expected batch size 10, got %d", r.batchSize)
	}
	if r.maxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", r.maxAttempts)
	}
	if r.staleRunningTTL != time.Minute {
		t.Errorf("expected stale running TTL 1m, got %v", r.staleRunningTTL)
	}
	if r.stuckPlannedTTL != 30*time.Second {
		t.Errorf("expected stuck planned TTL 30s, got %v", r.stuckPlannedTTL)
	}
}
