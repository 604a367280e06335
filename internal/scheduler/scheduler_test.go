package scheduler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ruporhq/rupor/internal/dedupe"
)

func TestNew(t *testing.T) {
	s := New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if s.batchSize != 100 {
		t.Errorf("expected default batch size 100, got %d", s.batchSize)
	}
	if s.guard == nil {
		t.Error("guard should default to NopGuard")
	}
	if _, ok := s.guard.(dedupe.NopGuard); !ok {
		t.Errorf("expected NopGuard, got %T", s.guard)
	}
	if s.resolver == nil {
		t.Error("resolver should be created by default")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	guard := dedupe.NopGuard{}
	s := New(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Guard:     guard,
		BatchSize: 7,
	})

	if s.batchSize != 7 {
		t.Errorf("expected batch size 7, got %d", s.batchSize)
	}
	if s.guard != guard {
		t.Error("custom guard should be kept")
	}
}
