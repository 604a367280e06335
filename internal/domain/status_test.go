package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	all := []JobStatus{
		JobStatusPlanned, JobStatusEnqueued, JobStatusRunning,
		JobStatusSucceeded, JobStatusFailed, JobStatusDeadLetter, JobStatusCancelled,
	}

	// Полная таблица допустимых переходов
	allowed := map[JobStatus][]JobStatus{
		JobStatusPlanned:  {JobStatusEnqueued, JobStatusCancelled},
		JobStatusEnqueued: {JobStatusRunning, JobStatusCancelled},
		JobStatusRunning:  {JobStatusSucceeded, JobStatusFailed},
		JobStatusFailed:   {JobStatusRunning, JobStatusDeadLetter},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusSucceeded, JobStatusDeadLetter, JobStatusCancelled}
	nonTerminal := []JobStatus{JobStatusPlanned, JobStatusEnqueued, JobStatusRunning, JobStatusFailed}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParseJobStatus(t *testing.T) {
	if _, err := ParseJobStatus("RUNNING"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseJobStatus("EXPLODED"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestJob_TransitionTo_FullLifecycle(t *testing.T) {
	job := &Job{
		ID:         uuid.New(),
		ScheduleID: uuid.New(),
		PlannedAt:  time.Now().UTC(),
		Status:     JobStatusPlanned,
	}

	if err := job.TransitionTo(JobStatusEnqueued, ""); err != nil {
		t.Fatalf("planned -> enqueued: %v", err)
	}
	if job.EnqueuedAt == nil {
		t.Error("EnqueuedAt should be set")
	}

	if err := job.TransitionTo(JobStatusRunning, ""); err != nil {
		t.Fatalf("enqueued -> running: %v", err)
	}
	if job.Attempt != 1 {
		t.Errorf("expected attempt 1, got %d", job.Attempt)
	}
	if job.StartedAt == nil {
		t.Error("StartedAt should be set")
	}

	if err := job.TransitionTo(JobStatusFailed, "rate limited"); err != nil {
		t.Fatalf("running -> failed: %v", err)
	}
	if job.Error != "rate limited" {
		t.Errorf("expected error text, got %q", job.Error)
	}
	if job.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}

	// Retry: attempt увеличивается при повторном входе в RUNNING
	if err := job.TransitionTo(JobStatusRunning, ""); err != nil {
		t.Fatalf("failed -> running: %v", err)
	}
	if job.Attempt != 2 {
		t.Errorf("expected attempt 2 after retry, got %d", job.Attempt)
	}
	if job.FinishedAt != nil {
		t.Error("FinishedAt should be cleared on re-entry into running")
	}

	if err := job.TransitionTo(JobStatusSucceeded, ""); err != nil {
		t.Fatalf("running -> succeeded: %v", err)
	}
	if !job.IsFinished() {
		t.Error("job should be finished")
	}
}

func TestJob_TransitionTo_Invalid(t *testing.T) {
	job := &Job{Status: JobStatusSucceeded}

	err := job.TransitionTo(JobStatusRunning, "")
	if err == nil {
		t.Fatal("expected error for succeeded -> running")
	}

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %T", err)
	}
	if te.From != JobStatusSucceeded || te.To != JobStatusRunning {
		t.Errorf("unexpected pair: %s -> %s", te.From, te.To)
	}

	// Сообщение называет оба статуса
	if !strings.Contains(err.Error(), string(JobStatusSucceeded)) ||
		!strings.Contains(err.Error(), string(JobStatusRunning)) {
		t.Errorf("error message should name both states: %q", err.Error())
	}

	// Job не изменился
	if job.Status != JobStatusSucceeded {
		t.Errorf("status should be untouched, got %s", job.Status)
	}
	if job.Attempt != 0 {
		t.Errorf("attempt should be untouched, got %d", job.Attempt)
	}
}

func TestJob_TransitionTo_Cancel(t *testing.T) {
	for _, from := range []JobStatus{JobStatusPlanned, JobStatusEnqueued} {
		job := &Job{Status: from}
		if err := job.TransitionTo(JobStatusCancelled, ""); err != nil {
			t.Errorf("%s -> cancelled: %v", from, err)
		}
	}

	// Из RUNNING отмена не допускается
	job := &Job{Status: JobStatusRunning}
	if err := job.TransitionTo(JobStatusCancelled, ""); err == nil {
		t.Error("running -> cancelled should be rejected")
	}
}

func TestJob_TransitionTo_DeadLetter(t *testing.T) {
	job := &Job{Status: JobStatusFailed, Error: "boom", Attempt: 5}

	if err := job.TransitionTo(JobStatusDeadLetter, ""); err != nil {
		t.Fatalf("failed -> dead_letter: %v", err)
	}
	if job.Error != "boom" {
		t.Errorf("last error should survive dead-lettering, got %q", job.Error)
	}
	if job.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
	if !job.Status.IsTerminal() {
		t.Error("dead_letter should be terminal")
	}
}

func TestParseSelectionPolicy(t *testing.T) {
	for _, s := range []string{"uniform_random", "weighted_random", "round_robin", "no_repeat_window"} {
		if _, err := ParseSelectionPolicy(s); err != nil {
			t.Errorf("%s: unexpected error: %v", s, err)
		}
	}
	if _, err := ParseSelectionPolicy("coin_flip"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestSchedule_IsDue(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	sched := &Schedule{Enabled: true, NextRunAt: &past}
	if !sched.IsDue(now) {
		t.Error("schedule with past next_run_at should be due")
	}

	sched.NextRunAt = &future
	if sched.IsDue(now) {
		t.Error("schedule with future next_run_at should not be due")
	}

	sched.NextRunAt = &now
	if !sched.IsDue(now) {
		t.Error("next_run_at == now should be due")
	}

	sched.Enabled = false
	if sched.IsDue(now) {
		t.Error("disabled schedule should never be due")
	}

	sched.Enabled = true
	sched.NextRunAt = nil
	if sched.IsDue(now) {
		t.Error("uninitialized schedule should not be due")
	}
}

func TestSchedule_Disable(t *testing.T) {
	next := time.Now()
	sched := &Schedule{Enabled: true, NextRunAt: &next}

	sched.Disable()

	if sched.Enabled {
		t.Error("schedule should be disabled")
	}
	if sched.NextRunAt != nil {
		t.Error("next_run_at should be cleared")
	}
}

func TestSchedule_Cursor(t *testing.T) {
	sched := &Schedule{}
	if got := sched.Cursor(); got != -1 {
		t.Errorf("expected -1 for fresh schedule, got %d", got)
	}

	sched.SetCursor(2)
	if got := sched.Cursor(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}
