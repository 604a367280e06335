package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "jobs_schedule_id_planned_at_key"}
	if !isUniqueViolation(dup) {
		t.Error("23505 should be recognized as unique violation")
	}

	// Обёрнутая ошибка тоже распознаётся
	wrapped := fmt.Errorf("insert job: %w", dup)
	if !isUniqueViolation(wrapped) {
		t.Error("wrapped 23505 should be recognized")
	}

	other := &pgconn.PgError{Code: "23503"}
	if isUniqueViolation(other) {
		t.Error("foreign key violation is not a unique violation")
	}

	if isUniqueViolation(errors.New("plain error")) {
		t.Error("plain error is not a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("nil is not a unique violation")
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("") != nil {
		t.Error("empty string should map to nil")
	}
	if v := nullString("x"); v == nil || *v != "x" {
		t.Error("non-empty string should pass through")
	}

	if nullUUID(nil) != nil {
		t.Error("nil uuid pointer should stay nil")
	}
}
