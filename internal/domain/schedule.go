package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduleKind — тип правила повторения.
type ScheduleKind string

const (
	// ScheduleKindOneShot — одно срабатывание в заданный момент.
	ScheduleKindOneShot ScheduleKind = "one_shot"

	// ScheduleKindCron — повторение по cron-выражению.
	ScheduleKindCron ScheduleKind = "cron"

	// ScheduleKindRule — повторение по iCal RRULE (RFC 5545).
	ScheduleKindRule ScheduleKind = "recurrence_rule"
)

// SelectionPolicy — политика выбора варианта контента.
// Закрытый набор: строка из БД парсится один раз при загрузке schedule.
type SelectionPolicy string

const (
	// SelectionUniform — равновероятный выбор из пула.
	SelectionUniform SelectionPolicy = "uniform_random"

	// SelectionWeighted — выбор с вероятностью, пропорциональной весу варианта.
	SelectionWeighted SelectionPolicy = "weighted_random"

	// SelectionRoundRobin — циклический обход пула, курсор хранится на schedule.
	SelectionRoundRobin SelectionPolicy = "round_robin"

	// SelectionNoRepeat — равновероятный выбор с исключением недавних вариантов.
	SelectionNoRepeat SelectionPolicy = "no_repeat_window"
)

// ParseSelectionPolicy парсит строку в SelectionPolicy.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch SelectionPolicy(s) {
	case SelectionUniform, SelectionWeighted, SelectionRoundRobin, SelectionNoRepeat:
		return SelectionPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown selection policy: %q", s)
	}
}

// NoRepeatScope — область действия окна неповторения.
type NoRepeatScope string

const (
	// ScopeSchedule — окно считается по выборкам одного schedule.
	ScopeSchedule NoRepeatScope = "schedule"

	// ScopeTemplate — окно считается по всем выборкам шаблона.
	ScopeTemplate NoRepeatScope = "template"
)

// Schedule — расписание публикаций.
//
// Schedule описывает, когда публиковать (Kind + Expr + Timezone) и что
// публиковать: либо фиксированный пост (PostID), либо шаблон с вариантами
// (TemplateID + политика выбора). Ровно одно из двух задано.
//
// Scheduler проверяет next_run_at и создаёт job, когда время подошло.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// Name — имя расписания для удобства.
	Name string `json:"name,omitempty"`

	// Kind — тип правила повторения.
	Kind ScheduleKind `json:"kind"`

	// Expr — правило повторения. Формат зависит от Kind:
	//   one_shot:        "2024-06-01T12:00:00Z" (RFC 3339)
	//   cron:            "0 9 * * *"
	//   recurrence_rule: "FREQ=DAILY;BYHOUR=9;BYMINUTE=0"
	Expr string `json:"expr"`

	// Timezone — IANA-зона, в которой вычисляется локальное время правила.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone"`

	// PostID — фиксированный контент. Задано либо PostID, либо TemplateID.
	PostID *uuid.UUID `json:"post_id,omitempty"`

	// TemplateID — шаблон с вариантами контента.
	TemplateID *uuid.UUID `json:"template_id,omitempty"`

	// SelectionPolicy — политика выбора варианта (для шаблонных расписаний).
	SelectionPolicy SelectionPolicy `json:"selection_policy,omitempty"`

	// NoRepeatWindow — размер окна неповторения: последние N выборок.
	NoRepeatWindow int `json:"no_repeat_window,omitempty"`

	// NoRepeatScope — область окна: schedule или template.
	NoRepeatScope NoRepeatScope `json:"no_repeat_scope,omitempty"`

	// LastVariantPos — курсор round_robin: позиция последнего выбранного
	// варианта в отсортированном пуле. nil — выборок ещё не было.
	LastVariantPos *int `json:"last_variant_pos,omitempty"`

	// Enabled — флаг активности. Выключенные расписания тик игнорирует.
	// Сбрасывается тиком при исчерпании правила или невалидном Expr.
	Enabled bool `json:"enabled"`

	// NextRunAt — момент следующего срабатывания (UTC).
	// nil у новых и только что включённых расписаний до инициализации.
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// LastRunAt — момент последнего срабатывания.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastJobID — ID последнего созданного job.
	LastJobID *uuid.UUID `json:"last_job_id,omitempty"`

	// CreatedAt — время создания. Для RRULE служит базой derived start.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTemplateBased возвращает true, если контент выбирается из вариантов шаблона.
func (s *Schedule) IsTemplateBased() bool {
	return s.TemplateID != nil
}

// IsDue проверяет, пора ли срабатывать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled || s.NextRunAt == nil {
		return false
	}
	return !now.Before(*s.NextRunAt)
}

// RecordFiring записывает информацию о срабатывании.
func (s *Schedule) RecordFiring(jobID uuid.UUID, firedAt time.Time) {
	s.LastRunAt = &firedAt
	s.LastJobID = &jobID
	s.UpdatedAt = time.Now()
}

// AdvanceTo переносит next_run_at на следующий момент срабатывания.
func (s *Schedule) AdvanceTo(next time.Time) {
	s.NextRunAt = &next
	s.UpdatedAt = time.Now()
}

// Disable выключает расписание и сбрасывает next_run_at.
func (s *Schedule) Disable() {
	s.Enabled = false
	s.NextRunAt = nil
	s.UpdatedAt = time.Now()
}

// Cursor возвращает курсор round_robin (-1, если выборок ещё не было).
func (s *Schedule) Cursor() int {
	if s.LastVariantPos == nil {
		return -1
	}
	return *s.LastVariantPos
}

// SetCursor сохраняет позицию последнего выбранного варианта.
func (s *Schedule) SetCursor(pos int) {
	s.LastVariantPos = &pos
	s.UpdatedAt = time.Now()
}
