package content

import (
	"errors"
	"testing"
	"time"
)

func testContext() *Context {
	// Понедельник, 3 июня 2024, 09:30
	return NewContext("morning-promo", time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC))
}

func TestRender_PlainText(t *testing.T) {
	text := "Обычный текст без подстановок"
	got, err := Render(text, testContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != text {
		t.Errorf("plain text should pass through, got %q", got)
	}
}

func TestRender_TimeHelpers(t *testing.T) {
	ctx := testContext()

	cases := []struct {
		tmpl string
		want string
	}{
		{"Сегодня {{ weekday .PlannedAt }}", "Сегодня понедельник"},
		{"Дата: {{ date .PlannedAt }}", "Дата: 03.06.2024"},
		{"Время: {{ time .PlannedAt }}", "Время: 09:30"},
		{"{{ .Schedule }}", "morning-promo"},
	}
	for _, tc := range cases {
		got, err := Render(tc.tmpl, ctx)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.tmpl, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.tmpl, tc.want, got)
		}
	}
}

func TestRender_Env(t *testing.T) {
	ctx := testContext()
	ctx.SetEnv("SHOP_URL", "https://example.com")

	got, err := Render("Подробности: {{ .Env.SHOP_URL }}", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Подробности: https://example.com" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestRender_StringHelpers(t *testing.T) {
	ctx := testContext()

	got, err := Render(`{{ upper "скидка" }} {{ default "сегодня" "" }}`, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "СКИДКА сегодня" {
		t.Errorf("unexpected result: %q", got)
	}

	got, err = Render(`{{ coalesce "" "первое" "второе" }}`, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "первое" {
		t.Errorf("coalesce: expected %q, got %q", "первое", got)
	}
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{ .Broken", testContext())
	if !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
}

func TestRender_RenderError(t *testing.T) {
	// weekday ожидает time.Time, передаём строку
	_, err := Render("{{ weekday .Schedule }}", testContext())
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}

func TestMustRender_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustRender should panic on invalid template")
		}
	}()
	MustRender("{{ .Broken", testContext())
}
