package content

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Context — контекст подстановок в тексте публикации.
//
// Доступен в Go templates:
//   - {{ .Schedule }}  — имя расписания
//   - {{ .PlannedAt }} — плановое время в timezone расписания
//   - {{ .Env.NAME }}  — переменная окружения процесса
type Context struct {
	// Schedule — имя расписания, породившего публикацию.
	Schedule string `json:"schedule"`

	// PlannedAt — плановое время публикации в timezone расписания.
	PlannedAt time.Time `json:"planned_at"`

	// Env — переменные окружения.
	Env map[string]string `json:"env"`
}

// NewContext создаёт контекст для рендеринга.
func NewContext(schedule string, plannedAt time.Time) *Context {
	return &Context{
		Schedule:  schedule,
		PlannedAt: plannedAt,
		Env:       make(map[string]string),
	}
}

// SetEnv устанавливает переменную окружения.
func (c *Context) SetEnv(key, value string) {
	c.Env[key] = value
}

// weekdays — русские названия дней недели, индекс — time.Weekday.
var weekdays = [...]string{
	"воскресенье", "понедельник", "вторник", "среда",
	"четверг", "пятница", "суббота",
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// date — форматирует дату как 02.01.2006
	"date": func(t time.Time) string {
		return t.Format("02.01.2006")
	},

	// time — форматирует время как 15:04
	"time": func(t time.Time) string {
		return t.Format("15:04")
	},

	// weekday — русское название дня недели
	"weekday": func(t time.Time) string {
		return weekdays[int(t.Weekday())]
	},

	// default — возвращает значение по умолчанию, если аргумент пустой
	"default": func(def, val string) string {
		if val == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...string) string {
		for _, v := range values {
			if v != "" {
				return v
			}
		}
		return ""
	},

	// join — объединяет слайс строк
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},

	// split — разбивает строку на слайс
	"split": func(sep, s string) []string {
		return strings.Split(s, sep)
	},

	// contains — проверяет, содержит ли строка подстроку
	"contains": strings.Contains,

	// hasPrefix — проверяет префикс строки
	"hasPrefix": strings.HasPrefix,

	// hasSuffix — проверяет суффикс строки
	"hasSuffix": strings.HasSuffix,

	// lower — приводит к нижнему регистру
	"lower": strings.ToLower,

	// upper — приводит к верхнему регистру
	"upper": strings.ToUpper,

	// trim — удаляет пробелы по краям
	"trim": strings.TrimSpace,

	// replace — заменяет подстроку
	"replace": strings.ReplaceAll,
}

// Render раскрывает подстановки в тексте публикации.
//
// Текст может содержать Go template выражения:
//
//	Открыто до 20:00, сегодня {{ weekday .PlannedAt }}
//	{{ .Env.SHOP_URL }}
//
// Текст без "{{" возвращается как есть без парсинга.
func Render(text string, ctx *Context) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// MustRender рендерит текст и паникует при ошибке.
// Используется только для тестов.
func MustRender(text string, ctx *Context) string {
	result, err := Render(text, ctx)
	if err != nil {
		panic(err)
	}
	return result
}
