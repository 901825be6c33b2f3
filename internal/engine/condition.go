package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// View — данные для вычисления условий переходов.
//
// Доступ из условий:
//   - {{ .Ctx.key }}     — объединённый вид: результат стадии поверх
//     контекста сессии (результат выигрывает при коллизии ключей)
//   - {{ .Session.key }} — только контекст сессии
//   - {{ .Result.key }}  — только результат завершённой стадии
type View struct {
	// Ctx — объединённый контекст.
	Ctx map[string]any `json:"ctx"`

	// Session — контекст сессии.
	Session map[string]any `json:"session"`

	// Result — result_context завершённой стадии.
	Result map[string]any `json:"result"`
}

// NewView строит View из контекста сессии и результата стадии.
// При коллизии ключей результат стадии перекрывает контекст сессии.
func NewView(sessionCtx, stageResult map[string]any) *View {
	merged := make(map[string]any, len(sessionCtx)+len(stageResult))
	for k, v := range sessionCtx {
		merged[k] = v
	}
	for k, v := range stageResult {
		merged[k] = v
	}
	return &View{
		Ctx:     merged,
		Session: sessionCtx,
		Result:  stageResult,
	}
}

// conditionFuncs — дополнительные функции для условий.
var conditionFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если второй аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v != nil {
				if s, ok := v.(string); ok && s == "" {
					continue
				}
				return v
			}
		}
		return nil
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
}

// CheckCondition проверяет, что условие парсится как выражение шаблона.
// Используется при publish для предупреждений; выполнение не производится.
func CheckCondition(condition string) error {
	if condition == "" {
		return nil
	}
	tmpl := fmt.Sprintf(`{{if %s}}true{{else}}false{{end}}`, condition)
	if _, err := template.New("").Funcs(conditionFuncs).Parse(tmpl); err != nil {
		return fmt.Errorf("%w: %v", ErrConditionParse, err)
	}
	return nil
}

// EvalCondition вычисляет условие перехода против View.
//
// Пустое условие всегда истинно. Условие — выражение Go template,
// оборачиваемое в if для получения bool:
//
//	".Ctx.passed"
//	"eq .Ctx.branch \"main\""
//	"gt .Result.score 80"
//
// Отсутствующий ключ карты даёт nil и условие вычисляется в false.
// Ошибка парсинга или выполнения возвращается вызывающему — политику
// fail-closed применяет Evaluator.
func EvalCondition(condition string, v *View) (bool, error) {
	if condition == "" {
		return true, nil
	}

	// Оборачиваем условие в if, чтобы получить bool
	tmpl := fmt.Sprintf(`{{if %s}}true{{else}}false{{end}}`, condition)

	t, err := template.New("").Funcs(conditionFuncs).Parse(tmpl)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConditionParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return false, fmt.Errorf("%w: %v", ErrConditionEval, err)
	}

	return buf.String() == "true", nil
}
