package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowDefinition — версионированный шаблон рабочего процесса.
//
// Definition — это "рецепт": упорядоченный набор стадий (Stage) и переходов
// (Transition) между ними. Опубликованная версия никогда не изменяется:
// любая правка создаёт новую версию, а запущенные сессии остаются
// привязанными к своей версии навсегда.
type WorkflowDefinition struct {
	// ID — уникальный идентификатор definition (общий для всех версий).
	ID uuid.UUID `json:"id"`

	// Name — имя definition (например, "feature-delivery", "bugfix-review").
	Name string `json:"name"`

	// Version — номер версии (1, 2, 3, ...). Монотонно растёт при publish.
	Version int `json:"version"`

	// Stages — стадии этой версии.
	Stages []Stage `json:"stages"`

	// Transitions — переходы этой версии.
	Transitions []Transition `json:"transitions"`

	// CreatedAt — время публикации версии.
	CreatedAt time.Time `json:"created_at"`
}

// Stage — стадия внутри конкретной версии definition.
//
// Стадия описывает "что нужно сделать" на этом шаге процесса:
// чеклист и список ожидаемых артефактов.
type Stage struct {
	// ID — локальный идентификатор стадии внутри версии (например, "review").
	ID string `json:"id"`

	// Name — человекочитаемое имя стадии.
	Name string `json:"name"`

	// Ordinal — порядковый номер для отображения.
	Ordinal int `json:"ordinal"`

	// IsStart — true для стартовой стадии. Ровно одна на версию.
	IsStart bool `json:"is_start"`

	// IsTerminal — true, если завершение этой стадии завершает сессию.
	// Терминальных стадий может быть ноль или несколько.
	IsTerminal bool `json:"is_terminal"`

	// Checklist — упорядоченный список пунктов для выполнения.
	Checklist []string `json:"checklist,omitempty"`

	// Deliverables — упорядоченный список ожидаемых артефактов.
	Deliverables []string `json:"deliverables,omitempty"`
}

// Transition — направленный переход между двумя стадиями одной версии.
type Transition struct {
	// ID — локальный идентификатор перехода внутри версии.
	ID string `json:"id"`

	// FromStageID — стадия-источник.
	FromStageID string `json:"from"`

	// ToStageID — стадия-назначение.
	ToStageID string `json:"to"`

	// Condition — булево выражение в синтаксисе Go templates,
	// вычисляемое против контекста сессии и результата стадии.
	// Пустая строка означает "всегда истинно".
	// Примеры:
	//   ".Ctx.passed"
	//   "eq .Ctx.branch \"main\""
	//   "gt .Result.score 80"
	Condition string `json:"condition,omitempty"`

	// Priority — порядок при разрешении конкуренции переходов.
	// Меньшее значение — выше приоритет.
	Priority int `json:"priority"`
}

// WorkflowDefinitionDraft — черновик definition от пайплайна разбора правил.
//
// Draft приходит извне (конвертация rule-файлов) и превращается в новую
// версию через DefinitionStore.Publish после валидации.
type WorkflowDefinitionDraft struct {
	// Name — имя definition.
	Name string `json:"name"`

	// Stages — стадии черновика.
	Stages []Stage `json:"stages"`

	// Transitions — переходы черновика.
	Transitions []Transition `json:"transitions"`
}

// StageByID возвращает стадию по локальному ID. Второй результат — false,
// если стадии с таким ID в этой версии нет.
func (d *WorkflowDefinition) StageByID(id string) (*Stage, bool) {
	for i := range d.Stages {
		if d.Stages[i].ID == id {
			return &d.Stages[i], true
		}
	}
	return nil, false
}

// StartStage возвращает стартовую стадию версии.
func (d *WorkflowDefinition) StartStage() (*Stage, bool) {
	for i := range d.Stages {
		if d.Stages[i].IsStart {
			return &d.Stages[i], true
		}
	}
	return nil, false
}

// TransitionsFrom возвращает переходы, исходящие из стадии.
// Порядок не гарантируется — сортировку выполняет вызывающая сторона.
func (d *WorkflowDefinition) TransitionsFrom(stageID string) []Transition {
	var out []Transition
	for _, t := range d.Transitions {
		if t.FromStageID == stageID {
			out = append(out, t)
		}
	}
	return out
}
