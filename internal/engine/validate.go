package engine

import (
	"fmt"

	"github.com/shaiso/Stagehand/internal/domain"
)

// ValidateDraft выполняет полную валидацию черновика definition.
//
// Проверяет:
//   - Наличие стадий
//   - Непустые и уникальные ID стадий
//   - Ровно одну стартовую стадию
//   - Непустые и уникальные ID переходов
//   - Что концы каждого перехода ссылаются на стадии черновика
//
// Циклы не проверяются: петли с пустым условием — легитимные retry-циклы,
// они попадают в Warnings, а не в ошибки.
func ValidateDraft(draft *domain.WorkflowDefinitionDraft) error {
	if draft == nil || len(draft.Stages) == 0 {
		return ErrEmptyStages
	}

	stageIDs := make(map[string]bool, len(draft.Stages))
	startCount := 0

	for i := range draft.Stages {
		s := &draft.Stages[i]

		if s.ID == "" {
			return NewValidationError("", "id", "stage has empty ID", ErrEmptyStageID)
		}
		if stageIDs[s.ID] {
			return NewValidationError(s.ID, "id",
				fmt.Sprintf("duplicate stage ID: %s", s.ID), ErrDuplicateStageID)
		}
		stageIDs[s.ID] = true

		if s.IsStart {
			startCount++
		}
	}

	if startCount == 0 {
		return NewValidationError("", "is_start", "draft has no start stage", ErrNoStartStage)
	}
	if startCount > 1 {
		return NewValidationError("", "is_start",
			fmt.Sprintf("draft has %d start stages, expected exactly one", startCount), ErrMultipleStartStages)
	}

	transitionIDs := make(map[string]bool, len(draft.Transitions))
	for i := range draft.Transitions {
		t := &draft.Transitions[i]

		if t.ID == "" {
			return NewValidationError("", "id", "transition has empty ID", ErrEmptyTransitionID)
		}
		if transitionIDs[t.ID] {
			return NewValidationError(t.ID, "id",
				fmt.Sprintf("duplicate transition ID: %s", t.ID), ErrDuplicateTransitionID)
		}
		transitionIDs[t.ID] = true

		if !stageIDs[t.FromStageID] {
			return NewValidationError(t.ID, "from",
				fmt.Sprintf("transition %s references unknown stage %q", t.ID, t.FromStageID), ErrDanglingTransition)
		}
		if !stageIDs[t.ToStageID] {
			return NewValidationError(t.ID, "to",
				fmt.Sprintf("transition %s references unknown stage %q", t.ID, t.ToStageID), ErrDanglingTransition)
		}
	}

	return nil
}

// Warnings анализирует граф черновика и возвращает нефатальные замечания.
//
// Замечания не блокируют publish:
//   - петля стадия→та же стадия (retry-цикл)
//   - стадия, недостижимая из стартовой
//   - условие, которое не парсится (в рантайме оно вычислится в false)
func Warnings(draft *domain.WorkflowDefinitionDraft) []string {
	var warnings []string

	for _, t := range draft.Transitions {
		if t.FromStageID == t.ToStageID {
			warnings = append(warnings,
				fmt.Sprintf("transition %s is a self-loop on stage %q (retry loop)", t.ID, t.FromStageID))
		}
		if err := CheckCondition(t.Condition); err != nil {
			warnings = append(warnings,
				fmt.Sprintf("transition %s condition does not parse and will always evaluate false: %v", t.ID, err))
		}
	}

	// Обход графа от стартовой стадии
	adjacent := make(map[string][]string)
	for _, t := range draft.Transitions {
		adjacent[t.FromStageID] = append(adjacent[t.FromStageID], t.ToStageID)
	}

	var startID string
	for _, s := range draft.Stages {
		if s.IsStart {
			startID = s.ID
			break
		}
	}

	reachable := map[string]bool{startID: true}
	queue := []string{startID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adjacent[current] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, s := range draft.Stages {
		if !reachable[s.ID] {
			warnings = append(warnings,
				fmt.Sprintf("stage %q is not reachable from the start stage", s.ID))
		}
	}

	return warnings
}
