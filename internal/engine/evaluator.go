package engine

import (
	"log/slog"
	"sort"

	"github.com/shaiso/Stagehand/internal/domain"
)

// Evaluator решает, какие переходы доступны после завершения стадии.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator создаёт новый Evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger}
}

// Evaluate возвращает ID целевых стадий доступных переходов.
//
// Алгоритм:
//  1. Отфильтровать переходы, чьё условие истинно против объединённого
//     вида (результат стадии поверх контекста сессии).
//  2. Отсортировать по priority (возрастание), затем по transition_id.
//  3. Вернуть цели без дубликатов, в этом порядке.
//
// Условие, которое не парсится или падает при вычислении, считается
// ложным (fail-closed) и логируется: один сломанный переход не должен
// прерывать вычисление остальных. Пустой результат — сигнал вызывающему,
// а не ошибка.
func (e *Evaluator) Evaluate(transitions []domain.Transition, sessionCtx, stageResult map[string]any) []string {
	view := NewView(sessionCtx, stageResult)

	eligible := make([]domain.Transition, 0, len(transitions))
	for _, t := range transitions {
		ok, err := EvalCondition(t.Condition, view)
		if err != nil {
			e.logger.Warn("transition condition failed, treating as false",
				"transition_id", t.ID,
				"condition", t.Condition,
				"error", err,
			)
			continue
		}
		if ok {
			eligible = append(eligible, t)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority < eligible[j].Priority
		}
		return eligible[i].ID < eligible[j].ID
	})

	seen := make(map[string]bool, len(eligible))
	targets := make([]string, 0, len(eligible))
	for _, t := range eligible {
		if seen[t.ToStageID] {
			continue
		}
		seen[t.ToStageID] = true
		targets = append(targets, t.ToStageID)
	}
	return targets
}
