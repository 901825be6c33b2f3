package engine

import (
	"reflect"
	"testing"

	"github.com/shaiso/Stagehand/internal/domain"
)

func TestEvaluateFiltersByCondition(t *testing.T) {
	ev := NewEvaluator(nil)

	transitions := []domain.Transition{
		{ID: "t-pass", FromStageID: "review", ToStageID: "deploy", Condition: ".Ctx.approved"},
		{ID: "t-fail", FromStageID: "review", ToStageID: "rework", Condition: "not .Ctx.approved"},
	}

	got := ev.Evaluate(transitions, map[string]any{}, map[string]any{"approved": true})
	want := []string{"deploy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}

	got = ev.Evaluate(transitions, map[string]any{}, map[string]any{"approved": false})
	want = []string{"rework"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}
}

func TestEvaluateOrdersByPriorityThenID(t *testing.T) {
	ev := NewEvaluator(nil)

	transitions := []domain.Transition{
		{ID: "t-c", FromStageID: "a", ToStageID: "third", Priority: 20},
		{ID: "t-b", FromStageID: "a", ToStageID: "second", Priority: 10},
		{ID: "t-a", FromStageID: "a", ToStageID: "first", Priority: 10},
	}

	got := ev.Evaluate(transitions, nil, nil)
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}
}

func TestEvaluateDeduplicatesTargets(t *testing.T) {
	ev := NewEvaluator(nil)

	// Два перехода на одну стадию: цель появляется один раз,
	// на позиции перехода с меньшим приоритетом.
	transitions := []domain.Transition{
		{ID: "t-1", FromStageID: "a", ToStageID: "b", Priority: 1},
		{ID: "t-2", FromStageID: "a", ToStageID: "c", Priority: 2},
		{ID: "t-3", FromStageID: "a", ToStageID: "b", Priority: 3},
	}

	got := ev.Evaluate(transitions, nil, nil)
	want := []string{"b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}
}

func TestEvaluateBrokenConditionIsFailClosed(t *testing.T) {
	ev := NewEvaluator(nil)

	transitions := []domain.Transition{
		{ID: "t-broken", FromStageID: "a", ToStageID: "b", Condition: "frobnicate .Ctx.x"},
		{ID: "t-ok", FromStageID: "a", ToStageID: "c"},
	}

	// Сломанное условие не прерывает вычисление остальных переходов.
	got := ev.Evaluate(transitions, nil, nil)
	want := []string{"c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate() = %v, want %v", got, want)
	}
}

func TestEvaluateNoTransitions(t *testing.T) {
	ev := NewEvaluator(nil)

	if got := ev.Evaluate(nil, nil, nil); len(got) != 0 {
		t.Errorf("Evaluate(nil) = %v, want empty", got)
	}
}
