package cli

import (
	"encoding/json"
	"testing"
)

// Проводной формат перехода, как его отдаёт API (domain.Transition).
func TestTransitionDTOMatchesWireFormat(t *testing.T) {
	wire := `{"id":"t-1","from":"draft","to":"review","condition":".Ctx.ready","priority":1}`

	var dto TransitionDTO
	if err := json.Unmarshal([]byte(wire), &dto); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if dto.From != "draft" || dto.To != "review" {
		t.Errorf("endpoints = %q/%q, want draft/review", dto.From, dto.To)
	}
	if dto.Condition != ".Ctx.ready" || dto.Priority != 1 {
		t.Errorf("condition/priority = %q/%d", dto.Condition, dto.Priority)
	}

	// Повторная сериализация сохраняет конечные точки
	out, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rt TransitionDTO
	if err := json.Unmarshal(out, &rt); err != nil {
		t.Fatalf("unmarshal round-trip: %v", err)
	}
	if rt.From != dto.From || rt.To != dto.To {
		t.Errorf("round-trip endpoints = %q/%q, want %q/%q", rt.From, rt.To, dto.From, dto.To)
	}
}

func TestDefinitionResponseDecodesTransitions(t *testing.T) {
	wire := `{
		"id": "b7e2a6a0-0000-0000-0000-000000000001",
		"name": "code-review",
		"version": 2,
		"stages": [{"id": "draft", "name": "Draft", "ordinal": 1, "is_start": true}],
		"transitions": [{"id": "t-1", "from": "draft", "to": "review", "priority": 0}],
		"created_at": "2025-06-01T12:00:00Z"
	}`

	var def DefinitionResponse
	if err := json.Unmarshal([]byte(wire), &def); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(def.Transitions) != 1 {
		t.Fatalf("transitions = %d, want 1", len(def.Transitions))
	}
	tr := def.Transitions[0]
	if tr.From == "" || tr.To == "" {
		t.Fatalf("lost endpoints: from=%q to=%q", tr.From, tr.To)
	}
	if tr.From != "draft" || tr.To != "review" {
		t.Errorf("endpoints = %q/%q, want draft/review", tr.From, tr.To)
	}
}
