package engine

import (
	"errors"
	"testing"
)

func TestEvalCondition(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		session   map[string]any
		result    map[string]any
		want      bool
	}{
		{
			name:      "empty condition is always true",
			condition: "",
			want:      true,
		},
		{
			name:      "bool key from merged ctx",
			condition: ".Ctx.passed",
			session:   map[string]any{"passed": true},
			want:      true,
		},
		{
			name:      "bool key false",
			condition: ".Ctx.passed",
			session:   map[string]any{"passed": false},
			want:      false,
		},
		{
			name:      "missing key is false",
			condition: ".Ctx.missing",
			session:   map[string]any{"passed": true},
			want:      false,
		},
		{
			name:      "result overrides session in merged ctx",
			condition: `eq .Ctx.branch "release"`,
			session:   map[string]any{"branch": "main"},
			result:    map[string]any{"branch": "release"},
			want:      true,
		},
		{
			name:      "session view is untouched by result",
			condition: `eq .Session.branch "main"`,
			session:   map[string]any{"branch": "main"},
			result:    map[string]any{"branch": "release"},
			want:      true,
		},
		{
			name:      "numeric comparison on result",
			condition: "gt .Result.score 80",
			result:    map[string]any{"score": 93},
			want:      true,
		},
		{
			name:      "numeric comparison below threshold",
			condition: "gt .Result.score 80",
			result:    map[string]any{"score": 42},
			want:      false,
		},
		{
			name:      "contains helper",
			condition: `contains .Ctx.tags "urgent"`,
			session:   map[string]any{"tags": "urgent,review"},
			want:      true,
		},
		{
			name:      "lower helper with eq",
			condition: `eq (lower .Ctx.env) "prod"`,
			session:   map[string]any{"env": "PROD"},
			want:      true,
		},
		{
			name:      "default helper fills missing string",
			condition: `eq (default "dev" .Ctx.env) "dev"`,
			session:   map[string]any{},
			want:      true,
		},
		{
			name:      "and of two keys",
			condition: "and .Ctx.approved .Ctx.tested",
			session:   map[string]any{"approved": true, "tested": true},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.condition, NewView(tt.session, tt.result))
			if err != nil {
				t.Fatalf("EvalCondition(%q) error: %v", tt.condition, err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition(%q) = %v, want %v", tt.condition, got, tt.want)
			}
		})
	}
}

func TestEvalConditionParseError(t *testing.T) {
	_, err := EvalCondition("{{broken", NewView(nil, nil))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !errors.Is(err, ErrConditionParse) {
		t.Errorf("expected ErrConditionParse, got %v", err)
	}
}

func TestEvalConditionEvalError(t *testing.T) {
	// gt с nil операндом падает при выполнении, не при парсинге
	_, err := EvalCondition("gt .Result.score 80", NewView(nil, nil))
	if err == nil {
		t.Fatal("expected eval error")
	}
	if !errors.Is(err, ErrConditionEval) {
		t.Errorf("expected ErrConditionEval, got %v", err)
	}
}

func TestCheckCondition(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		wantErr   bool
	}{
		{"empty", "", false},
		{"plain key", ".Ctx.passed", false},
		{"comparison", `eq .Ctx.branch "main"`, false},
		{"helper call", `contains .Ctx.tags "x"`, false},
		{"unknown function", "frobnicate .Ctx.x", true},
		{"unbalanced braces", "{{.Ctx.x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCondition(tt.condition)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckCondition(%q) error = %v, wantErr %v", tt.condition, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrConditionParse) {
				t.Errorf("expected ErrConditionParse, got %v", err)
			}
		})
	}
}
