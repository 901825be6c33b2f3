package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/Stagehand/internal/domain"
)

func validDraft() *domain.WorkflowDefinitionDraft {
	return &domain.WorkflowDefinitionDraft{
		Name: "code-review",
		Stages: []domain.Stage{
			{ID: "draft", Name: "Draft", Ordinal: 1, IsStart: true},
			{ID: "review", Name: "Review", Ordinal: 2},
			{ID: "done", Name: "Done", Ordinal: 3, IsTerminal: true},
		},
		Transitions: []domain.Transition{
			{ID: "t-1", FromStageID: "draft", ToStageID: "review"},
			{ID: "t-2", FromStageID: "review", ToStageID: "done", Condition: ".Ctx.approved"},
		},
	}
}

func TestValidateDraftOK(t *testing.T) {
	if err := ValidateDraft(validDraft()); err != nil {
		t.Fatalf("ValidateDraft() error: %v", err)
	}
}

func TestValidateDraftErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *domain.WorkflowDefinitionDraft)
		wantErr error
	}{
		{
			name:    "nil draft",
			mutate:  nil,
			wantErr: ErrEmptyStages,
		},
		{
			name:    "no stages",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Stages = nil },
			wantErr: ErrEmptyStages,
		},
		{
			name:    "empty stage id",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Stages[1].ID = "" },
			wantErr: ErrEmptyStageID,
		},
		{
			name:    "duplicate stage id",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Stages[1].ID = "draft" },
			wantErr: ErrDuplicateStageID,
		},
		{
			name:    "no start stage",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Stages[0].IsStart = false },
			wantErr: ErrNoStartStage,
		},
		{
			name:    "two start stages",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Stages[1].IsStart = true },
			wantErr: ErrMultipleStartStages,
		},
		{
			name:    "empty transition id",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Transitions[0].ID = "" },
			wantErr: ErrEmptyTransitionID,
		},
		{
			name:    "duplicate transition id",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Transitions[1].ID = "t-1" },
			wantErr: ErrDuplicateTransitionID,
		},
		{
			name:    "dangling from",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Transitions[0].FromStageID = "ghost" },
			wantErr: ErrDanglingTransition,
		},
		{
			name:    "dangling to",
			mutate:  func(d *domain.WorkflowDefinitionDraft) { d.Transitions[1].ToStageID = "ghost" },
			wantErr: ErrDanglingTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var draft *domain.WorkflowDefinitionDraft
			if tt.mutate != nil {
				draft = validDraft()
				tt.mutate(draft)
			}

			err := ValidateDraft(draft)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDraft() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDraftAllowsCycles(t *testing.T) {
	draft := validDraft()
	// review → draft: цикл переработки, легитимный
	draft.Transitions = append(draft.Transitions,
		domain.Transition{ID: "t-rework", FromStageID: "review", ToStageID: "draft"})

	if err := ValidateDraft(draft); err != nil {
		t.Fatalf("ValidateDraft() rejected cycle: %v", err)
	}
}

func TestWarnings(t *testing.T) {
	draft := validDraft()
	draft.Stages = append(draft.Stages, domain.Stage{ID: "orphan", Name: "Orphan", Ordinal: 4})
	draft.Transitions = append(draft.Transitions,
		domain.Transition{ID: "t-retry", FromStageID: "review", ToStageID: "review"},
		domain.Transition{ID: "t-bad", FromStageID: "draft", ToStageID: "done", Condition: "frobnicate .Ctx.x"},
	)

	warnings := Warnings(draft)
	if len(warnings) != 3 {
		t.Fatalf("Warnings() returned %d warnings, want 3: %v", len(warnings), warnings)
	}

	assertWarning := func(substr string) {
		t.Helper()
		for _, w := range warnings {
			if strings.Contains(w, substr) {
				return
			}
		}
		t.Errorf("no warning containing %q in %v", substr, warnings)
	}

	assertWarning("self-loop")
	assertWarning("orphan")
	assertWarning("does not parse")
}

func TestWarningsCleanDraft(t *testing.T) {
	if warnings := Warnings(validDraft()); len(warnings) != 0 {
		t.Errorf("Warnings() = %v, want none", warnings)
	}
}
