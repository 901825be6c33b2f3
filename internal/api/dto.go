package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/flowmanager"
)

// Definition DTOs

// PublishDefinitionRequest — запрос на публикацию версии definition.
type PublishDefinitionRequest struct {
	Name        string              `json:"name"`
	Stages      []domain.Stage      `json:"stages"`
	Transitions []domain.Transition `json:"transitions"`
}

// Draft конвертирует запрос в доменный черновик.
func (r PublishDefinitionRequest) Draft() *domain.WorkflowDefinitionDraft {
	return &domain.WorkflowDefinitionDraft{
		Name:        r.Name,
		Stages:      r.Stages,
		Transitions: r.Transitions,
	}
}

// DefinitionResponse — ответ с definition.
type DefinitionResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Version     int                 `json:"version"`
	Stages      []domain.Stage      `json:"stages"`
	Transitions []domain.Transition `json:"transitions"`
	CreatedAt   time.Time           `json:"created_at"`
}

// DefinitionFromDomain конвертирует domain.WorkflowDefinition в ответ.
func DefinitionFromDomain(d domain.WorkflowDefinition) DefinitionResponse {
	return DefinitionResponse{
		ID:          d.ID,
		Name:        d.Name,
		Version:     d.Version,
		Stages:      d.Stages,
		Transitions: d.Transitions,
		CreatedAt:   d.CreatedAt,
	}
}

// PublishedResponse — ответ на публикацию: definition плюс предупреждения
// валидатора (недостижимые стадии, self-loops, подозрительные условия).
type PublishedResponse struct {
	Definition DefinitionResponse `json:"definition"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// Session DTOs

// CreateSessionRequest — запрос на создание сессии.
// Version <= 0 закрепляет последнюю опубликованную версию.
type CreateSessionRequest struct {
	DefinitionID uuid.UUID `json:"workflow_definition_id"`
	Version      int       `json:"workflow_version,omitempty"`
	Name         string    `json:"name,omitempty"`
}

// SessionResponse — ответ с сессией.
type SessionResponse struct {
	ID           uuid.UUID      `json:"id"`
	DefinitionID uuid.UUID      `json:"workflow_definition_id"`
	Version      int            `json:"workflow_version"`
	Name         string         `json:"name,omitempty"`
	Status       string         `json:"status"`
	Context      map[string]any `json:"context,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// SessionFromDomain конвертирует domain.FlowSession в ответ.
func SessionFromDomain(s domain.FlowSession) SessionResponse {
	return SessionResponse{
		ID:           s.ID,
		DefinitionID: s.DefinitionID,
		Version:      s.Version,
		Name:         s.Name,
		Status:       string(s.Status),
		Context:      s.Context,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// InstanceResponse — ответ с instance.
type InstanceResponse struct {
	ID          uuid.UUID      `json:"id"`
	SessionID   uuid.UUID      `json:"flow_session_id"`
	StageID     string         `json:"stage_id"`
	Attempt     int            `json:"attempt"`
	Status      string         `json:"status"`
	Result      map[string]any `json:"result_context,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// InstanceFromDomain конвертирует domain.StageInstance в ответ.
func InstanceFromDomain(i domain.StageInstance) InstanceResponse {
	return InstanceResponse{
		ID:          i.ID,
		SessionID:   i.SessionID,
		StageID:     i.StageID,
		Attempt:     i.Attempt,
		Status:      string(i.Status),
		Result:      i.Result,
		StartedAt:   i.StartedAt,
		CompletedAt: i.CompletedAt,
	}
}

// CreatedSessionResponse — ответ на создание сессии.
type CreatedSessionResponse struct {
	Session SessionResponse  `json:"session"`
	Started InstanceResponse `json:"started_instance"`
}

// SessionContextResponse — полный снимок сессии.
type SessionContextResponse struct {
	Session SessionResponse    `json:"session"`
	Stage   *domain.Stage      `json:"stage,omitempty"`
	Active  *InstanceResponse  `json:"active_instance,omitempty"`
	History []InstanceResponse `json:"history"`
}

// SessionContextFromDomain конвертирует flowmanager.SessionContext в ответ.
func SessionContextFromDomain(sc *flowmanager.SessionContext) SessionContextResponse {
	resp := SessionContextResponse{
		Session: SessionFromDomain(*sc.Session),
		Stage:   sc.Stage,
		History: instancesFromDomain(sc.History),
	}
	if sc.Active != nil {
		active := InstanceFromDomain(*sc.Active)
		resp.Active = &active
	}
	return resp
}

// AdvanceRequest — запрос на advance с результатом текущей стадии.
type AdvanceRequest struct {
	Result map[string]any `json:"result,omitempty"`
}

// AdvanceResponse — ответ на advance.
type AdvanceResponse struct {
	Outcome    string            `json:"outcome"`
	Session    SessionResponse   `json:"session"`
	Completed  InstanceResponse  `json:"completed_instance"`
	Started    *InstanceResponse `json:"started_instance,omitempty"`
	NextStages []domain.Stage    `json:"next_stages,omitempty"`
}

// AdvanceFromDomain конвертирует flowmanager.AdvanceResult в ответ.
func AdvanceFromDomain(res *flowmanager.AdvanceResult) AdvanceResponse {
	resp := AdvanceResponse{
		Outcome:    string(res.Outcome),
		Session:    SessionFromDomain(*res.Session),
		Completed:  InstanceFromDomain(*res.Completed),
		NextStages: res.NextStages,
	}
	if res.Started != nil {
		started := InstanceFromDomain(*res.Started)
		resp.Started = &started
	}
	return resp
}

// ResumeIntoRequest — запрос на запуск выбранной стадии.
type ResumeIntoRequest struct {
	StageID string `json:"stage_id"`
}

// AbortRequest — запрос на прерывание сессии.
type AbortRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Pointer DTOs

// SetPointerRequest — запрос на привязку caller к сессии.
type SetPointerRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

// PointerResponse — ответ с указателем.
type PointerResponse struct {
	Caller    string    `json:"caller"`
	SessionID uuid.UUID `json:"session_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PointerFromDomain конвертирует domain.SessionPointer в ответ.
func PointerFromDomain(p domain.SessionPointer) PointerResponse {
	return PointerResponse{
		Caller:    p.Caller,
		SessionID: p.SessionID,
		UpdatedAt: p.UpdatedAt,
	}
}

func instancesFromDomain(instances []domain.StageInstance) []InstanceResponse {
	result := make([]InstanceResponse, len(instances))
	for i, inst := range instances {
		result[i] = InstanceFromDomain(inst)
	}
	return result
}
