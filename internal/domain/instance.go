package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageInstance — одна зафиксированная попытка выполнения стадии в сессии.
//
// Instance создаётся, когда стадия становится активной, и неизменяем после
// перехода в финальный статус (COMPLETED/FAILED/SKIPPED). Исправления
// делаются новым instance, а не правкой старого. Упорядоченный список
// instances — единственный авторитетный источник истории выполнения.
type StageInstance struct {
	// ID — уникальный идентификатор instance.
	ID uuid.UUID `json:"id"`

	// SessionID — ссылка на родительскую сессию.
	SessionID uuid.UUID `json:"flow_session_id"`

	// StageID — локальный ID стадии из закреплённой версии definition.
	StageID string `json:"stage_id"`

	// Attempt — номер попытки для этой стадии в этой сессии (с 1).
	Attempt int `json:"attempt"`

	// Status — текущий статус instance.
	Status InstanceStatus `json:"status"`

	// Result — result_context завершения: результат стадии для COMPLETED,
	// контекст ошибки для FAILED, причина для SKIPPED.
	Result map[string]any `json:"result_context,omitempty"`

	// StartedAt — время, когда стадия стала активной.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt — время перехода в финальный статус. Nil, пока активна.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
