package domain

import (
	"time"

	"github.com/google/uuid"
)

// FlowSession — живой или завершённый экземпляр выполнения definition.
//
// Сессия создаётся по запросу вызывающего агента, навсегда привязывается
// к конкретной версии definition и проходит через стадии, оставляя
// append-only историю StageInstance.
type FlowSession struct {
	// ID — уникальный идентификатор сессии.
	ID uuid.UUID `json:"id"`

	// DefinitionID — ссылка на workflow definition.
	DefinitionID uuid.UUID `json:"workflow_definition_id"`

	// Version — закреплённая версия definition. Не меняется после создания,
	// даже если publish создаст более новые версии.
	Version int `json:"workflow_version"`

	// Name — имя сессии для удобства (например, "PR-1042").
	Name string `json:"name,omitempty"`

	// Status — текущий статус сессии.
	Status SessionStatus `json:"status"`

	// Context — открытая карта ключ-значение, накапливающая результаты
	// стадий. Используется при вычислении условий переходов.
	Context map[string]any `json:"context,omitempty"`

	// CreatedAt — время создания сессии.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionPointer — явная запись "последняя активная сессия" для вызывающего.
//
// Заменяет глобальное mutable-состояние: каждый caller владеет своим
// указателем и обновляет его явно.
type SessionPointer struct {
	// Caller — идентификатор вызывающего (агент, пользователь, хост).
	Caller string `json:"caller"`

	// SessionID — сессия, на которую указывает caller.
	SessionID uuid.UUID `json:"session_id"`

	// UpdatedAt — время последнего обновления указателя.
	UpdatedAt time.Time `json:"updated_at"`
}
