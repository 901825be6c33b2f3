package domain

// SessionStatus — статус сессии.
//
// Жизненный цикл:
//
//	ACTIVE ⇄ PAUSED
//	ACTIVE | PAUSED → COMPLETED | ABORTED (финальные)
type SessionStatus string

const (
	// SessionStatusActive — сессия выполняется.
	SessionStatusActive SessionStatus = "ACTIVE"

	// SessionStatusPaused — сессия приостановлена; активный instance не тронут.
	SessionStatusPaused SessionStatus = "PAUSED"

	// SessionStatusCompleted — сессия успешно завершена терминальной стадией.
	SessionStatusCompleted SessionStatus = "COMPLETED"

	// SessionStatusAborted — сессия прервана вызывающим. Необратимо.
	SessionStatusAborted SessionStatus = "ABORTED"
)

// Valid проверяет, что значение — известный статус сессии.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusPaused, SessionStatusCompleted, SessionStatusAborted:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true, если статус финальный.
// Финальные сессии отвергают новые instances.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusAborted:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода статуса сессии.
func (s SessionStatus) CanTransitionTo(to SessionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case SessionStatusActive:
		return to == SessionStatusPaused || to == SessionStatusCompleted || to == SessionStatusAborted
	case SessionStatusPaused:
		return to == SessionStatusActive || to == SessionStatusAborted
	default:
		return false
	}
}

// InstanceStatus — статус попытки выполнения стадии.
//
// Жизненный цикл:
//
//	PENDING → ACTIVE → COMPLETED | FAILED | SKIPPED (финальные)
type InstanceStatus string

const (
	// InstanceStatusPending — instance создан, но стадия ещё не активна.
	InstanceStatusPending InstanceStatus = "PENDING"

	// InstanceStatusActive — стадия выполняется. Не более одного ACTIVE
	// instance на сессию одновременно.
	InstanceStatusActive InstanceStatus = "ACTIVE"

	// InstanceStatusCompleted — стадия завершена с результатом.
	InstanceStatusCompleted InstanceStatus = "COMPLETED"

	// InstanceStatusFailed — стадия завершена с ошибкой.
	InstanceStatusFailed InstanceStatus = "FAILED"

	// InstanceStatusSkipped — стадия пропущена.
	InstanceStatusSkipped InstanceStatus = "SKIPPED"
)

// IsFinal возвращает true, если статус финальный (instance неизменяем).
func (s InstanceStatus) IsFinal() bool {
	switch s {
	case InstanceStatusCompleted, InstanceStatusFailed, InstanceStatusSkipped:
		return true
	default:
		return false
	}
}
