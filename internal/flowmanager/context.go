package flowmanager

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/repo"
)

// SessionContext — полный снимок сессии для вызывающего:
// сессия, текущая стадия с чеклистом, активный instance и история попыток.
type SessionContext struct {
	Session *domain.FlowSession   `json:"session"`
	Stage   *domain.Stage         `json:"stage,omitempty"`
	Active  *domain.StageInstance `json:"active_instance,omitempty"`
	History []domain.StageInstance `json:"history"`
}

// CurrentContext собирает снимок сессии из одной read-only транзакции,
// поэтому сессия, instance и история всегда согласованы между собой.
// Stage и Active пусты, если активного instance нет (сессия завершена
// или ждёт ResumeInto).
func (m *Manager) CurrentContext(ctx context.Context, sessionID uuid.UUID) (*SessionContext, error) {
	var sc *SessionContext

	err := m.atomic.ReadSnapshot(ctx, func(ctx context.Context) error {
		sess, err := m.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}

		active, err := m.instances.Active(ctx, sessionID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		var stage *domain.Stage
		if active != nil {
			stage, err = m.defs.Stage(ctx, sess.DefinitionID, sess.Version, active.StageID)
			if err != nil {
				return err
			}
		}

		history, err := m.instances.History(ctx, sessionID)
		if err != nil {
			return err
		}

		sc = &SessionContext{Session: sess, Stage: stage, Active: active, History: history}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, map[string]any{"session_id": sessionID})
	}
	return sc, nil
}
