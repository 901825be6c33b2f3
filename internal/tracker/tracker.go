package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/repo"
)

// Tracker ведёт append-only историю попыток выполнения стадий.
//
// Каждая попытка — отдельный StageInstance. Инварианты:
//   - не более одного ACTIVE instance на сессию одновременно;
//   - финализированный instance неизменяем, исправление — новый instance;
//   - упорядоченная история instances — единственный авторитетный
//     источник "что происходило" в сессии.
type Tracker struct {
	instances *repo.InstanceRepo
	logger    *slog.Logger
}

// New создаёт новый Tracker.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		instances: repo.NewInstanceRepo(pool),
		logger:    logger,
	}
}

// Start создаёт ACTIVE instance для стадии.
// Если у сессии уже есть ACTIVE instance, возвращает ErrConflict.
func (t *Tracker) Start(ctx context.Context, sessionID uuid.UUID, stageID string) (*domain.StageInstance, error) {
	active, err := t.instances.ActiveBySession(ctx, sessionID)
	if err == nil {
		return nil, fmt.Errorf("session %s already has active instance %s (stage %s): %w",
			sessionID, active.ID, active.StageID, repo.ErrConflict)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	attempt, err := t.instances.CountByStage(ctx, sessionID, stageID)
	if err != nil {
		return nil, err
	}

	inst := &domain.StageInstance{
		ID:        uuid.New(),
		SessionID: sessionID,
		StageID:   stageID,
		Attempt:   attempt + 1,
		Status:    domain.InstanceStatusActive,
		StartedAt: time.Now().UTC(),
	}
	if err := t.instances.Create(ctx, inst); err != nil {
		return nil, err
	}

	t.logger.Debug("started stage instance",
		"session_id", sessionID,
		"stage_id", stageID,
		"instance_id", inst.ID,
		"attempt", inst.Attempt,
	)
	return inst, nil
}

// Complete переводит ACTIVE instance в COMPLETED с result_context.
func (t *Tracker) Complete(ctx context.Context, instanceID uuid.UUID, result map[string]any) (*domain.StageInstance, error) {
	return t.finalize(ctx, instanceID, domain.InstanceStatusCompleted, result)
}

// Fail переводит ACTIVE instance в FAILED с контекстом ошибки.
func (t *Tracker) Fail(ctx context.Context, instanceID uuid.UUID, errorCtx map[string]any) (*domain.StageInstance, error) {
	return t.finalize(ctx, instanceID, domain.InstanceStatusFailed, errorCtx)
}

// Skip переводит ACTIVE instance в SKIPPED с причиной.
func (t *Tracker) Skip(ctx context.Context, instanceID uuid.UUID, reason string) (*domain.StageInstance, error) {
	return t.finalize(ctx, instanceID, domain.InstanceStatusSkipped, map[string]any{"reason": reason})
}

// Active возвращает ACTIVE instance сессии, либо repo.ErrNotFound.
func (t *Tracker) Active(ctx context.Context, sessionID uuid.UUID) (*domain.StageInstance, error) {
	return t.instances.ActiveBySession(ctx, sessionID)
}

// History возвращает полную историю instances сессии,
// упорядоченную по started_at (возрастание).
func (t *Tracker) History(ctx context.Context, sessionID uuid.UUID) ([]domain.StageInstance, error) {
	return t.instances.ListBySession(ctx, sessionID)
}

// finalize финализирует instance с проверкой, что он ещё ACTIVE.
func (t *Tracker) finalize(ctx context.Context, instanceID uuid.UUID, to domain.InstanceStatus, result map[string]any) (*domain.StageInstance, error) {
	inst, err := t.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", instanceID, err)
	}
	if inst.Status != domain.InstanceStatusActive {
		return nil, fmt.Errorf("instance %s has status %s, expected %s: %w",
			instanceID, inst.Status, domain.InstanceStatusActive, repo.ErrInvalidState)
	}

	if err := t.instances.Finalize(ctx, instanceID, to, result); err != nil {
		return nil, fmt.Errorf("instance %s: %w", instanceID, err)
	}

	updated, err := t.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	t.logger.Debug("finalized stage instance",
		"session_id", inst.SessionID,
		"instance_id", instanceID,
		"status", to,
	)
	return updated, nil
}
