package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Stagehand/internal/domain"
)

// InstanceRepo — репозиторий для работы с stage_instances.
//
// Таблица append-only: instances создаются и финализируются, но никогда
// не удаляются поодиночке и не редактируются после финализации.
type InstanceRepo struct {
	pool *pgxpool.Pool
}

// NewInstanceRepo создаёт новый InstanceRepo.
func NewInstanceRepo(pool *pgxpool.Pool) *InstanceRepo {
	return &InstanceRepo{pool: pool}
}

// Create создаёт новый instance.
func (r *InstanceRepo) Create(ctx context.Context, inst *domain.StageInstance) error {
	resultJSON, err := json.Marshal(inst.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		INSERT INTO stage_instances (id, session_id, stage_id, attempt, status, result, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = querier(ctx, r.pool).Exec(ctx, query,
		inst.ID,
		inst.SessionID,
		inst.StageID,
		inst.Attempt,
		inst.Status,
		resultJSON,
		inst.StartedAt,
		inst.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// GetByID возвращает instance по ID.
func (r *InstanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StageInstance, error) {
	query := `
		SELECT id, session_id, stage_id, attempt, status, result, started_at, completed_at
		FROM stage_instances
		WHERE id = $1
	`
	return r.scanInstance(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

// ActiveBySession возвращает ACTIVE instance сессии.
// ErrNotFound, если активного instance нет.
func (r *InstanceRepo) ActiveBySession(ctx context.Context, sessionID uuid.UUID) (*domain.StageInstance, error) {
	query := `
		SELECT id, session_id, stage_id, attempt, status, result, started_at, completed_at
		FROM stage_instances
		WHERE session_id = $1 AND status = 'ACTIVE'
	`
	return r.scanInstance(querier(ctx, r.pool).QueryRow(ctx, query, sessionID))
}

// ListBySession возвращает полную историю instances сессии,
// упорядоченную по started_at (затем по id для стабильности).
func (r *InstanceRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.StageInstance, error) {
	query := `
		SELECT id, session_id, stage_id, attempt, status, result, started_at, completed_at
		FROM stage_instances
		WHERE session_id = $1
		ORDER BY started_at ASC, id ASC
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var instances []domain.StageInstance
	for rows.Next() {
		inst, err := r.scanInstanceFromRows(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// CountByStage возвращает число попыток стадии в сессии.
// Используется для присвоения номера Attempt новому instance.
func (r *InstanceRepo) CountByStage(ctx context.Context, sessionID uuid.UUID, stageID string) (int, error) {
	var count int
	err := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM stage_instances
		WHERE session_id = $1 AND stage_id = $2
	`, sessionID, stageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count instances: %w", err)
	}
	return count, nil
}

// Finalize условно переводит ACTIVE instance в финальный статус с результатом.
// Если instance уже не ACTIVE, возвращает ErrInvalidState (или ErrNotFound,
// если instance нет вовсе).
func (r *InstanceRepo) Finalize(ctx context.Context, id uuid.UUID, to domain.InstanceStatus, result map[string]any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		UPDATE stage_instances
		SET status = $2, result = $3, completed_at = $4
		WHERE id = $1 AND status = 'ACTIVE'
	`
	res, err := querier(ctx, r.pool).Exec(ctx, query, id, to, resultJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finalize instance: %w", err)
	}
	if res.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// scanInstance сканирует instance из одной строки.
func (r *InstanceRepo) scanInstance(row pgx.Row) (*domain.StageInstance, error) {
	var inst domain.StageInstance
	var resultJSON []byte
	err := row.Scan(&inst.ID, &inst.SessionID, &inst.StageID, &inst.Attempt, &inst.Status, &resultJSON, &inst.StartedAt, &inst.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &inst.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &inst, nil
}

// scanInstanceFromRows сканирует instance из pgx.Rows.
func (r *InstanceRepo) scanInstanceFromRows(rows pgx.Rows) (*domain.StageInstance, error) {
	var inst domain.StageInstance
	var resultJSON []byte
	if err := rows.Scan(&inst.ID, &inst.SessionID, &inst.StageID, &inst.Attempt, &inst.Status, &resultJSON, &inst.StartedAt, &inst.CompletedAt); err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &inst.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &inst, nil
}
