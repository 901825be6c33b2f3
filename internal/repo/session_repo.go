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

// SessionRepo — репозиторий для работы с flow_sessions.
type SessionRepo struct {
	pool *pgxpool.Pool
}

// NewSessionRepo создаёт новый SessionRepo.
func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// SessionFilter — параметры фильтрации списка сессий.
type SessionFilter struct {
	DefinitionID *uuid.UUID
	Status       domain.SessionStatus
	Limit        int
	Offset       int
}

// Create создаёт новую сессию.
func (r *SessionRepo) Create(ctx context.Context, s *domain.FlowSession) error {
	contextJSON, err := json.Marshal(s.Context)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}

	query := `
		INSERT INTO flow_sessions (id, definition_id, version, name, status, context, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = querier(ctx, r.pool).Exec(ctx, query,
		s.ID,
		s.DefinitionID,
		s.Version,
		s.Name,
		s.Status,
		contextJSON,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID возвращает сессию по ID.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FlowSession, error) {
	query := `
		SELECT id, definition_id, version, name, status, context, created_at, updated_at
		FROM flow_sessions
		WHERE id = $1
	`
	return r.scanSession(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

// List возвращает список сессий с фильтрацией.
func (r *SessionRepo) List(ctx context.Context, filter SessionFilter) ([]domain.FlowSession, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `
		SELECT id, definition_id, version, name, status, context, created_at, updated_at
		FROM flow_sessions
		WHERE ($1::uuid IS NULL OR definition_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query,
		filter.DefinitionID,
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.FlowSession
	for rows.Next() {
		s, err := r.scanSessionFromRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// UpdateStatus условно переводит сессию из статуса from в статус to.
// Если сессия не в статусе from, возвращает ErrInvalidState (или ErrNotFound,
// если сессии нет вовсе).
func (r *SessionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.SessionStatus) error {
	query := `
		UPDATE flow_sessions
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// UpdateContext заменяет контекст сессии.
func (r *SessionRepo) UpdateContext(ctx context.Context, id uuid.UUID, sessionCtx map[string]any) error {
	contextJSON, err := json.Marshal(sessionCtx)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}

	query := `
		UPDATE flow_sessions
		SET context = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query, id, contextJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update session context: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет сессию (каскадно удалит stage_instances и указатели).
// Единственный способ уничтожить сессию — административный purge.
func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM flow_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeTerminalBefore удаляет финальные (COMPLETED/ABORTED) сессии,
// не обновлявшиеся с момента cutoff. Возвращает число удалённых.
func (r *SessionRepo) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM flow_sessions
		WHERE status IN ('COMPLETED', 'ABORTED') AND updated_at < $1
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge terminal sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// scanSession сканирует сессию из одной строки.
func (r *SessionRepo) scanSession(row pgx.Row) (*domain.FlowSession, error) {
	var s domain.FlowSession
	var contextJSON []byte
	err := row.Scan(&s.ID, &s.DefinitionID, &s.Version, &s.Name, &s.Status, &contextJSON, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &s.Context); err != nil {
		return nil, fmt.Errorf("unmarshal session context: %w", err)
	}
	return &s, nil
}

// scanSessionFromRows сканирует сессию из pgx.Rows.
func (r *SessionRepo) scanSessionFromRows(rows pgx.Rows) (*domain.FlowSession, error) {
	var s domain.FlowSession
	var contextJSON []byte
	if err := rows.Scan(&s.ID, &s.DefinitionID, &s.Version, &s.Name, &s.Status, &contextJSON, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &s.Context); err != nil {
		return nil, fmt.Errorf("unmarshal session context: %w", err)
	}
	return &s, nil
}

// nullString возвращает nil для пустой строки (для NULL-параметров запросов).
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
