package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Stagehand/internal/domain"
)

// PointerRepo — репозиторий для работы с session_pointers.
//
// Указатель "последняя активная сессия" хранится явно, по одному на caller,
// вместо глобального процессного состояния.
type PointerRepo struct {
	pool *pgxpool.Pool
}

// NewPointerRepo создаёт новый PointerRepo.
func NewPointerRepo(pool *pgxpool.Pool) *PointerRepo {
	return &PointerRepo{pool: pool}
}

// Set устанавливает указатель caller'а (upsert) и заполняет p.UpdatedAt
// временем записи.
func (r *PointerRepo) Set(ctx context.Context, p *domain.SessionPointer) error {
	query := `
		INSERT INTO session_pointers (caller, session_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (caller) DO UPDATE
		SET session_id = EXCLUDED.session_id, updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	_, err := querier(ctx, r.pool).Exec(ctx, query, p.Caller, p.SessionID, now)
	if err != nil {
		return fmt.Errorf("set session pointer: %w", err)
	}
	p.UpdatedAt = now
	return nil
}

// Get возвращает указатель caller'а.
func (r *PointerRepo) Get(ctx context.Context, caller string) (*domain.SessionPointer, error) {
	var p domain.SessionPointer
	err := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT caller, session_id, updated_at
		FROM session_pointers
		WHERE caller = $1
	`, caller).Scan(&p.Caller, &p.SessionID, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session pointer: %w", err)
	}
	return &p, nil
}

// Delete удаляет указатель caller'а.
func (r *PointerRepo) Delete(ctx context.Context, caller string) error {
	result, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM session_pointers WHERE caller = $1`, caller)
	if err != nil {
		return fmt.Errorf("delete session pointer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
