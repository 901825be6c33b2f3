package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Atomic — транзакционные границы поверх пула.
// Оборачивает WithinSessionTx и WithinReadTx в тип, пригодный для внедрения.
type Atomic struct {
	pool *pgxpool.Pool
}

// NewAtomic создаёт Atomic.
func NewAtomic(pool *pgxpool.Pool) *Atomic {
	return &Atomic{pool: pool}
}

// WithSession выполняет fn в транзакции под advisory-блокировкой сессии.
func (a *Atomic) WithSession(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context) error) error {
	return WithinSessionTx(ctx, a.pool, sessionID, fn)
}

// ReadSnapshot выполняет fn в read-only транзакции.
func (a *Atomic) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithinReadTx(ctx, a.pool, fn)
}
