package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/flowmanager"
	"github.com/shaiso/Stagehand/internal/repo"
	"github.com/shaiso/Stagehand/internal/store"
)

// Sessions — читающий доступ к сессиям. Реализуется repo.SessionRepo.
type Sessions interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FlowSession, error)
	List(ctx context.Context, filter repo.SessionFilter) ([]domain.FlowSession, error)
}

// Pointers — указатели "последняя активная сессия" по caller'ам.
// Set заполняет UpdatedAt временем записи. Реализуется repo.PointerRepo.
type Pointers interface {
	Get(ctx context.Context, caller string) (*domain.SessionPointer, error)
	Set(ctx context.Context, p *domain.SessionPointer) error
	Delete(ctx context.Context, caller string) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	definitions *store.DefinitionStore
	manager     *flowmanager.Manager
	sessions    Sessions
	pointers    Pointers
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Definitions *store.DefinitionStore
	Manager     *flowmanager.Manager
	Sessions    Sessions
	Pointers    Pointers
	Logger      *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		definitions: cfg.Definitions,
		manager:     cfg.Manager,
		sessions:    cfg.Sessions,
		pointers:    cfg.Pointers,
		logger:      logger,
	}
}
