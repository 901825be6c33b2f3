package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/engine"
	"github.com/shaiso/Stagehand/internal/repo"
)

// DefinitionStore — версионированное хранилище workflow definitions.
//
// Publish только добавляет: новая версия создаётся атомарно, существующие
// версии никогда не изменяются. Чтения идут по (definition_id, version),
// поэтому publish безопасно выполняется параллельно с живыми сессиями —
// они остаются на своих закреплённых версиях.
type DefinitionStore struct {
	pool   *pgxpool.Pool
	defs   *repo.DefinitionRepo
	logger *slog.Logger
}

// New создаёт новый DefinitionStore.
func New(pool *pgxpool.Pool, logger *slog.Logger) *DefinitionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefinitionStore{
		pool:   pool,
		defs:   repo.NewDefinitionRepo(pool),
		logger: logger,
	}
}

// Publish валидирует черновик и публикует его как новую версию definition.
//
// defID == uuid.Nil создаёт новый definition с первой версией.
// Возвращает опубликованную версию и список нефатальных предупреждений
// анализа графа (петли-ретраи, недостижимые стадии, неразбираемые условия).
// Валидационная ошибка отклоняет черновик до какой-либо записи.
func (s *DefinitionStore) Publish(ctx context.Context, defID uuid.UUID, draft *domain.WorkflowDefinitionDraft) (*domain.WorkflowDefinition, []string, error) {
	if err := engine.ValidateDraft(draft); err != nil {
		return nil, nil, err
	}
	warnings := engine.Warnings(draft)
	for _, w := range warnings {
		s.logger.Warn("definition draft warning", "definition_id", defID, "warning", w)
	}

	if defID == uuid.Nil {
		defID = uuid.New()
	}

	def := &domain.WorkflowDefinition{
		ID:          defID,
		Name:        draft.Name,
		Stages:      draft.Stages,
		Transitions: draft.Transitions,
		CreatedAt:   time.Now().UTC(),
	}

	err := repo.WithinDefinitionTx(ctx, s.pool, defID, func(ctx context.Context) error {
		version, err := s.defs.NextVersion(ctx, defID)
		if err != nil {
			return err
		}
		def.Version = version

		// Имя definition наследуется от последней версии, если черновик его не задал
		if def.Name == "" && version > 1 {
			prev, err := s.defs.GetVersion(ctx, defID, version-1)
			if err != nil {
				return err
			}
			def.Name = prev.Name
		}

		return s.defs.InsertVersion(ctx, def)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("published definition version",
		"definition_id", def.ID,
		"version", def.Version,
		"stages", len(def.Stages),
		"transitions", len(def.Transitions),
	)
	return def, warnings, nil
}

// Version возвращает версию definition со стадиями и переходами.
// version <= 0 означает последнюю опубликованную.
func (s *DefinitionStore) Version(ctx context.Context, defID uuid.UUID, version int) (*domain.WorkflowDefinition, error) {
	return s.defs.GetVersion(ctx, defID, version)
}

// Stage возвращает одну стадию версии.
func (s *DefinitionStore) Stage(ctx context.Context, defID uuid.UUID, version int, stageID string) (*domain.Stage, error) {
	return s.defs.GetStage(ctx, defID, version, stageID)
}

// TransitionsFrom возвращает переходы из стадии, упорядоченные по
// priority, затем по transition_id.
func (s *DefinitionStore) TransitionsFrom(ctx context.Context, defID uuid.UUID, version int, stageID string) ([]domain.Transition, error) {
	return s.defs.TransitionsFrom(ctx, defID, version, stageID)
}

// List возвращает последние версии всех definitions (метаданные).
func (s *DefinitionStore) List(ctx context.Context) ([]domain.WorkflowDefinition, error) {
	return s.defs.List(ctx)
}

// ListVersions возвращает метаданные всех версий definition.
func (s *DefinitionStore) ListVersions(ctx context.Context, defID uuid.UUID) ([]domain.WorkflowDefinition, error) {
	return s.defs.ListVersions(ctx, defID)
}
