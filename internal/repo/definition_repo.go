package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Stagehand/internal/domain"
)

// DefinitionRepo — репозиторий для работы с workflow_definitions и
// нормализованными definition_stages / definition_transitions.
//
// Версии append-only: publish добавляет строки, никогда не изменяет
// существующие. Стадии и переходы адресуются (definition_id, version, id).
type DefinitionRepo struct {
	pool *pgxpool.Pool
}

// NewDefinitionRepo создаёт новый DefinitionRepo.
func NewDefinitionRepo(pool *pgxpool.Pool) *DefinitionRepo {
	return &DefinitionRepo{pool: pool}
}

// NextVersion возвращает следующий номер версии definition.
// Вызывается внутри WithinDefinitionTx, чтобы номера выдавались без гонок.
func (r *DefinitionRepo) NextVersion(ctx context.Context, defID uuid.UUID) (int, error) {
	var next int
	err := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM workflow_definitions
		WHERE definition_id = $1
	`, defID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next version: %w", err)
	}
	return next, nil
}

// InsertVersion вставляет новую версию целиком: строку definition,
// её стадии и переходы. Вызывается внутри транзакции publish.
func (r *DefinitionRepo) InsertVersion(ctx context.Context, def *domain.WorkflowDefinition) error {
	db := querier(ctx, r.pool)

	_, err := db.Exec(ctx, `
		INSERT INTO workflow_definitions (definition_id, version, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, def.ID, def.Version, def.Name, def.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert definition version: %w", err)
	}

	for i := range def.Stages {
		s := &def.Stages[i]

		checklistJSON, err := json.Marshal(s.Checklist)
		if err != nil {
			return fmt.Errorf("marshal checklist: %w", err)
		}
		deliverablesJSON, err := json.Marshal(s.Deliverables)
		if err != nil {
			return fmt.Errorf("marshal deliverables: %w", err)
		}

		_, err = db.Exec(ctx, `
			INSERT INTO definition_stages
				(definition_id, version, stage_id, name, ordinal, is_start, is_terminal, checklist, deliverables)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, def.ID, def.Version, s.ID, s.Name, s.Ordinal, s.IsStart, s.IsTerminal, checklistJSON, deliverablesJSON)
		if err != nil {
			return fmt.Errorf("insert stage %s: %w", s.ID, err)
		}
	}

	for i := range def.Transitions {
		t := &def.Transitions[i]

		_, err = db.Exec(ctx, `
			INSERT INTO definition_transitions
				(definition_id, version, transition_id, from_stage_id, to_stage_id, condition, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, def.ID, def.Version, t.ID, t.FromStageID, t.ToStageID, t.Condition, t.Priority)
		if err != nil {
			return fmt.Errorf("insert transition %s: %w", t.ID, err)
		}
	}

	return nil
}

// GetVersion возвращает версию definition со стадиями и переходами.
// version <= 0 означает последнюю опубликованную версию.
func (r *DefinitionRepo) GetVersion(ctx context.Context, defID uuid.UUID, version int) (*domain.WorkflowDefinition, error) {
	db := querier(ctx, r.pool)

	var def domain.WorkflowDefinition
	var row pgx.Row
	if version > 0 {
		row = db.QueryRow(ctx, `
			SELECT definition_id, version, name, created_at
			FROM workflow_definitions
			WHERE definition_id = $1 AND version = $2
		`, defID, version)
	} else {
		row = db.QueryRow(ctx, `
			SELECT definition_id, version, name, created_at
			FROM workflow_definitions
			WHERE definition_id = $1
			ORDER BY version DESC
			LIMIT 1
		`, defID)
	}

	err := row.Scan(&def.ID, &def.Version, &def.Name, &def.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get definition version: %w", err)
	}

	if def.Stages, err = r.listStages(ctx, def.ID, def.Version); err != nil {
		return nil, err
	}
	if def.Transitions, err = r.listTransitions(ctx, def.ID, def.Version); err != nil {
		return nil, err
	}

	return &def, nil
}

// listStages загружает стадии версии, упорядоченные по ordinal.
func (r *DefinitionRepo) listStages(ctx context.Context, defID uuid.UUID, version int) ([]domain.Stage, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT stage_id, name, ordinal, is_start, is_terminal, checklist, deliverables
		FROM definition_stages
		WHERE definition_id = $1 AND version = $2
		ORDER BY ordinal ASC, stage_id ASC
	`, defID, version)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var stages []domain.Stage
	for rows.Next() {
		var s domain.Stage
		var checklistJSON, deliverablesJSON []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Ordinal, &s.IsStart, &s.IsTerminal, &checklistJSON, &deliverablesJSON); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		if err := json.Unmarshal(checklistJSON, &s.Checklist); err != nil {
			return nil, fmt.Errorf("unmarshal checklist: %w", err)
		}
		if err := json.Unmarshal(deliverablesJSON, &s.Deliverables); err != nil {
			return nil, fmt.Errorf("unmarshal deliverables: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// listTransitions загружает переходы версии в детерминированном порядке.
func (r *DefinitionRepo) listTransitions(ctx context.Context, defID uuid.UUID, version int) ([]domain.Transition, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT transition_id, from_stage_id, to_stage_id, condition, priority
		FROM definition_transitions
		WHERE definition_id = $1 AND version = $2
		ORDER BY priority ASC, transition_id ASC
	`, defID, version)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []domain.Transition
	for rows.Next() {
		var t domain.Transition
		if err := rows.Scan(&t.ID, &t.FromStageID, &t.ToStageID, &t.Condition, &t.Priority); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

// GetStage возвращает одну стадию версии.
func (r *DefinitionRepo) GetStage(ctx context.Context, defID uuid.UUID, version int, stageID string) (*domain.Stage, error) {
	var s domain.Stage
	var checklistJSON, deliverablesJSON []byte
	err := querier(ctx, r.pool).QueryRow(ctx, `
		SELECT stage_id, name, ordinal, is_start, is_terminal, checklist, deliverables
		FROM definition_stages
		WHERE definition_id = $1 AND version = $2 AND stage_id = $3
	`, defID, version, stageID).Scan(
		&s.ID, &s.Name, &s.Ordinal, &s.IsStart, &s.IsTerminal, &checklistJSON, &deliverablesJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stage: %w", err)
	}
	if err := json.Unmarshal(checklistJSON, &s.Checklist); err != nil {
		return nil, fmt.Errorf("unmarshal checklist: %w", err)
	}
	if err := json.Unmarshal(deliverablesJSON, &s.Deliverables); err != nil {
		return nil, fmt.Errorf("unmarshal deliverables: %w", err)
	}
	return &s, nil
}

// TransitionsFrom возвращает переходы из стадии, упорядоченные по
// priority, затем по transition_id (детерминированный tie-break).
func (r *DefinitionRepo) TransitionsFrom(ctx context.Context, defID uuid.UUID, version int, stageID string) ([]domain.Transition, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT transition_id, from_stage_id, to_stage_id, condition, priority
		FROM definition_transitions
		WHERE definition_id = $1 AND version = $2 AND from_stage_id = $3
		ORDER BY priority ASC, transition_id ASC
	`, defID, version, stageID)
	if err != nil {
		return nil, fmt.Errorf("transitions from %s: %w", stageID, err)
	}
	defer rows.Close()

	var transitions []domain.Transition
	for rows.Next() {
		var t domain.Transition
		if err := rows.Scan(&t.ID, &t.FromStageID, &t.ToStageID, &t.Condition, &t.Priority); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

// List возвращает последнюю версию каждого definition (без стадий и переходов).
func (r *DefinitionRepo) List(ctx context.Context) ([]domain.WorkflowDefinition, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT DISTINCT ON (definition_id) definition_id, version, name, created_at
		FROM workflow_definitions
		ORDER BY definition_id, version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var defs []domain.WorkflowDefinition
	for rows.Next() {
		var def domain.WorkflowDefinition
		if err := rows.Scan(&def.ID, &def.Version, &def.Name, &def.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// ListVersions возвращает все версии definition (без стадий и переходов),
// от новых к старым.
func (r *DefinitionRepo) ListVersions(ctx context.Context, defID uuid.UUID) ([]domain.WorkflowDefinition, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `
		SELECT definition_id, version, name, created_at
		FROM workflow_definitions
		WHERE definition_id = $1
		ORDER BY version DESC
	`, defID)
	if err != nil {
		return nil, fmt.Errorf("list definition versions: %w", err)
	}
	defer rows.Close()

	var defs []domain.WorkflowDefinition
	for rows.Next() {
		var def domain.WorkflowDefinition
		if err := rows.Scan(&def.ID, &def.Version, &def.Name, &def.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan definition version: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
