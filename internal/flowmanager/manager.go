package flowmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/engine"
	"github.com/shaiso/Stagehand/internal/repo"
	"github.com/shaiso/Stagehand/internal/status"
)

// Definitions — доступ к версионированным definitions (только чтение).
type Definitions interface {
	Version(ctx context.Context, defID uuid.UUID, version int) (*domain.WorkflowDefinition, error)
	Stage(ctx context.Context, defID uuid.UUID, version int, stageID string) (*domain.Stage, error)
	TransitionsFrom(ctx context.Context, defID uuid.UUID, version int, stageID string) ([]domain.Transition, error)
}

// Sessions — персистентность сессий.
type Sessions interface {
	Create(ctx context.Context, s *domain.FlowSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FlowSession, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.SessionStatus) error
	UpdateContext(ctx context.Context, id uuid.UUID, sessionCtx map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Instances — append-only трекер попыток стадий.
type Instances interface {
	Start(ctx context.Context, sessionID uuid.UUID, stageID string) (*domain.StageInstance, error)
	Complete(ctx context.Context, instanceID uuid.UUID, result map[string]any) (*domain.StageInstance, error)
	Fail(ctx context.Context, instanceID uuid.UUID, errorCtx map[string]any) (*domain.StageInstance, error)
	Skip(ctx context.Context, instanceID uuid.UUID, reason string) (*domain.StageInstance, error)
	Active(ctx context.Context, sessionID uuid.UUID) (*domain.StageInstance, error)
	History(ctx context.Context, sessionID uuid.UUID) ([]domain.StageInstance, error)
}

// Atomic — границы транзакций и сериализация мутаций по сессии.
type Atomic interface {
	// WithSession выполняет fn в транзакции под блокировкой сессии.
	// Если сессию уже мутирует другой вызов — repo.ErrConflict.
	WithSession(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context) error) error

	// ReadSnapshot выполняет fn в read-only транзакции (один снимок).
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// Manager — оркестратор жизненного цикла сессий.
type Manager struct {
	defs      Definitions
	sessions  Sessions
	instances Instances
	atomic    Atomic
	evaluator *engine.Evaluator
	publisher *status.Publisher
	logger    *slog.Logger
}

// Config — конфигурация Manager.
type Config struct {
	Definitions Definitions
	Sessions    Sessions
	Instances   Instances
	Atomic      Atomic
	Publisher   *status.Publisher
	Logger      *slog.Logger
}

// New создаёт новый Manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = status.NewPublisher(logger)
	}
	return &Manager{
		defs:      cfg.Definitions,
		sessions:  cfg.Sessions,
		instances: cfg.Instances,
		atomic:    cfg.Atomic,
		evaluator: engine.NewEvaluator(logger),
		publisher: publisher,
		logger:    logger,
	}
}

// AdvanceOutcome — итог операции advance.
type AdvanceOutcome string

const (
	// OutcomeAdvanced — единственный кандидат запущен автоматически.
	OutcomeAdvanced AdvanceOutcome = "ADVANCED"

	// OutcomeCompleted — сессия завершена терминальной стадией.
	OutcomeCompleted AdvanceOutcome = "COMPLETED"

	// OutcomeDecisionRequired — несколько кандидатов; ни один не запущен,
	// вызывающий выбирает через ResumeInto.
	OutcomeDecisionRequired AdvanceOutcome = "DECISION_REQUIRED"

	// OutcomeBlocked — ноль доступных переходов из нетерминальной стадии.
	// Сессия остаётся ACTIVE; вызывающий решает: ждать, спросить, ретраить.
	OutcomeBlocked AdvanceOutcome = "BLOCKED"
)

// AdvanceResult — результат advance.
type AdvanceResult struct {
	// Outcome — итог операции.
	Outcome AdvanceOutcome `json:"outcome"`

	// Session — сессия после операции.
	Session *domain.FlowSession `json:"session"`

	// Completed — завершённый instance.
	Completed *domain.StageInstance `json:"completed_instance"`

	// Started — автоматически запущенный instance (для ADVANCED/COMPLETED).
	Started *domain.StageInstance `json:"started_instance,omitempty"`

	// NextStages — кандидаты-стадии в детерминированном порядке.
	NextStages []domain.Stage `json:"next_stages,omitempty"`
}

// CreateSession создаёт сессию, закрепляет версию definition и запускает
// стартовую стадию. version <= 0 закрепляет последнюю опубликованную.
func (m *Manager) CreateSession(ctx context.Context, defID uuid.UUID, version int, name string) (*domain.FlowSession, *domain.StageInstance, error) {
	def, err := m.defs.Version(ctx, defID, version)
	if err != nil {
		return nil, nil, wrapErr(err, map[string]any{
			"workflow_definition_id": defID,
			"workflow_version":       version,
		})
	}

	start, ok := def.StartStage()
	if !ok {
		// Невозможно для опубликованных версий: publish это валидирует.
		return nil, nil, newError(KindValidation,
			fmt.Sprintf("definition %s version %d has no start stage", def.ID, def.Version),
			map[string]any{"workflow_definition_id": def.ID, "workflow_version": def.Version})
	}

	now := time.Now().UTC()
	sess := &domain.FlowSession{
		ID:           uuid.New(),
		DefinitionID: def.ID,
		Version:      def.Version,
		Name:         name,
		Status:       domain.SessionStatusActive,
		Context:      map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var inst *domain.StageInstance
	err = m.atomic.WithSession(ctx, sess.ID, func(ctx context.Context) error {
		if err := m.sessions.Create(ctx, sess); err != nil {
			return err
		}
		inst, err = m.instances.Start(ctx, sess.ID, start.ID)
		return err
	})
	if err != nil {
		return nil, nil, wrapErr(err, map[string]any{"session_id": sess.ID})
	}

	m.publishSession(ctx, sess.ID, "", domain.SessionStatusActive, map[string]any{
		"workflow_definition_id": def.ID.String(),
		"workflow_version":       def.Version,
	})
	m.publishInstance(ctx, inst, "")

	m.logger.Info("created session",
		"session_id", sess.ID,
		"definition_id", def.ID,
		"version", def.Version,
		"start_stage", start.ID,
	)
	return sess, inst, nil
}

// Advance завершает активный instance с result_context и продвигает сессию.
//
// Итоги:
//   - завершённая стадия терминальна → сессия COMPLETED;
//   - ровно один кандидат: нетерминальный запускается (ADVANCED),
//     терминальный запускается и сразу завершается, завершая сессию;
//   - несколько кандидатов → DECISION_REQUIRED, выбор через ResumeInto;
//   - ноль кандидатов → BLOCKED, сессия остаётся ACTIVE.
//
// Все записи одного advance — одна транзакция: при ошибке ничего не
// фиксируется. Повторный advance уже продвинутой сессии даёт StateError,
// конкурентный advance — ConflictError.
func (m *Manager) Advance(ctx context.Context, sessionID uuid.UUID, result map[string]any) (*AdvanceResult, error) {
	var res *AdvanceResult
	var events []pendingEvent

	err := m.atomic.WithSession(ctx, sessionID, func(ctx context.Context) error {
		sess, err := m.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionStatusActive {
			return newError(KindState,
				fmt.Sprintf("session %s has status %s, expected %s", sess.ID, sess.Status, domain.SessionStatusActive),
				statusDetails(sess.ID, domain.SessionStatusActive, sess.Status))
		}

		active, err := m.instances.Active(ctx, sessionID)
		if errors.Is(err, repo.ErrNotFound) {
			return newError(KindState,
				fmt.Sprintf("session %s has no active stage instance", sess.ID),
				map[string]any{"session_id": sess.ID, "expected": string(domain.InstanceStatusActive)})
		}
		if err != nil {
			return err
		}

		stage, err := m.defs.Stage(ctx, sess.DefinitionID, sess.Version, active.StageID)
		if err != nil {
			return err
		}

		completed, err := m.instances.Complete(ctx, active.ID, result)
		if err != nil {
			return err
		}
		events = append(events, instanceEvent(completed, string(domain.InstanceStatusActive)))

		// Кандидаты вычисляются против контекста до слияния; результат
		// стадии перекрывает контекст внутри evaluator.
		sessionCtx := sess.Context

		// Результат стадии вливается в контекст сессии для последующих стадий
		merged := mergeContext(sessionCtx, result)
		if err := m.sessions.UpdateContext(ctx, sess.ID, merged); err != nil {
			return err
		}
		sess.Context = merged

		if stage.IsTerminal {
			if err := m.sessions.UpdateStatus(ctx, sess.ID, domain.SessionStatusActive, domain.SessionStatusCompleted); err != nil {
				return err
			}
			sess.Status = domain.SessionStatusCompleted
			events = append(events, sessionEvent(sess.ID, domain.SessionStatusActive, domain.SessionStatusCompleted, nil))
			res = &AdvanceResult{Outcome: OutcomeCompleted, Session: sess, Completed: completed}
			return nil
		}

		transitions, err := m.defs.TransitionsFrom(ctx, sess.DefinitionID, sess.Version, stage.ID)
		if err != nil {
			return err
		}
		targets := m.evaluator.Evaluate(transitions, sessionCtx, result)

		candidates := make([]domain.Stage, 0, len(targets))
		for _, id := range targets {
			st, err := m.defs.Stage(ctx, sess.DefinitionID, sess.Version, id)
			if err != nil {
				return err
			}
			candidates = append(candidates, *st)
		}

		switch len(candidates) {
		case 0:
			res = &AdvanceResult{Outcome: OutcomeBlocked, Session: sess, Completed: completed}

		case 1:
			next := candidates[0]
			started, err := m.instances.Start(ctx, sess.ID, next.ID)
			if err != nil {
				return err
			}
			events = append(events, instanceEvent(started, ""))

			if next.IsTerminal {
				// Единственный кандидат терминален: фиксируем его прохождение
				// и завершаем сессию в этом же advance.
				finished, err := m.instances.Complete(ctx, started.ID, nil)
				if err != nil {
					return err
				}
				events = append(events, instanceEvent(finished, string(domain.InstanceStatusActive)))

				if err := m.sessions.UpdateStatus(ctx, sess.ID, domain.SessionStatusActive, domain.SessionStatusCompleted); err != nil {
					return err
				}
				sess.Status = domain.SessionStatusCompleted
				events = append(events, sessionEvent(sess.ID, domain.SessionStatusActive, domain.SessionStatusCompleted, nil))
				res = &AdvanceResult{
					Outcome:    OutcomeCompleted,
					Session:    sess,
					Completed:  completed,
					Started:    finished,
					NextStages: candidates,
				}
				return nil
			}

			res = &AdvanceResult{
				Outcome:    OutcomeAdvanced,
				Session:    sess,
				Completed:  completed,
				Started:    started,
				NextStages: candidates,
			}

		default:
			res = &AdvanceResult{
				Outcome:    OutcomeDecisionRequired,
				Session:    sess,
				Completed:  completed,
				NextStages: candidates,
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, map[string]any{"session_id": sessionID})
	}

	m.flush(ctx, events)
	return res, nil
}

// ResumeInto запускает выбранную стадию после DECISION_REQUIRED или BLOCKED.
//
// Проверяет, что сессия ACTIVE, стадия существует в закреплённой версии и
// активного instance нет. Допустимость перехода повторно не проверяется:
// это позволяет использовать ResumeInto и для retry-циклов.
func (m *Manager) ResumeInto(ctx context.Context, sessionID uuid.UUID, stageID string) (*domain.StageInstance, error) {
	var inst *domain.StageInstance

	err := m.atomic.WithSession(ctx, sessionID, func(ctx context.Context) error {
		sess, err := m.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionStatusActive {
			return newError(KindState,
				fmt.Sprintf("session %s has status %s, expected %s", sess.ID, sess.Status, domain.SessionStatusActive),
				statusDetails(sess.ID, domain.SessionStatusActive, sess.Status))
		}

		if _, err := m.defs.Stage(ctx, sess.DefinitionID, sess.Version, stageID); err != nil {
			return wrapErr(err, map[string]any{
				"session_id": sess.ID,
				"stage_id":   stageID,
			})
		}

		inst, err = m.instances.Start(ctx, sessionID, stageID)
		return err
	})
	if err != nil {
		return nil, wrapErr(err, map[string]any{"session_id": sessionID, "stage_id": stageID})
	}

	m.publishInstance(ctx, inst, "")
	return inst, nil
}

// Pause приостанавливает ACTIVE сессию. Активный instance не тронут.
func (m *Manager) Pause(ctx context.Context, sessionID uuid.UUID) (*domain.FlowSession, error) {
	return m.toggleStatus(ctx, sessionID, domain.SessionStatusActive, domain.SessionStatusPaused)
}

// Resume возобновляет PAUSED сессию. Для финальной сессии — StateError.
func (m *Manager) Resume(ctx context.Context, sessionID uuid.UUID) (*domain.FlowSession, error) {
	return m.toggleStatus(ctx, sessionID, domain.SessionStatusPaused, domain.SessionStatusActive)
}

// toggleStatus условно переключает статус сессии.
func (m *Manager) toggleStatus(ctx context.Context, sessionID uuid.UUID, from, to domain.SessionStatus) (*domain.FlowSession, error) {
	var sess *domain.FlowSession

	err := m.atomic.WithSession(ctx, sessionID, func(ctx context.Context) error {
		var err error
		sess, err = m.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != from {
			return newError(KindState,
				fmt.Sprintf("session %s has status %s, expected %s", sess.ID, sess.Status, from),
				statusDetails(sess.ID, from, sess.Status))
		}
		if err := m.sessions.UpdateStatus(ctx, sessionID, from, to); err != nil {
			return err
		}
		sess.Status = to
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, map[string]any{"session_id": sessionID})
	}

	m.publishSession(ctx, sessionID, from, to, nil)
	return sess, nil
}

// Abort необратимо прерывает сессию. Активный instance, если есть,
// помечается FAILED с причиной.
func (m *Manager) Abort(ctx context.Context, sessionID uuid.UUID, reason string) (*domain.FlowSession, error) {
	var sess *domain.FlowSession
	var events []pendingEvent

	err := m.atomic.WithSession(ctx, sessionID, func(ctx context.Context) error {
		var err error
		sess, err = m.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status.IsTerminal() {
			return newError(KindState,
				fmt.Sprintf("session %s has terminal status %s", sess.ID, sess.Status),
				statusDetails(sess.ID, domain.SessionStatusActive, sess.Status))
		}

		active, err := m.instances.Active(ctx, sessionID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if active != nil {
			failed, err := m.instances.Fail(ctx, active.ID, map[string]any{"reason": reason})
			if err != nil {
				return err
			}
			events = append(events, instanceEvent(failed, string(domain.InstanceStatusActive)))
		}

		from := sess.Status
		if err := m.sessions.UpdateStatus(ctx, sessionID, from, domain.SessionStatusAborted); err != nil {
			return err
		}
		events = append(events, sessionEvent(sess.ID, from, domain.SessionStatusAborted, map[string]any{"reason": reason}))
		sess.Status = domain.SessionStatusAborted
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, map[string]any{"session_id": sessionID})
	}

	m.flush(ctx, events)
	return sess, nil
}

// Purge удаляет сессию и всю её историю. Административная операция;
// единственный способ уничтожить сессию.
func (m *Manager) Purge(ctx context.Context, sessionID uuid.UUID) error {
	err := m.atomic.WithSession(ctx, sessionID, func(ctx context.Context) error {
		return m.sessions.Delete(ctx, sessionID)
	})
	if err != nil {
		return wrapErr(err, map[string]any{"session_id": sessionID})
	}
	m.logger.Info("purged session", "session_id", sessionID)
	return nil
}

// History возвращает полную историю instances сессии из одного снимка.
func (m *Manager) History(ctx context.Context, sessionID uuid.UUID) ([]domain.StageInstance, error) {
	var history []domain.StageInstance
	err := m.atomic.ReadSnapshot(ctx, func(ctx context.Context) error {
		if _, err := m.sessions.GetByID(ctx, sessionID); err != nil {
			return err
		}
		var err error
		history, err = m.instances.History(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, wrapErr(err, map[string]any{"session_id": sessionID})
	}
	return history, nil
}

// mergeContext сливает результат стадии в контекст сессии.
// Результат перекрывает контекст при коллизии ключей.
func mergeContext(sessionCtx, result map[string]any) map[string]any {
	merged := make(map[string]any, len(sessionCtx)+len(result))
	for k, v := range sessionCtx {
		merged[k] = v
	}
	for k, v := range result {
		merged[k] = v
	}
	return merged
}

// statusDetails — детали expected-vs-actual для StateError.
func statusDetails(sessionID uuid.UUID, expected, actual domain.SessionStatus) map[string]any {
	return map[string]any{
		"session_id": sessionID,
		"expected":   string(expected),
		"actual":     string(actual),
	}
}

// pendingEvent — событие, накопленное внутри транзакции.
// Публикация происходит после фиксации: хаб уведомляет, но не координирует.
type pendingEvent struct {
	ev status.Event
}

func sessionEvent(id uuid.UUID, from, to domain.SessionStatus, data map[string]any) pendingEvent {
	return pendingEvent{ev: status.Event{
		Domain:    status.DomainSession,
		EntityID:  id.String(),
		OldStatus: string(from),
		NewStatus: string(to),
		Data:      data,
	}}
}

func instanceEvent(inst *domain.StageInstance, old string) pendingEvent {
	return pendingEvent{ev: status.Event{
		Domain:    status.DomainInstance,
		EntityID:  inst.ID.String(),
		OldStatus: old,
		NewStatus: string(inst.Status),
		Data: map[string]any{
			"session_id": inst.SessionID.String(),
			"stage_id":   inst.StageID,
			"attempt":    inst.Attempt,
		},
	}}
}

// flush публикует накопленные события после фиксации транзакции.
func (m *Manager) flush(ctx context.Context, events []pendingEvent) {
	for _, e := range events {
		m.publisher.Publish(ctx, e.ev)
	}
}

func (m *Manager) publishSession(ctx context.Context, id uuid.UUID, from, to domain.SessionStatus, data map[string]any) {
	m.publisher.Publish(ctx, sessionEvent(id, from, to, data).ev)
}

func (m *Manager) publishInstance(ctx context.Context, inst *domain.StageInstance, old string) {
	m.publisher.Publish(ctx, instanceEvent(inst, old).ev)
}
