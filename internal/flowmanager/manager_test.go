package flowmanager

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/repo"
	"github.com/shaiso/Stagehand/internal/status"
)

// --- In-memory фейки слоя хранения ---

type fakeDefs struct {
	defs map[uuid.UUID]map[int]*domain.WorkflowDefinition
}

func newFakeDefs() *fakeDefs {
	return &fakeDefs{defs: make(map[uuid.UUID]map[int]*domain.WorkflowDefinition)}
}

func (f *fakeDefs) add(def *domain.WorkflowDefinition) {
	if f.defs[def.ID] == nil {
		f.defs[def.ID] = make(map[int]*domain.WorkflowDefinition)
	}
	f.defs[def.ID][def.Version] = def
}

func (f *fakeDefs) Version(_ context.Context, defID uuid.UUID, version int) (*domain.WorkflowDefinition, error) {
	versions := f.defs[defID]
	if len(versions) == 0 {
		return nil, repo.ErrNotFound
	}
	if version <= 0 {
		for v := range versions {
			if v > version {
				version = v
			}
		}
	}
	def, ok := versions[version]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return def, nil
}

func (f *fakeDefs) Stage(ctx context.Context, defID uuid.UUID, version int, stageID string) (*domain.Stage, error) {
	def, err := f.Version(ctx, defID, version)
	if err != nil {
		return nil, err
	}
	stage, ok := def.StageByID(stageID)
	if !ok {
		return nil, repo.ErrNotFound
	}
	return stage, nil
}

func (f *fakeDefs) TransitionsFrom(ctx context.Context, defID uuid.UUID, version int, stageID string) ([]domain.Transition, error) {
	def, err := f.Version(ctx, defID, version)
	if err != nil {
		return nil, err
	}
	return def.TransitionsFrom(stageID), nil
}

type fakeSessions struct {
	sessions map[uuid.UUID]*domain.FlowSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[uuid.UUID]*domain.FlowSession)}
}

func (f *fakeSessions) Create(_ context.Context, s *domain.FlowSession) error {
	if _, ok := f.sessions[s.ID]; ok {
		return repo.ErrAlreadyExists
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id uuid.UUID) (*domain.FlowSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.SessionStatus) error {
	s, ok := f.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	if s.Status != from {
		return repo.ErrInvalidState
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeSessions) UpdateContext(_ context.Context, id uuid.UUID, sessionCtx map[string]any) error {
	s, ok := f.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Context = sessionCtx
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.sessions[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

type fakeInstances struct {
	instances []*domain.StageInstance
}

func (f *fakeInstances) Start(_ context.Context, sessionID uuid.UUID, stageID string) (*domain.StageInstance, error) {
	attempt := 0
	for _, inst := range f.instances {
		if inst.SessionID != sessionID {
			continue
		}
		if inst.Status == domain.InstanceStatusActive {
			return nil, fmt.Errorf("session %s already has active instance %s: %w",
				sessionID, inst.ID, repo.ErrConflict)
		}
		if inst.StageID == stageID {
			attempt++
		}
	}

	inst := &domain.StageInstance{
		ID:        uuid.New(),
		SessionID: sessionID,
		StageID:   stageID,
		Attempt:   attempt + 1,
		Status:    domain.InstanceStatusActive,
		StartedAt: time.Now().UTC(),
	}
	f.instances = append(f.instances, inst)
	cp := *inst
	return &cp, nil
}

func (f *fakeInstances) finalize(id uuid.UUID, to domain.InstanceStatus, result map[string]any) (*domain.StageInstance, error) {
	for _, inst := range f.instances {
		if inst.ID != id {
			continue
		}
		if inst.Status != domain.InstanceStatusActive {
			return nil, repo.ErrInvalidState
		}
		now := time.Now().UTC()
		inst.Status = to
		inst.Result = result
		inst.CompletedAt = &now
		cp := *inst
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeInstances) Complete(_ context.Context, id uuid.UUID, result map[string]any) (*domain.StageInstance, error) {
	return f.finalize(id, domain.InstanceStatusCompleted, result)
}

func (f *fakeInstances) Fail(_ context.Context, id uuid.UUID, errorCtx map[string]any) (*domain.StageInstance, error) {
	return f.finalize(id, domain.InstanceStatusFailed, errorCtx)
}

func (f *fakeInstances) Skip(_ context.Context, id uuid.UUID, reason string) (*domain.StageInstance, error) {
	return f.finalize(id, domain.InstanceStatusSkipped, map[string]any{"reason": reason})
}

func (f *fakeInstances) Active(_ context.Context, sessionID uuid.UUID) (*domain.StageInstance, error) {
	for _, inst := range f.instances {
		if inst.SessionID == sessionID && inst.Status == domain.InstanceStatusActive {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeInstances) History(_ context.Context, sessionID uuid.UUID) ([]domain.StageInstance, error) {
	var history []domain.StageInstance
	for _, inst := range f.instances {
		if inst.SessionID == sessionID {
			history = append(history, *inst)
		}
	}
	return history, nil
}

// fakeAtomic выполняет fn напрямую. busy имитирует занятую
// advisory-блокировку: мутация немедленно получает ErrConflict.
type fakeAtomic struct {
	busy bool
}

func (f *fakeAtomic) WithSession(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context) error) error {
	if f.busy {
		return fmt.Errorf("session %s is being mutated concurrently: %w", sessionID, repo.ErrConflict)
	}
	return fn(ctx)
}

func (f *fakeAtomic) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingSubscriber struct {
	events []status.Event
}

func (s *recordingSubscriber) HandleStatusChange(_ context.Context, ev status.Event) {
	s.events = append(s.events, ev)
}

// --- Тестовая сборка ---

type fixture struct {
	manager   *Manager
	defs      *fakeDefs
	sessions  *fakeSessions
	instances *fakeInstances
	atomic    *fakeAtomic
	events    *recordingSubscriber
}

func newFixture() *fixture {
	f := &fixture{
		defs:      newFakeDefs(),
		sessions:  newFakeSessions(),
		instances: &fakeInstances{},
		atomic:    &fakeAtomic{},
		events:    &recordingSubscriber{},
	}
	publisher := status.NewPublisher(nil)
	publisher.Subscribe(f.events)
	f.manager = New(Config{
		Definitions: f.defs,
		Sessions:    f.sessions,
		Instances:   f.instances,
		Atomic:      f.atomic,
		Publisher:   publisher,
	})
	return f
}

// linearDefinition строит draft → review → done (терминальная),
// переходы без условий.
func linearDefinition() *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{
		ID:      uuid.New(),
		Name:    "code-review",
		Version: 1,
		Stages: []domain.Stage{
			{ID: "draft", Name: "Draft", Ordinal: 1, IsStart: true},
			{ID: "review", Name: "Review", Ordinal: 2},
			{ID: "done", Name: "Done", Ordinal: 3, IsTerminal: true},
		},
		Transitions: []domain.Transition{
			{ID: "t-1", FromStageID: "draft", ToStageID: "review"},
			{ID: "t-2", FromStageID: "review", ToStageID: "done"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

// branchingDefinition строит triage с двумя безусловными исходами.
func branchingDefinition() *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{
		ID:      uuid.New(),
		Name:    "incident",
		Version: 1,
		Stages: []domain.Stage{
			{ID: "triage", Name: "Triage", Ordinal: 1, IsStart: true},
			{ID: "escalate", Name: "Escalate", Ordinal: 2},
			{ID: "mitigate", Name: "Mitigate", Ordinal: 3},
			{ID: "closed", Name: "Closed", Ordinal: 4, IsTerminal: true},
		},
		Transitions: []domain.Transition{
			{ID: "t-esc", FromStageID: "triage", ToStageID: "escalate", Priority: 1},
			{ID: "t-mit", FromStageID: "triage", ToStageID: "mitigate", Priority: 2},
			{ID: "t-esc-close", FromStageID: "escalate", ToStageID: "closed"},
			{ID: "t-mit-close", FromStageID: "mitigate", ToStageID: "closed"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func mustCreate(t *testing.T, f *fixture, def *domain.WorkflowDefinition) *domain.FlowSession {
	t.Helper()
	f.defs.add(def)
	sess, _, err := f.manager.CreateSession(context.Background(), def.ID, 0, "test")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	return sess
}

// --- Тесты ---

func TestCreateSessionStartsFirstStage(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	f.defs.add(def)

	sess, inst, err := f.manager.CreateSession(context.Background(), def.ID, 0, "pr-42")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	if sess.Status != domain.SessionStatusActive {
		t.Errorf("session status = %s, want ACTIVE", sess.Status)
	}
	if sess.Version != 1 {
		t.Errorf("pinned version = %d, want 1", sess.Version)
	}
	if inst.StageID != "draft" || inst.Status != domain.InstanceStatusActive {
		t.Errorf("start instance = %s/%s, want draft/ACTIVE", inst.StageID, inst.Status)
	}
	if inst.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", inst.Attempt)
	}
}

func TestCreateSessionPinsExplicitVersion(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	f.defs.add(def)

	v2 := linearDefinition()
	v2.ID = def.ID
	v2.Version = 2
	f.defs.add(v2)

	sess, _, err := f.manager.CreateSession(context.Background(), def.ID, 1, "")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if sess.Version != 1 {
		t.Errorf("pinned version = %d, want 1", sess.Version)
	}

	// version 0 закрепляет последнюю
	sess2, _, err := f.manager.CreateSession(context.Background(), def.ID, 0, "")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if sess2.Version != 2 {
		t.Errorf("latest version = %d, want 2", sess2.Version)
	}
}

func TestCreateSessionUnknownDefinition(t *testing.T) {
	f := newFixture()

	_, _, err := f.manager.CreateSession(context.Background(), uuid.New(), 0, "")
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %s, want NotFound", KindOf(err))
	}
}

// Линейный сценарий: advance продвигает к review, второй advance
// проходит терминальную done и завершает сессию за один вызов.
func TestAdvanceLinearToCompletion(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	res, err := f.manager.Advance(ctx, sess.ID, map[string]any{"author": "ann"})
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if res.Outcome != OutcomeAdvanced {
		t.Fatalf("outcome = %s, want ADVANCED", res.Outcome)
	}
	if res.Started == nil || res.Started.StageID != "review" {
		t.Fatalf("started = %+v, want review", res.Started)
	}

	res, err = f.manager.Advance(ctx, sess.ID, map[string]any{"approved": true})
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if res.Outcome != OutcomeCompleted {
		t.Fatalf("outcome = %s, want COMPLETED", res.Outcome)
	}
	if res.Session.Status != domain.SessionStatusCompleted {
		t.Errorf("session status = %s, want COMPLETED", res.Session.Status)
	}

	// Терминальная стадия зафиксирована в истории
	history, err := f.manager.History(ctx, sess.ID)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	last := history[2]
	if last.StageID != "done" || last.Status != domain.InstanceStatusCompleted {
		t.Errorf("last instance = %s/%s, want done/COMPLETED", last.StageID, last.Status)
	}
}

func TestAdvanceMergesResultIntoContext(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	if _, err := f.manager.Advance(ctx, sess.ID, map[string]any{"author": "ann", "size": 10}); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if _, err := f.manager.Advance(ctx, sess.ID, map[string]any{"size": 20, "approved": true}); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	stored, err := f.sessions.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if stored.Context["author"] != "ann" {
		t.Errorf("context author = %v, want ann", stored.Context["author"])
	}
	// Поздний результат перекрывает ранний
	if stored.Context["size"] != 20 {
		t.Errorf("context size = %v, want 20", stored.Context["size"])
	}
}

// Несколько кандидатов: никто не запускается, решение за вызывающим.
func TestAdvanceDecisionRequired(t *testing.T) {
	f := newFixture()
	def := branchingDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	res, err := f.manager.Advance(ctx, sess.ID, nil)
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if res.Outcome != OutcomeDecisionRequired {
		t.Fatalf("outcome = %s, want DECISION_REQUIRED", res.Outcome)
	}
	if len(res.NextStages) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.NextStages))
	}
	// Порядок детерминирован приоритетами переходов
	if res.NextStages[0].ID != "escalate" || res.NextStages[1].ID != "mitigate" {
		t.Errorf("candidate order = %s, %s", res.NextStages[0].ID, res.NextStages[1].ID)
	}

	// Активного instance нет, сессия ждёт выбора
	if _, err := f.instances.Active(ctx, sess.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Error("no instance must be active while a decision is pending")
	}

	inst, err := f.manager.ResumeInto(ctx, sess.ID, "mitigate")
	if err != nil {
		t.Fatalf("ResumeInto() error: %v", err)
	}
	if inst.StageID != "mitigate" || inst.Status != domain.InstanceStatusActive {
		t.Errorf("resumed instance = %s/%s", inst.StageID, inst.Status)
	}
}

func TestAdvanceBlockedKeepsSessionActive(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	// Убираем переход из review: advance из review упирается в тупик
	def.Transitions = def.Transitions[:1]
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	if _, err := f.manager.Advance(ctx, sess.ID, nil); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	res, err := f.manager.Advance(ctx, sess.ID, nil)
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if res.Outcome != OutcomeBlocked {
		t.Fatalf("outcome = %s, want BLOCKED", res.Outcome)
	}
	if res.Session.Status != domain.SessionStatusActive {
		t.Errorf("session status = %s, want ACTIVE", res.Session.Status)
	}

	// Выход из тупика — явный ResumeInto
	if _, err := f.manager.ResumeInto(ctx, sess.ID, "done"); err != nil {
		t.Fatalf("ResumeInto() error: %v", err)
	}
}

// Повторный advance без активного instance — StateError, не дубль.
func TestAdvanceWithoutActiveInstanceIsStateError(t *testing.T) {
	f := newFixture()
	def := branchingDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	if _, err := f.manager.Advance(ctx, sess.ID, nil); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	_, err := f.manager.Advance(ctx, sess.ID, nil)
	if KindOf(err) != KindState {
		t.Errorf("KindOf = %s, want StateError", KindOf(err))
	}
}

func TestAdvanceCompletedSessionIsStateError(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	f.manager.Advance(ctx, sess.ID, nil)
	f.manager.Advance(ctx, sess.ID, nil)

	_, err := f.manager.Advance(ctx, sess.ID, nil)
	if KindOf(err) != KindState {
		t.Errorf("KindOf = %s, want StateError", KindOf(err))
	}
}

// Конкурентная мутация: занятая блокировка превращается в ConflictError.
func TestAdvanceConflictOnBusySession(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)

	f.atomic.busy = true
	_, err := f.manager.Advance(context.Background(), sess.ID, nil)
	if KindOf(err) != KindConflict {
		t.Errorf("KindOf = %s, want ConflictError", KindOf(err))
	}
}

func TestResumeIntoRejectsUnknownStage(t *testing.T) {
	f := newFixture()
	def := branchingDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	f.manager.Advance(ctx, sess.ID, nil)

	_, err := f.manager.ResumeInto(ctx, sess.ID, "ghost")
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %s, want NotFound", KindOf(err))
	}
}

func TestResumeIntoRejectsSecondActiveInstance(t *testing.T) {
	f := newFixture()
	def := branchingDefinition()
	sess := mustCreate(t, f, def)

	// triage ещё активна
	_, err := f.manager.ResumeInto(context.Background(), sess.ID, "escalate")
	if KindOf(err) != KindConflict {
		t.Errorf("KindOf = %s, want ConflictError", KindOf(err))
	}
}

func TestPauseResumeRoundtrip(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	paused, err := f.manager.Pause(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Pause() error: %v", err)
	}
	if paused.Status != domain.SessionStatusPaused {
		t.Errorf("status = %s, want PAUSED", paused.Status)
	}

	// Advance на паузе — StateError
	if _, err := f.manager.Advance(ctx, sess.ID, nil); KindOf(err) != KindState {
		t.Errorf("Advance on paused: KindOf = %s, want StateError", KindOf(err))
	}

	resumed, err := f.manager.Resume(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	if resumed.Status != domain.SessionStatusActive {
		t.Errorf("status = %s, want ACTIVE", resumed.Status)
	}

	// Активный instance пережил паузу
	if _, err := f.instances.Active(ctx, sess.ID); err != nil {
		t.Errorf("active instance lost across pause: %v", err)
	}
}

func TestResumeActiveSessionIsStateError(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)

	_, err := f.manager.Resume(context.Background(), sess.ID)
	if KindOf(err) != KindState {
		t.Errorf("KindOf = %s, want StateError", KindOf(err))
	}
}

func TestAbortFailsActiveInstance(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	aborted, err := f.manager.Abort(ctx, sess.ID, "requirements changed")
	if err != nil {
		t.Fatalf("Abort() error: %v", err)
	}
	if aborted.Status != domain.SessionStatusAborted {
		t.Errorf("status = %s, want ABORTED", aborted.Status)
	}

	history, _ := f.manager.History(ctx, sess.ID)
	if len(history) != 1 || history[0].Status != domain.InstanceStatusFailed {
		t.Fatalf("history = %+v, want single FAILED instance", history)
	}
	if history[0].Result["reason"] != "requirements changed" {
		t.Errorf("reason = %v", history[0].Result["reason"])
	}

	// Повторный abort терминальной сессии — StateError
	if _, err := f.manager.Abort(ctx, sess.ID, "again"); KindOf(err) != KindState {
		t.Errorf("KindOf = %s, want StateError", KindOf(err))
	}
}

func TestPurgeRemovesSession(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	if err := f.manager.Purge(ctx, sess.ID); err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if _, err := f.manager.CurrentContext(ctx, sess.ID); KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %s, want NotFound", KindOf(err))
	}
}

func TestCurrentContextSnapshot(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	sc, err := f.manager.CurrentContext(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CurrentContext() error: %v", err)
	}
	if sc.Stage == nil || sc.Stage.ID != "draft" {
		t.Fatalf("stage = %+v, want draft", sc.Stage)
	}
	if sc.Active == nil || sc.Active.StageID != "draft" {
		t.Fatalf("active = %+v, want draft", sc.Active)
	}
	if len(sc.History) != 1 {
		t.Errorf("history length = %d, want 1", len(sc.History))
	}

	// После завершения снимок без стадии и активного instance
	f.manager.Advance(ctx, sess.ID, nil)
	f.manager.Advance(ctx, sess.ID, nil)

	sc, err = f.manager.CurrentContext(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CurrentContext() error: %v", err)
	}
	if sc.Stage != nil || sc.Active != nil {
		t.Errorf("completed session snapshot must have no active stage")
	}
	if sc.Session.Status != domain.SessionStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", sc.Session.Status)
	}
}

func TestEventsPublishedAfterSuccessfulAdvance(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	f.events.events = nil

	if _, err := f.manager.Advance(context.Background(), sess.ID, nil); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	// Завершение draft + запуск review
	if len(f.events.events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(f.events.events), f.events.events)
	}
	if f.events.events[0].Domain != status.DomainInstance || f.events.events[0].NewStatus != string(domain.InstanceStatusCompleted) {
		t.Errorf("first event = %+v", f.events.events[0])
	}
	if f.events.events[1].NewStatus != string(domain.InstanceStatusActive) {
		t.Errorf("second event = %+v", f.events.events[1])
	}
}

func TestNoEventsOnFailedAdvance(t *testing.T) {
	f := newFixture()
	def := linearDefinition()
	sess := mustCreate(t, f, def)
	f.events.events = nil

	f.atomic.busy = true
	f.manager.Advance(context.Background(), sess.ID, nil)

	if len(f.events.events) != 0 {
		t.Errorf("got %d events after failed advance, want 0", len(f.events.events))
	}
}

// Инвариант: в любой точке произвольной последовательности операций
// у сессии не больше одного ACTIVE instance.
func TestAtMostOneActiveInstance(t *testing.T) {
	f := newFixture()
	def := branchingDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	ops := []func(){
		func() { f.manager.Advance(ctx, sess.ID, nil) },
		func() { f.manager.ResumeInto(ctx, sess.ID, "escalate") },
		func() { f.manager.ResumeInto(ctx, sess.ID, "mitigate") },
		func() { f.manager.Pause(ctx, sess.ID) },
		func() { f.manager.Resume(ctx, sess.ID) },
	}

	check := func(step int) {
		active := 0
		for _, inst := range f.instances.instances {
			if inst.SessionID == sess.ID && inst.Status == domain.InstanceStatusActive {
				active++
			}
		}
		if active > 1 {
			t.Fatalf("step %d: %d active instances", step, active)
		}
	}

	// Детерминированный прогон всех операций по кругу
	for round := 0; round < 5; round++ {
		for i, op := range ops {
			op()
			check(round*len(ops) + i)
		}
	}
}

func TestAttemptNumbersGrowPerStage(t *testing.T) {
	f := newFixture()
	def := branchingDefinition()
	sess := mustCreate(t, f, def)
	ctx := context.Background()

	// Retry-цикл: проваленная попытка и повторный заход через ResumeInto
	f.manager.Advance(ctx, sess.ID, nil)

	first, err := f.manager.ResumeInto(ctx, sess.ID, "escalate")
	if err != nil {
		t.Fatalf("ResumeInto() error: %v", err)
	}
	if first.Attempt != 1 {
		t.Errorf("first attempt = %d, want 1", first.Attempt)
	}

	// Проваливаем попытку и заходим снова
	if _, err := f.instances.Fail(ctx, first.ID, map[string]any{"reason": "flaky"}); err != nil {
		t.Fatalf("Fail() error: %v", err)
	}

	second, err := f.manager.ResumeInto(ctx, sess.ID, "escalate")
	if err != nil {
		t.Fatalf("ResumeInto() error: %v", err)
	}
	if second.Attempt != 2 {
		t.Errorf("second attempt = %d, want 2", second.Attempt)
	}
}
