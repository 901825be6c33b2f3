package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/repo"
)

// fakeSessions отдаёт только заранее известные сессии.
type fakeSessions struct {
	known map[uuid.UUID]*domain.FlowSession
}

func (f *fakeSessions) GetByID(_ context.Context, id uuid.UUID) (*domain.FlowSession, error) {
	s, ok := f.known[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) List(context.Context, repo.SessionFilter) ([]domain.FlowSession, error) {
	return nil, nil
}

// fakePointers хранит указатели в памяти. Set заполняет UpdatedAt,
// повторяя контракт repo.PointerRepo.
type fakePointers struct {
	pointers map[string]domain.SessionPointer
}

func (f *fakePointers) Get(_ context.Context, caller string) (*domain.SessionPointer, error) {
	p, ok := f.pointers[caller]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (f *fakePointers) Set(_ context.Context, p *domain.SessionPointer) error {
	p.UpdatedAt = time.Now().UTC()
	f.pointers[p.Caller] = *p
	return nil
}

func (f *fakePointers) Delete(_ context.Context, caller string) error {
	if _, ok := f.pointers[caller]; !ok {
		return repo.ErrNotFound
	}
	delete(f.pointers, caller)
	return nil
}

func newPointerServer(sessions ...*domain.FlowSession) (*http.ServeMux, *fakePointers) {
	known := make(map[uuid.UUID]*domain.FlowSession)
	for _, s := range sessions {
		known[s.ID] = s
	}
	pointers := &fakePointers{pointers: make(map[string]domain.SessionPointer)}
	h := NewHandler(Config{
		Sessions: &fakeSessions{known: known},
		Pointers: pointers,
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, pointers
}

func TestSetPointerRespondsWithUpdatedAt(t *testing.T) {
	sess := &domain.FlowSession{ID: uuid.New(), Status: domain.SessionStatusActive}
	mux, _ := newPointerServer(sess)

	body := `{"session_id": "` + sess.ID.String() + `"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/pointers/agent-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data PointerResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.Caller != "agent-1" || resp.Data.SessionID != sess.ID {
		t.Errorf("pointer = %+v", resp.Data)
	}
	if resp.Data.UpdatedAt.IsZero() {
		t.Error("updated_at is zero, must carry the write timestamp")
	}
}

func TestSetPointerUnknownSession(t *testing.T) {
	mux, pointers := newPointerServer()

	body := `{"session_id": "` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/pointers/agent-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(pointers.pointers) != 0 {
		t.Error("pointer must not be written for an unknown session")
	}
}

func TestSetPointerRequiresSessionID(t *testing.T) {
	mux, _ := newPointerServer()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/pointers/agent-1", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPointerLifecycle(t *testing.T) {
	sess := &domain.FlowSession{ID: uuid.New(), Status: domain.SessionStatusActive}
	mux, _ := newPointerServer(sess)

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pointers/agent-1", nil))
		return rec
	}

	if rec := get(); rec.Code != http.StatusNotFound {
		t.Fatalf("get before set: status = %d, want 404", rec.Code)
	}

	body := `{"session_id": "` + sess.ID.String() + `"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/pointers/agent-1", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("set: status = %d", rec.Code)
	}

	if rec := get(); rec.Code != http.StatusOK {
		t.Fatalf("get after set: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/pointers/agent-1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", rec.Code)
	}

	if rec := get(); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}
