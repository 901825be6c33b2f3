package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
)

// GetPointer возвращает сессию, привязанную к caller.
// GET /api/v1/pointers/{caller}
func (h *Handler) GetPointer(w http.ResponseWriter, r *http.Request) {
	caller := r.PathValue("caller")

	p, err := h.pointers.Get(r.Context(), caller)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, PointerFromDomain(*p))
}

// SetPointer привязывает caller к сессии (upsert).
// PUT /api/v1/pointers/{caller}
func (h *Handler) SetPointer(w http.ResponseWriter, r *http.Request) {
	caller := r.PathValue("caller")

	var req SetPointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.SessionID == uuid.Nil {
		BadRequest(w, "session_id is required")
		return
	}

	// Указатель на несуществующую сессию бессмыслен.
	if _, err := h.sessions.GetByID(r.Context(), req.SessionID); HandleError(w, h.logger, err) {
		return
	}

	p := &domain.SessionPointer{Caller: caller, SessionID: req.SessionID}
	if err := h.pointers.Set(r.Context(), p); HandleError(w, h.logger, err) {
		return
	}

	Success(w, PointerFromDomain(*p))
}

// DeletePointer снимает привязку caller.
// DELETE /api/v1/pointers/{caller}
func (h *Handler) DeletePointer(w http.ResponseWriter, r *http.Request) {
	caller := r.PathValue("caller")

	if err := h.pointers.Delete(r.Context(), caller); HandleError(w, h.logger, err) {
		return
	}

	NoContent(w)
}
