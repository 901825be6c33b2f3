package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/repo"
)

// ListSessions возвращает сессии с фильтрами.
// GET /api/v1/sessions?definition_id=&status=&limit=&offset=
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	var filter repo.SessionFilter

	if raw := r.URL.Query().Get("definition_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(w, "invalid definition_id")
			return
		}
		filter.DefinitionID = &id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.SessionStatus(raw)
		if !status.Valid() {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = n
	}

	sessions, err := h.sessions.List(r.Context(), filter)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		result[i] = SessionFromDomain(s)
	}

	List(w, result, len(result))
}

// CreateSession создаёт сессию и запускает стартовую стадию.
// POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.DefinitionID == uuid.Nil {
		BadRequest(w, "workflow_definition_id is required")
		return
	}

	sess, started, err := h.manager.CreateSession(r.Context(), req.DefinitionID, req.Version, req.Name)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, CreatedSessionResponse{
		Session: SessionFromDomain(*sess),
		Started: InstanceFromDomain(*started),
	})
}

// GetSession возвращает полный снимок сессии.
// GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sc, err := h.manager.CurrentContext(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, SessionContextFromDomain(sc))
}

// GetSessionHistory возвращает историю instances сессии.
// GET /api/v1/sessions/{id}/history
func (h *Handler) GetSessionHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	history, err := h.manager.History(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	List(w, instancesFromDomain(history), len(history))
}

// AdvanceSession завершает активную стадию и продвигает сессию.
// POST /api/v1/sessions/{id}/advance
//
// DECISION_REQUIRED и BLOCKED — не ошибки: это 200-ответ с исходом,
// по которому вызывающий выбирает стадию через resume-into.
func (h *Handler) AdvanceSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	res, err := h.manager.Advance(r.Context(), id, req.Result)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, AdvanceFromDomain(res))
}

// ResumeInto запускает выбранную стадию.
// POST /api/v1/sessions/{id}/resume-into
func (h *Handler) ResumeInto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req ResumeIntoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.StageID == "" {
		BadRequest(w, "stage_id is required")
		return
	}

	inst, err := h.manager.ResumeInto(r.Context(), id, req.StageID)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, InstanceFromDomain(*inst))
}

// PauseSession приостанавливает сессию.
// POST /api/v1/sessions/{id}/pause
func (h *Handler) PauseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.manager.Pause(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, SessionFromDomain(*sess))
}

// ResumeSession возобновляет приостановленную сессию.
// POST /api/v1/sessions/{id}/resume
func (h *Handler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.manager.Resume(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, SessionFromDomain(*sess))
}

// AbortSession необратимо прерывает сессию.
// POST /api/v1/sessions/{id}/abort
func (h *Handler) AbortSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req AbortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	sess, err := h.manager.Abort(r.Context(), id, req.Reason)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, SessionFromDomain(*sess))
}

// PurgeSession удаляет сессию и всю её историю.
// DELETE /api/v1/sessions/{id}
func (h *Handler) PurgeSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Purge(r.Context(), id); HandleError(w, h.logger, err) {
		return
	}

	NoContent(w)
}

// sessionID извлекает и валидирует {id} из пути.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}
