package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ListDefinitions возвращает последние версии всех definitions.
// GET /api/v1/definitions
func (h *Handler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.definitions.List(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := make([]DefinitionResponse, len(defs))
	for i, d := range defs {
		result[i] = DefinitionFromDomain(d)
	}

	List(w, result, len(result))
}

// PublishDefinition публикует первую версию нового definition.
// POST /api/v1/definitions
func (h *Handler) PublishDefinition(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, uuid.Nil)
}

// PublishDefinitionVersion публикует новую версию существующего definition.
// POST /api/v1/definitions/{id}/versions
func (h *Handler) PublishDefinitionVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid definition id")
		return
	}
	h.publish(w, r, id)
}

// publish — общий путь публикации версии.
func (h *Handler) publish(w http.ResponseWriter, r *http.Request, defID uuid.UUID) {
	var req PublishDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if defID == uuid.Nil && req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	def, warnings, err := h.definitions.Publish(r.Context(), defID, req.Draft())
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, PublishedResponse{
		Definition: DefinitionFromDomain(*def),
		Warnings:   warnings,
	})
}

// GetDefinition возвращает последнюю версию definition.
// GET /api/v1/definitions/{id}
func (h *Handler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid definition id")
		return
	}

	def, err := h.definitions.Version(r.Context(), id, 0)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, DefinitionFromDomain(*def))
}

// ListDefinitionVersions возвращает все версии definition.
// GET /api/v1/definitions/{id}/versions
func (h *Handler) ListDefinitionVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid definition id")
		return
	}

	versions, err := h.definitions.ListVersions(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}

	result := make([]DefinitionResponse, len(versions))
	for i, v := range versions {
		result[i] = DefinitionFromDomain(v)
	}

	List(w, result, len(result))
}

// GetDefinitionVersion возвращает конкретную версию definition.
// GET /api/v1/definitions/{id}/versions/{version}
func (h *Handler) GetDefinitionVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid definition id")
		return
	}

	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version <= 0 {
		BadRequest(w, "invalid version number")
		return
	}

	def, err := h.definitions.Version(r.Context(), id, version)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, DefinitionFromDomain(*def))
}
