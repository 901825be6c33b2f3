package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Definitions
	mux.Handle("GET /api/v1/definitions", chain(http.HandlerFunc(h.ListDefinitions)))
	mux.Handle("POST /api/v1/definitions", chain(http.HandlerFunc(h.PublishDefinition)))
	mux.Handle("GET /api/v1/definitions/{id}", chain(http.HandlerFunc(h.GetDefinition)))
	mux.Handle("GET /api/v1/definitions/{id}/versions", chain(http.HandlerFunc(h.ListDefinitionVersions)))
	mux.Handle("POST /api/v1/definitions/{id}/versions", chain(http.HandlerFunc(h.PublishDefinitionVersion)))
	mux.Handle("GET /api/v1/definitions/{id}/versions/{version}", chain(http.HandlerFunc(h.GetDefinitionVersion)))

	// Sessions
	mux.Handle("GET /api/v1/sessions", chain(http.HandlerFunc(h.ListSessions)))
	mux.Handle("POST /api/v1/sessions", chain(http.HandlerFunc(h.CreateSession)))
	mux.Handle("GET /api/v1/sessions/{id}", chain(http.HandlerFunc(h.GetSession)))
	mux.Handle("GET /api/v1/sessions/{id}/history", chain(http.HandlerFunc(h.GetSessionHistory)))
	mux.Handle("POST /api/v1/sessions/{id}/advance", chain(http.HandlerFunc(h.AdvanceSession)))
	mux.Handle("POST /api/v1/sessions/{id}/resume-into", chain(http.HandlerFunc(h.ResumeInto)))
	mux.Handle("POST /api/v1/sessions/{id}/pause", chain(http.HandlerFunc(h.PauseSession)))
	mux.Handle("POST /api/v1/sessions/{id}/resume", chain(http.HandlerFunc(h.ResumeSession)))
	mux.Handle("POST /api/v1/sessions/{id}/abort", chain(http.HandlerFunc(h.AbortSession)))
	mux.Handle("DELETE /api/v1/sessions/{id}", chain(http.HandlerFunc(h.PurgeSession)))

	// Session pointers
	mux.Handle("GET /api/v1/pointers/{caller}", chain(http.HandlerFunc(h.GetPointer)))
	mux.Handle("PUT /api/v1/pointers/{caller}", chain(http.HandlerFunc(h.SetPointer)))
	mux.Handle("DELETE /api/v1/pointers/{caller}", chain(http.HandlerFunc(h.DeletePointer)))
}
