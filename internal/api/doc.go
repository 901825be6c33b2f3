// Package api содержит HTTP API поверх движка.
//
// Маршруты построены на method-паттернах http.ServeMux (Go 1.22+).
// Ошибки flowmanager транслируются в HTTP-коды по Kind:
// NotFound — 404, ConflictError — 409, StateError — 422,
// ValidationError — 400, остальное — 500. DECISION_REQUIRED и
// BLOCKED — не ошибки, а исходы advance в теле 200-ответа.
package api
