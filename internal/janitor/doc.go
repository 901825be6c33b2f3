// Package janitor содержит фоновую чистку завершённых сессий.
//
// Janitor по cron-расписанию удаляет COMPLETED и ABORTED сессии,
// чей updated_at старше периода хранения. Удаление сессии каскадно
// уносит её instances и указатели. ACTIVE и PAUSED сессии не трогаются
// независимо от возраста.
package janitor
