package status

import (
	"context"
	"log/slog"
)

// LoggingSubscriber пишет каждое изменение статуса в структурированный лог.
type LoggingSubscriber struct {
	logger *slog.Logger
}

// NewLoggingSubscriber создаёт подписчика-логгер.
// Если logger == nil, используется slog.Default().
func NewLoggingSubscriber(logger *slog.Logger) *LoggingSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingSubscriber{logger: logger}
}

// HandleStatusChange реализует Subscriber.
func (s *LoggingSubscriber) HandleStatusChange(ctx context.Context, ev Event) {
	s.logger.InfoContext(ctx, "status change",
		"domain", ev.Domain,
		"entity_id", ev.EntityID,
		"old_status", ev.OldStatus,
		"new_status", ev.NewStatus,
	)
}
