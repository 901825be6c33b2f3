package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Stagehand/internal/status"
)

// Forwarder пересылает события смены статусов в RabbitMQ.
// Реализует status.Subscriber.
type Forwarder struct {
	conn   *Connection
	logger *slog.Logger
}

// NewForwarder создаёт Forwarder.
func NewForwarder(conn *Connection, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{conn: conn, logger: logger}
}

// envelope — формат сообщения во внешней очереди.
type envelope struct {
	ID          string         `json:"id"`
	Domain      string         `json:"domain"`
	EntityID    string         `json:"entity_id"`
	OldStatus   string         `json:"old_status,omitempty"`
	NewStatus   string         `json:"new_status"`
	Data        map[string]any `json:"data,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
	PublishedAt time.Time      `json:"published_at"`
}

// HandleStatusChange публикует событие в exchange stagehand.status.
// Ошибка публикации логируется: событие уже зафиксировано в БД,
// терять транзакцию из-за недоступного брокера нельзя.
func (f *Forwarder) HandleStatusChange(ctx context.Context, ev status.Event) {
	env := envelope{
		ID:          uuid.New().String(),
		Domain:      ev.Domain,
		EntityID:    ev.EntityID,
		OldStatus:   ev.OldStatus,
		NewStatus:   ev.NewStatus,
		Data:        ev.Data,
		OccurredAt:  ev.OccurredAt,
		PublishedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(env)
	if err != nil {
		f.logger.Error("marshal status event", "error", err)
		return
	}

	err = f.conn.WithChannel(func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			string(ExchangeStatus),
			ev.Domain, // routing key совпадает с доменом
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    env.ID,
				Timestamp:    env.PublishedAt,
				Body:         body,
			},
		)
	})
	if err != nil {
		f.logger.Warn("failed to forward status event",
			"domain", ev.Domain,
			"entity_id", ev.EntityID,
			"new_status", ev.NewStatus,
			"error", err,
		)
		return
	}

	f.logger.Debug("forwarded status event",
		"domain", ev.Domain,
		"entity_id", ev.EntityID,
		"new_status", ev.NewStatus,
	)
}
