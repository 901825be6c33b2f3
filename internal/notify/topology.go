package notify

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeStatus — единственный обменник событий движка.
const ExchangeStatus Exchange = "stagehand.status"

// Queues — очереди событий по доменам.
const (
	QueueSessionEvents  Queue = "status.sessions"
	QueueInstanceEvents Queue = "status.instances"
)

// Routing keys совпадают с доменами событий.
const (
	RoutingKeySession  RoutingKey = "session"
	RoutingKeyInstance RoutingKey = "instance"
)

// SetupTopology декларирует обменник, очереди и привязки.
// Идемпотентна: повторный вызов на существующей топологии безопасен.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeStatus),
			"direct",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeStatus, err)
		}

		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
		}{
			{QueueSessionEvents, RoutingKeySession},
			{QueueInstanceEvents, RoutingKeyInstance},
		}

		for _, b := range bindings {
			_, err := ch.QueueDeclare(
				string(b.queue),
				true,  // durable
				false, // delete when unused
				false, // exclusive
				false, // no-wait
				nil,
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			err = ch.QueueBind(
				string(b.queue),
				string(b.routingKey),
				string(ExchangeStatus),
				false,
				nil,
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, ExchangeStatus, err)
			}
		}

		return nil
	})
}
