package status

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Домены событий.
const (
	// DomainSession — изменения статуса FlowSession.
	DomainSession = "session"

	// DomainInstance — изменения статуса StageInstance.
	DomainInstance = "instance"
)

// Event — одно изменение статуса.
type Event struct {
	// Domain — домен сущности: "session" или "instance".
	Domain string `json:"domain"`

	// EntityID — идентификатор сущности.
	EntityID string `json:"entity_id"`

	// OldStatus — статус до изменения. Пустой для создания.
	OldStatus string `json:"old_status,omitempty"`

	// NewStatus — статус после изменения.
	NewStatus string `json:"new_status"`

	// Data — дополнительные данные события (session_id, stage_id, причина).
	Data map[string]any `json:"data,omitempty"`

	// OccurredAt — время изменения.
	OccurredAt time.Time `json:"occurred_at"`
}

// Subscriber получает события изменения статусов.
//
// Реализации должны быть быстрыми: доставка синхронная, на мутирующем
// потоке. Тяжёлую работу подписчик выносит в свои горутины.
type Subscriber interface {
	HandleStatusChange(ctx context.Context, ev Event)
}

// Publisher — хаб подписчиков с доставкой по порядку регистрации.
//
// Гарантии: синхронная, упорядоченная, at-least-once доставка in-process
// подписчикам. Паника подписчика логируется и не блокирует остальных —
// publish уведомляет, но никогда не координирует.
type Publisher struct {
	mu     sync.Mutex
	subs   []Subscriber
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger}
}

// Subscribe регистрирует подписчика. Обычно вызывается на старте процесса.
func (p *Publisher) Subscribe(s Subscriber) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, s)
}

// Publish доставляет событие всем подписчикам в порядке регистрации.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	p.mu.Lock()
	subs := make([]Subscriber, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, s := range subs {
		p.deliver(ctx, s, ev)
	}
}

// deliver доставляет событие одному подписчику, изолируя панику.
func (p *Publisher) deliver(ctx context.Context, s Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("status subscriber panicked",
				"domain", ev.Domain,
				"entity_id", ev.EntityID,
				"panic", r,
			)
		}
	}()
	s.HandleStatusChange(ctx, ev)
}
