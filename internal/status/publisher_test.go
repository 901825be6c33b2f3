package status

import (
	"context"
	"testing"
)

// recordingSubscriber копит полученные события.
type recordingSubscriber struct {
	events []Event
}

func (s *recordingSubscriber) HandleStatusChange(_ context.Context, ev Event) {
	s.events = append(s.events, ev)
}

// panickingSubscriber всегда паникует.
type panickingSubscriber struct{}

func (panickingSubscriber) HandleStatusChange(context.Context, Event) {
	panic("boom")
}

func TestPublishDeliversInOrder(t *testing.T) {
	p := NewPublisher(nil)
	sub := &recordingSubscriber{}
	p.Subscribe(sub)

	p.Publish(context.Background(), Event{Domain: DomainSession, EntityID: "s-1", NewStatus: "ACTIVE"})
	p.Publish(context.Background(), Event{Domain: DomainSession, EntityID: "s-1", OldStatus: "ACTIVE", NewStatus: "PAUSED"})

	if len(sub.events) != 2 {
		t.Fatalf("got %d events, want 2", len(sub.events))
	}
	if sub.events[0].NewStatus != "ACTIVE" || sub.events[1].NewStatus != "PAUSED" {
		t.Errorf("events out of order: %+v", sub.events)
	}
}

func TestPublishSetsOccurredAt(t *testing.T) {
	p := NewPublisher(nil)
	sub := &recordingSubscriber{}
	p.Subscribe(sub)

	p.Publish(context.Background(), Event{Domain: DomainInstance, EntityID: "i-1", NewStatus: "ACTIVE"})

	if sub.events[0].OccurredAt.IsZero() {
		t.Error("OccurredAt must be filled on publish")
	}
}

func TestPublishToAllSubscribers(t *testing.T) {
	p := NewPublisher(nil)
	first := &recordingSubscriber{}
	second := &recordingSubscriber{}
	p.Subscribe(first)
	p.Subscribe(second)

	p.Publish(context.Background(), Event{Domain: DomainSession, EntityID: "s-1", NewStatus: "COMPLETED"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Errorf("delivery incomplete: first=%d second=%d", len(first.events), len(second.events))
	}
}

func TestPublishIsolatesPanics(t *testing.T) {
	p := NewPublisher(nil)
	sub := &recordingSubscriber{}
	p.Subscribe(panickingSubscriber{})
	p.Subscribe(sub)

	// Паника первого подписчика не мешает доставке второму.
	p.Publish(context.Background(), Event{Domain: DomainSession, EntityID: "s-1", NewStatus: "ABORTED"})

	if len(sub.events) != 1 {
		t.Fatalf("got %d events after panic, want 1", len(sub.events))
	}
}

func TestSubscribeNilIsNoop(t *testing.T) {
	p := NewPublisher(nil)
	p.Subscribe(nil)
	// Не должно паниковать при публикации
	p.Publish(context.Background(), Event{Domain: DomainSession, EntityID: "s-1", NewStatus: "ACTIVE"})
}
