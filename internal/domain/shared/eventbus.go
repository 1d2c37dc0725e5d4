package shared

import "context"

// EventHandler reacts to relayed events. A returned error leaves the outbox
// entry for retry, so handlers must tolerate seeing an event twice.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes is empty for a catch-all handler
	EventTypes() []string
}

// EventPublisher hands events to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is what the outbox processor delivers into
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver writes events in the same transaction as the case or user
// row that raised them. txProvider is the open *gorm.DB transaction.
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider any, events ...DomainEvent) error
}
