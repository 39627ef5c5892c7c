package shared

import "context"

// EventHandler reacts to cart events published after a commit or a rejection
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler subscribes to when none are
	// given explicitly. Empty means every event.
	EventTypes() []string
}

// EventPublisher is the port the cart store publishes through.
// Handler failures are not reported back to the publisher's caller.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations
type EventSubscriber interface {
	// Subscribe registers handler for eventTypes, falling back to
	// handler.EventTypes() when eventTypes is empty
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is a publisher and subscriber with a lifecycle.
// Publishing on a stopped bus is an error.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
