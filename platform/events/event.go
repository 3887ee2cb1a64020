// Package events is the in-process event bus modules use to react to each
// other's changes without importing each other.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is anything published on the bus. EventName is the subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventID identifies this occurrence, for handler-side deduplication.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with a fresh ID and the current UTC time.
func NewBaseEvent() BaseEvent {
	return NewBaseEventAt(time.Now())
}

// NewBaseEventAt stamps an event with the publisher's own clock, so the
// event time matches the timestamps written in the same change.
func NewBaseEventAt(at time.Time) BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: at.UTC()}
}

// Handler reacts to one published event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to the handlers subscribed to their name.
type Bus interface {
	// Publish dispatches asynchronously; handler failures are logged only.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in subscription order and joins their errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
