// Package events publishes application lifecycle transitions as CloudEvents
// to registered observers.
package events

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Event types emitted around each hookable phase.
const (
	EventTypePhaseStarting  = "com.appkit.phase.starting"
	EventTypePhaseCompleted = "com.appkit.phase.completed"
)

// Observer receives events it subscribed to.
type Observer interface {
	// OnEvent is called synchronously on the emitting goroutine. Observers
	// should return quickly.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID identifies the observer for registration tracking.
	ObserverID() string
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID string `json:"id"`

	// EventTypes are the subscribed types. Empty means all events.
	EventTypes []string `json:"eventTypes"`

	RegisteredAt time.Time `json:"registeredAt"`
}

// FunctionalObserver adapts a function to Observer.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that calls handler for each
// event.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements Observer.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements Observer.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
