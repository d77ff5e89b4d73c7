package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/GoCodeAlone/appkit"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	ErrNilObserver        = errors.New("observer cannot be nil")
	ErrObserverRegistered = errors.New("observer already registered")
	ErrInvalidEvent       = errors.New("invalid event")
)

type registration struct {
	observer     Observer
	eventTypes   []string
	registeredAt time.Time
}

func (r registration) wants(eventType string) bool {
	return len(r.eventTypes) == 0 || slices.Contains(r.eventTypes, eventType)
}

// Emitter is an extension that publishes a starting event before and a
// completed event after every hookable phase. Observers are notified
// synchronously in registration order.
type Emitter struct {
	mu        sync.RWMutex
	observers []registration
	logger    appkit.Logger
}

// NewEmitter creates an emitter with no observers.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Name implements appkit.Extension.
func (e *Emitter) Name() string { return "events" }

// RegisterObserver subscribes observer to eventTypes, or to every event
// when none are given.
func (e *Emitter) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrNilObserver
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	id := observer.ObserverID()
	if slices.ContainsFunc(e.observers, func(r registration) bool { return r.observer.ObserverID() == id }) {
		return fmt.Errorf("%w: %s", ErrObserverRegistered, id)
	}
	e.observers = append(e.observers, registration{
		observer:     observer,
		eventTypes:   slices.Clone(eventTypes),
		registeredAt: time.Now(),
	})
	return nil
}

// UnregisterObserver removes observer. Removing an unknown observer is not
// an error.
func (e *Emitter) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrNilObserver
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	id := observer.ObserverID()
	e.observers = slices.DeleteFunc(e.observers, func(r registration) bool { return r.observer.ObserverID() == id })
	return nil
}

// GetObservers describes the registered observers in registration order.
func (e *Emitter) GetObservers() []ObserverInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	infos := make([]ObserverInfo, 0, len(e.observers))
	for _, r := range e.observers {
		infos = append(infos, ObserverInfo{
			ID:           r.observer.ObserverID(),
			EventTypes:   slices.Clone(r.eventTypes),
			RegisteredAt: r.registeredAt,
		})
	}
	return infos
}

// NotifyObservers delivers event to every subscribed observer. Only an
// invalid event is reported; observer errors and panics are logged.
func (e *Emitter) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	e.mu.RLock()
	targets := make([]registration, 0, len(e.observers))
	for _, r := range e.observers {
		if r.wants(event.Type()) {
			targets = append(targets, r)
		}
	}
	logger := e.logger
	e.mu.RUnlock()

	for _, r := range targets {
		e.deliver(ctx, logger, r.observer, event)
	}
	return nil
}

func (e *Emitter) deliver(ctx context.Context, logger appkit.Logger, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("Observer panicked", "observer", observer.ObserverID(), "eventType", event.Type(), "panic", r)
		}
	}()
	if err := observer.OnEvent(ctx, event); err != nil && logger != nil {
		logger.Warn("Observer failed", "observer", observer.ObserverID(), "eventType", event.Type(), "error", err)
	}
}

func (e *Emitter) emit(ctx context.Context, eventType string, evt appkit.Event, app *appkit.Application) error {
	e.mu.Lock()
	e.logger = app.Logger()
	e.mu.Unlock()

	event, err := NewPhaseEvent(eventType, evt, app)
	if err != nil {
		return err
	}
	return e.NotifyObservers(ctx, event)
}

func (e *Emitter) starting(ctx context.Context, evt appkit.Event, app *appkit.Application) error {
	return e.emit(ctx, EventTypePhaseStarting, evt, app)
}

func (e *Emitter) completed(ctx context.Context, evt appkit.Event, app *appkit.Application, _ appkit.Result) error {
	return e.emit(ctx, EventTypePhaseCompleted, evt, app)
}

// Hooks implements appkit.HookProvider, binding every hookable phase.
func (e *Emitter) Hooks() appkit.Hooks {
	hooks := appkit.Hooks{
		Pre:  make(map[appkit.Phase]appkit.PreHookFunc),
		Post: make(map[appkit.Phase]appkit.PostHookFunc),
	}
	for _, phase := range appkit.HookPhases() {
		hooks.Pre[phase] = e.starting
		hooks.Post[phase] = e.completed
	}
	return hooks
}

var _ appkit.HookProvider = (*Emitter)(nil)
