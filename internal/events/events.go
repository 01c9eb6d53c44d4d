// Package events provides in-process pub/sub for domain events. Handlers run
// synchronously on the publisher's goroutine; subscribers that need
// concurrency manage it themselves.
package events

import (
	"sync"
	"time"
)

// Type names a domain event.
type Type string

const (
	// TypeShiftCreated fires when a manager posts a new shift.
	TypeShiftCreated Type = "shift.created"
	// TypeReservation fires on every reservation attempt with its outcome.
	TypeReservation Type = "reservation.outcome"
	// TypeShiftConfirmed fires when a manager confirms a shift's bookings.
	TypeShiftConfirmed Type = "shift.confirmed"
	// TypeArrivalConfirmed fires when a worker confirms arrival.
	TypeArrivalConfirmed Type = "arrival.confirmed"
	// TypeEventArmed fires when a scheduled notification gets an in-process timer.
	TypeEventArmed Type = "scheduled.armed"
	// TypeEventFired fires after a scheduled notification's delivery attempt.
	TypeEventFired Type = "scheduled.fired"
)

// Event is a lightweight domain event.
type Event struct {
	Type      Type
	Fields    map[string]string
	CreatedAt time.Time
}

// Handler reacts to an event. Returned errors are the handler's own concern;
// the bus discards them.
type Handler func(event Event) error

// Bus fans events out to subscribed handlers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Type][]Handler)}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(t Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], handler)
}

// Publish notifies subscribers of the event's type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}
