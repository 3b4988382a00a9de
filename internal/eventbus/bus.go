// Package eventbus is the in-process publish/subscribe channel between the
// producers of state changes (commands, fetch results, push messages) and the
// stores that own the state.
//
// Events are typed values. Handlers switch on the concrete type instead of a
// string action name.
package eventbus

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
)

// ErrClosed is returned by Dispatch after the bus has been closed.
var ErrClosed = errors.New("event bus closed")

// Event is implemented by every event the bus carries.
// The unexported method keeps the set of events closed to this package.
type Event interface {
	eventName() string
}

// RecordLoaded reports that a record was fetched for a window slot.
// Shift is the window's shift count when the record was requested; the
// window ignores the event if it has shifted since.
type RecordLoaded struct {
	Record roster.Record
	Slot   int
	Shift  uint64
}

// ShiftForward moves the window towards masters: the two rightmost slots are
// dropped and two empty slots are prepended.
type ShiftForward struct{}

// ShiftBackward moves the window towards apprentices: the two leftmost slots
// are dropped and two empty slots are appended.
type ShiftBackward struct{}

// LocationChanged carries a new current location from the push channel.
type LocationChanged struct {
	Location roster.Location
}

func (RecordLoaded) eventName() string    { return "record_loaded" }
func (ShiftForward) eventName() string    { return "shift_forward" }
func (ShiftBackward) eventName() string   { return "shift_backward" }
func (LocationChanged) eventName() string { return "location_changed" }

// Name returns a stable snake_case name for the event, for logs and metrics.
func Name(e Event) string {
	return e.eventName()
}

// Handler receives every dispatched event.
type Handler func(Event)

type subscriber struct {
	id      string
	handler Handler
}

// Bus delivers events to subscribers synchronously and in registration order.
// Dispatches are serialized: at most one event is being handled at any time.
// Handlers must not call Dispatch on the same bus.
type Bus struct {
	dispatchMu sync.Mutex // held for the duration of a dispatch

	mu          sync.RWMutex
	subscribers []subscriber
	closed      bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscription is a registered handler. Close removes it from the bus.
type Subscription struct {
	ID   string
	bus  *Bus
	once sync.Once
}

// Close unregisters the handler. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.unsubscribe(s.ID) })
}

// Subscribe registers a handler for all future events.
func (b *Bus) Subscribe(h Handler) *Subscription {
	id := uuid.New().String()

	b.mu.Lock()
	b.subscribers = append(b.subscribers, subscriber{id: id, handler: h})
	b.mu.Unlock()

	return &Subscription{ID: id, bus: b}
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.id == id {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Dispatch delivers the event to every subscriber and returns once all of
// them have handled it. Concurrent callers are queued behind each other.
func (b *Bus) Dispatch(e Event) error {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := make([]subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
	return nil
}

// Close stops delivery. Later dispatches return ErrClosed.
func (b *Bus) Close() {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	b.mu.Lock()
	b.closed = true
	b.subscribers = nil
	b.mu.Unlock()
}

// Len returns the number of registered subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
