// Package location holds the current location fed by the push channel.
package location

import (
	"sync"

	"github.com/robinvenneman/flux-challenge/internal/eventbus"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
)

// Store owns the current location. It starts as the zero Location.
type Store struct {
	mu      sync.RWMutex
	current roster.Location

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

type listener struct {
	id int
	fn func()
}

// NewStore creates a store with no location yet.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current location.
func (s *Store) Get() roster.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers a listener called after every location change.
// The returned function removes it.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Handle replaces the location on LocationChanged and ignores other events.
func (s *Store) Handle(e eventbus.Event) {
	ev, ok := e.(eventbus.LocationChanged)
	if !ok {
		return
	}

	s.mu.Lock()
	s.current = ev.Location
	s.mu.Unlock()

	s.listenersMu.Lock()
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
}
