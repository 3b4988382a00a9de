// Package window holds the fixed-size sequence of record slots shown by the
// list view, and applies bus events to it.
package window

import (
	"fmt"
	"sync"

	"github.com/robinvenneman/flux-challenge/internal/eventbus"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
)

const (
	// Size is the number of slots in the window
	Size = 5

	// AnchorSlot is the center slot whose record seeds traversal in both directions
	AnchorSlot = 2

	// shiftBy is how many slots a single shift clears (one master/apprentice hop pair)
	shiftBy = 2
)

// Slots is one snapshot of the window. Index 0 is the oldest record (masters
// side), index Size-1 the newest (apprentices side).
type Slots [Size]roster.Record

// State is the mutable state owned by a Store.
type State struct {
	Slots   Slots
	Version uint64 // incremented on every mutation
	Shifts  uint64 // incremented on every shift
}

// Store owns the window and notifies listeners after every mutation.
// Mutations arrive only through Handle; reads are safe from any goroutine.
type Store struct {
	mu    sync.RWMutex
	state State

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

type listener struct {
	id int
	fn func()
}

// NewStore creates a store whose slots are all empty.
func NewStore() *Store {
	return &Store{}
}

// GetAll returns a copy of the current slots.
func (s *Store) GetAll() Slots {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Slots
}

// Slot returns a copy of the record at index i.
func (s *Store) Slot(i int) roster.Record {
	checkSlot(i)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Slots[i]
}

// Version returns the mutation counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

// Shifts returns how many times the window has shifted. Requests record it
// so results that arrive after a shift can be recognised as stale.
func (s *Store) Shifts() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Shifts
}

// CanShiftForward reports whether the leftmost record has a master to reveal.
func (s *Store) CanShiftForward() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Slots[0].HasMaster()
}

// CanShiftBackward reports whether the rightmost record has an apprentice to reveal.
func (s *Store) CanShiftBackward() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Slots[Size-1].HasApprentice()
}

// Subscribe registers a listener called after every mutation.
// Listeners run on the dispatching goroutine and must not block.
// The returned function removes the listener.
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

// Handle applies a bus event. Events the store does not own are ignored.
// A RecordLoaded for a slot outside the window panics: requests are only
// ever built from valid slot constants. A RecordLoaded requested before the
// latest shift is dropped without notifying.
func (s *Store) Handle(e eventbus.Event) {
	var changed bool

	switch ev := e.(type) {
	case eventbus.RecordLoaded:
		checkSlot(ev.Slot)
		changed = s.mutate(func(st *State) bool {
			if ev.Shift != st.Shifts {
				return false
			}
			st.Slots[ev.Slot] = ev.Record
			return true
		})

	case eventbus.ShiftForward:
		changed = s.mutate(func(st *State) bool {
			var next Slots
			copy(next[shiftBy:], st.Slots[:Size-shiftBy])
			st.Slots = next
			st.Shifts++
			return true
		})

	case eventbus.ShiftBackward:
		changed = s.mutate(func(st *State) bool {
			var next Slots
			copy(next[:Size-shiftBy], st.Slots[shiftBy:])
			st.Slots = next
			st.Shifts++
			return true
		})
	}

	if changed {
		s.emitChange()
	}
}

func (s *Store) mutate(fn func(*State) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fn(&s.state) {
		return false
	}
	s.state.Version++
	return true
}

func (s *Store) emitChange() {
	s.listenersMu.Lock()
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
}

func checkSlot(i int) {
	if i < 0 || i >= Size {
		panic(fmt.Sprintf("window: slot %d out of range [0,%d)", i, Size))
	}
}

// ValidSlot reports whether i addresses a slot of the window.
func ValidSlot(i int) bool {
	return i >= 0 && i < Size
}
