package location

import (
	"testing"

	"github.com/robinvenneman/flux-challenge/internal/eventbus"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		s := NewStore()
		assert.True(t, s.Get().IsZero())
	})

	t.Run("replaces location wholesale and notifies", func(t *testing.T) {
		s := NewStore()

		calls := 0
		s.Subscribe(func() { calls++ })

		s.Handle(eventbus.LocationChanged{Location: roster.Location{ID: 7, Name: "Naboo"}})
		assert.Equal(t, roster.Location{ID: 7, Name: "Naboo"}, s.Get())

		s.Handle(eventbus.LocationChanged{Location: roster.Location{ID: 13}})
		assert.Equal(t, roster.Location{ID: 13}, s.Get())
		assert.Equal(t, 2, calls)
	})

	t.Run("ignores window events", func(t *testing.T) {
		s := NewStore()

		calls := 0
		s.Subscribe(func() { calls++ })

		s.Handle(eventbus.ShiftForward{})
		s.Handle(eventbus.RecordLoaded{Record: roster.Record{ID: 1}, Slot: 0})

		assert.Equal(t, 0, calls)
		assert.True(t, s.Get().IsZero())
	})

	t.Run("unsubscribe stops notifications", func(t *testing.T) {
		s := NewStore()

		calls := 0
		unsubscribe := s.Subscribe(func() { calls++ })
		s.Handle(eventbus.LocationChanged{Location: roster.Location{ID: 1}})
		unsubscribe()
		s.Handle(eventbus.LocationChanged{Location: roster.Location{ID: 2}})

		assert.Equal(t, 1, calls)
		assert.Equal(t, 2, s.Get().ID)
	})
}
