package eventbus

import (
	"sync"
	"testing"

	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_DeliversToAllSubscribersInOrder(t *testing.T) {
	bus := New()

	var got []string
	bus.Subscribe(func(e Event) { got = append(got, "first:"+Name(e)) })
	bus.Subscribe(func(e Event) { got = append(got, "second:"+Name(e)) })

	require.NoError(t, bus.Dispatch(ShiftForward{}))
	require.NoError(t, bus.Dispatch(RecordLoaded{Record: roster.Record{ID: 1}, Slot: 2}))

	assert.Equal(t, []string{
		"first:shift_forward",
		"second:shift_forward",
		"first:record_loaded",
		"second:record_loaded",
	}, got)
}

func TestDispatch_TypedPayloads(t *testing.T) {
	bus := New()

	var loaded RecordLoaded
	var loc LocationChanged
	bus.Subscribe(func(e Event) {
		switch ev := e.(type) {
		case RecordLoaded:
			loaded = ev
		case LocationChanged:
			loc = ev
		}
	})

	require.NoError(t, bus.Dispatch(RecordLoaded{Record: roster.Record{ID: 3616, Name: "Darth Sidious"}, Slot: 2}))
	require.NoError(t, bus.Dispatch(LocationChanged{Location: roster.Location{ID: 7, Name: "Naboo"}}))

	assert.Equal(t, 3616, loaded.Record.ID)
	assert.Equal(t, 2, loaded.Slot)
	assert.Equal(t, "Naboo", loc.Location.Name)
}

func TestSubscription_Close(t *testing.T) {
	bus := New()

	calls := 0
	sub := bus.Subscribe(func(Event) { calls++ })
	other := bus.Subscribe(func(Event) {})
	assert.Equal(t, 2, bus.Len())
	assert.NotEqual(t, sub.ID, other.ID)

	require.NoError(t, bus.Dispatch(ShiftBackward{}))
	sub.Close()
	sub.Close()
	require.NoError(t, bus.Dispatch(ShiftBackward{}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, bus.Len())
}

func TestDispatch_AfterClose(t *testing.T) {
	bus := New()
	bus.Subscribe(func(Event) { t.Fatal("handler called after close") })
	bus.Close()

	err := bus.Dispatch(ShiftForward{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, bus.Len())
}

// TestDispatch_Serialized verifies that concurrent dispatches never overlap.
func TestDispatch_Serialized(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	inFlight, maxInFlight, total := 0, 0, 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		mu.Lock()
		inFlight--
		total++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_ = bus.Dispatch(RecordLoaded{Slot: slot % 5})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
	assert.Equal(t, 50, total)
}
