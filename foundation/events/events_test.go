package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/ledger/foundation/events"
)

func TestPublishSubscribe(t *testing.T) {
	bus := events.New(nil)

	id1, ch1 := bus.Subscribe()
	_, ch2 := bus.Subscribe()
	require.Equal(t, 2, bus.Count())

	bus.Publish(events.Event{Kind: events.MiningStarted})

	for _, ch := range []<-chan events.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			require.Equal(t, events.MiningStarted, ev.Kind)
			require.False(t, ev.Time.IsZero())
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}

	require.True(t, bus.Unsubscribe(id1))
	require.False(t, bus.Unsubscribe(id1))
	require.Equal(t, 1, bus.Count())

	_, open := <-ch1
	require.False(t, open, "unsubscribed channel must be closed")

	bus.Close()
	require.Equal(t, 0, bus.Count())

	_, open = <-ch2
	require.False(t, open)
}

func TestPublishNeverBlocks(t *testing.T) {
	var dropped int
	bus := events.New(func(v string, args ...any) {
		if len(args) == 2 && args[1] == events.MiningCompleted {
			dropped++
		}
	})

	_, ch := bus.Subscribe()

	for i := 0; i < 60; i++ {
		bus.Publish(events.Event{Kind: events.MiningCompleted})
	}

	require.Len(t, ch, 50)
	require.Equal(t, 10, dropped)
}
