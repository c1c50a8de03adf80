package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/hostscout/hostscout/internal/logger"
	"github.com/hostscout/hostscout/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorFanout(t *testing.T) {
	bus := NewBus(logger.Noop())
	a := bus.SubscribeMonitor("a")
	b := bus.SubscribeMonitor("b")

	update := HostUpdate{HostID: "host-1", Metrics: registry.EmptySnapshot(registry.StatusOnline), LastCheck: time.Now()}
	bus.PublishHostUpdate(update)

	assert.Equal(t, "host-1", (<-a).HostID)
	assert.Equal(t, "host-1", (<-b).HostID)
}

func TestMonitorOrdering(t *testing.T) {
	bus := NewBus(logger.Noop())
	ch := bus.SubscribeMonitor("a")

	for i := 0; i < 5; i++ {
		bus.PublishHostUpdate(HostUpdate{HostID: fmt.Sprintf("host-%d", i)})
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("host-%d", i), (<-ch).HostID)
	}
}

func TestMonitorSlowSubscriberDropsNotBlocks(t *testing.T) {
	log := logger.NewBufferLogger()
	bus := NewBus(log)
	ch := bus.SubscribeMonitor("slow")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < monitorBuffer+10; i++ {
			bus.PublishHostUpdate(HostUpdate{HostID: "host-1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Len(t, ch, monitorBuffer)
	assert.True(t, log.HasLevel("warn"))
}

func TestUnsubscribeMonitorClosesChannel(t *testing.T) {
	bus := NewBus(logger.Noop())
	ch := bus.SubscribeMonitor("a")
	bus.UnsubscribeMonitor("a")

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe is harmless.
	bus.PublishHostUpdate(HostUpdate{HostID: "host-1"})
	bus.UnsubscribeMonitor("a")
}

func TestTerminalRoutedToOwnerOnly(t *testing.T) {
	bus := NewBus(logger.Noop())
	owner := bus.SubscribeTerminal("owner")
	other := bus.SubscribeTerminal("other")

	bus.PublishTerminal("owner", TerminalEvent{Type: TerminalOutput, SessionID: "s-1", Data: "$ "})

	ev := <-owner
	assert.Equal(t, TerminalOutput, ev.Type)
	assert.Equal(t, "$ ", ev.Data)
	assert.Empty(t, other)
}

func TestTerminalUnknownSubscriberIsNoop(t *testing.T) {
	bus := NewBus(logger.Noop())
	// Must not panic or block.
	bus.PublishTerminal("ghost", TerminalEvent{Type: TerminalReady})
}

func TestBufferPublisher(t *testing.T) {
	pub := NewBufferPublisher()

	pub.PublishHostUpdate(HostUpdate{HostID: "host-1"})
	pub.PublishHostUpdate(HostUpdate{HostID: "host-2"})
	pub.PublishTerminal("sub", TerminalEvent{Type: TerminalReady, SessionID: "s-1"})

	updates := pub.HostUpdates()
	require.Len(t, updates, 2)
	assert.Equal(t, "host-1", updates[0].HostID)
	assert.Equal(t, "host-2", updates[1].HostID)

	evs := pub.TerminalEvents("sub")
	require.Len(t, evs, 1)
	assert.Equal(t, TerminalReady, evs[0].Type)
	assert.Empty(t, pub.TerminalEvents("nobody"))
}
