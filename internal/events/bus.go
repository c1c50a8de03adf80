package events

import (
	"sync"

	"github.com/hostscout/hostscout/internal/logger"
)

// Buffer sizes per subscriber channel. A slow dashboard drops monitor
// updates (the next cycle replaces them anyway); terminal buffers are
// larger because dropped bytes corrupt the stream a human is watching.
const (
	monitorBuffer  = 64
	terminalBuffer = 1024
)

// Bus is an in-process fanout Publisher. Monitor subscribers receive
// every host update; terminal subscribers receive only their own
// session events. Sends never block: a full channel drops the event
// and logs it.
type Bus struct {
	mu        sync.RWMutex
	monitors  map[string]chan HostUpdate
	terminals map[string]chan TerminalEvent
	log       logger.Logger
}

// NewBus creates an empty bus.
func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = logger.Noop()
	}
	return &Bus{
		monitors:  make(map[string]chan HostUpdate),
		terminals: make(map[string]chan TerminalEvent),
		log:       log,
	}
}

// SubscribeMonitor registers a dashboard subscriber and returns its
// event channel. The channel closes on UnsubscribeMonitor.
func (b *Bus) SubscribeMonitor(id string) <-chan HostUpdate {
	ch := make(chan HostUpdate, monitorBuffer)
	b.mu.Lock()
	b.monitors[id] = ch
	b.mu.Unlock()
	return ch
}

// UnsubscribeMonitor removes a dashboard subscriber.
func (b *Bus) UnsubscribeMonitor(id string) {
	b.mu.Lock()
	ch, ok := b.monitors[id]
	delete(b.monitors, id)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// SubscribeTerminal registers a terminal subscriber.
func (b *Bus) SubscribeTerminal(id string) <-chan TerminalEvent {
	ch := make(chan TerminalEvent, terminalBuffer)
	b.mu.Lock()
	b.terminals[id] = ch
	b.mu.Unlock()
	return ch
}

// UnsubscribeTerminal removes a terminal subscriber.
func (b *Bus) UnsubscribeTerminal(id string) {
	b.mu.Lock()
	ch, ok := b.terminals[id]
	delete(b.terminals, id)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// PublishHostUpdate implements Publisher.
func (b *Bus) PublishHostUpdate(update HostUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.monitors {
		select {
		case ch <- update:
		default:
			b.log.Warn("monitor subscriber %s is slow, dropping update for %s", id, update.HostID)
		}
	}
}

// PublishTerminal implements Publisher.
func (b *Bus) PublishTerminal(subscriber string, event TerminalEvent) {
	b.mu.RLock()
	ch, ok := b.terminals[subscriber]
	b.mu.RUnlock()
	if !ok {
		// Subscriber already disconnected; its sessions are mid-teardown.
		return
	}
	select {
	case ch <- event:
	default:
		b.log.Warn("terminal subscriber %s is slow, dropping %s event", subscriber, event.Type)
	}
}

// BufferPublisher records events for test assertions.
type BufferPublisher struct {
	mu        sync.Mutex
	updates   []HostUpdate
	terminals map[string][]TerminalEvent
}

// NewBufferPublisher creates an empty recording publisher.
func NewBufferPublisher() *BufferPublisher {
	return &BufferPublisher{terminals: make(map[string][]TerminalEvent)}
}

func (p *BufferPublisher) PublishHostUpdate(update HostUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
}

func (p *BufferPublisher) PublishTerminal(subscriber string, event TerminalEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminals[subscriber] = append(p.terminals[subscriber], event)
}

// HostUpdates returns a copy of the recorded host updates, in order.
func (p *BufferPublisher) HostUpdates() []HostUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]HostUpdate, len(p.updates))
	copy(out, p.updates)
	return out
}

// TerminalEvents returns the events recorded for one subscriber.
func (p *BufferPublisher) TerminalEvents(subscriber string) []TerminalEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	evs := p.terminals[subscriber]
	out := make([]TerminalEvent, len(evs))
	copy(out, evs)
	return out
}
