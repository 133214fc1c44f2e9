package event

import (
	"log/slog"
	"sync"
)

// Bus fans engine events out to external consumers (notification,
// persistence). Delivery is at-least-once with no replay: a slow consumer
// whose buffer is full loses the event with a warning rather than stalling
// the decision loop.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a consumer with the given buffer size and returns its
// channel. Subscribe before starting the engine to observe the first events.
func (b *Bus) Subscribe(buf int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buf)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("event bus subscriber full, dropping event",
				slog.String("type", ev.GetType().String()),
				slog.Uint64("seq", ev.GetSeq()))
		}
	}
}

// Close closes all subscriber channels. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
