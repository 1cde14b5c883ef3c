package event

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscription channel buffer size.
const DefaultBuffer = 64

// Bus fans progress events out to subscribers over buffered channels.
// Publishing never blocks: if a subscriber's buffer is full the event is
// dropped for that subscriber (and counted), keeping the workflow core
// independent of slow or absent listeners.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int64]chan Progress
	nextID  atomic.Int64
	dropped atomic.Int64
	closed  atomic.Bool
	buffer  int
}

// NewBus creates a bus with the given per-subscriber buffer size.
// A non-positive size uses DefaultBuffer.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:   make(map[int64]chan Progress),
		buffer: buffer,
	}
}

// Emit implements Emitter.
func (b *Bus) Emit(p Progress) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- p:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a listener. The returned cancel function removes the
// subscription and closes its channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Progress, func()) {
	ch := make(chan Progress, b.buffer)
	id := b.nextID.Add(1)

	b.mu.Lock()
	// Re-check under the lock: Close drains the map while holding it, so a
	// registration after that point would never be closed.
	if b.closed.Load() {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Dropped returns the number of events dropped due to full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
