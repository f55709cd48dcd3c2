// Package observe provides the built-in core.Notifier: an in-process
// publish/subscribe hub for lifecycle notifications. Subscribers receive
// events on buffered channels; publishing never blocks role execution, a
// slow subscriber drops events instead of stalling the engine.
package observe

import (
	"sync"

	"github.com/rolemesh/rolemesh/core"
)

const defaultBuffer = 64

// Hub fans notifications out to all current subscribers.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan core.Notification
	buffer int
}

// HubOptions configure a Hub.
type HubOptions struct {
	// Buffer is the per-subscriber channel capacity.
	Buffer int
}

// NewHub constructs an empty hub.
func NewHub(optFns ...func(o *HubOptions)) *Hub {
	opts := HubOptions{Buffer: defaultBuffer}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	return &Hub{subs: make(map[int]chan core.Notification), buffer: opts.Buffer}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (h *Hub) Subscribe() (<-chan core.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan core.Notification, h.buffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish implements core.Notifier. Full subscriber buffers drop the event.
func (h *Hub) Publish(n core.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Close unsubscribes everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
