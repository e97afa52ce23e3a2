package api

import "sync"

// Broadcaster fans analysis progress events out to connected websocket
// clients. Slow clients are dropped rather than blocking the analysis.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan BroadcastEvent]bool
	closed  bool
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan BroadcastEvent]bool),
	}
}

// Subscribe registers a new client channel
func (b *Broadcaster) Subscribe() chan BroadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan BroadcastEvent, 256)
	if b.closed {
		close(ch)
		return ch
	}
	b.clients[ch] = true
	return ch
}

// Unsubscribe removes a client channel
func (b *Broadcaster) Unsubscribe(ch chan BroadcastEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clients[ch] {
		delete(b.clients, ch)
		close(ch)
	}
}

// Publish sends an event to every subscriber without blocking
func (b *Broadcaster) Publish(event BroadcastEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.clients {
		select {
		case ch <- event:
		default:
			// Client buffer full: drop it
			delete(b.clients, ch)
			close(ch)
		}
	}
}

// Close disconnects all subscribers
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}
