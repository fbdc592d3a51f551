// Package service carries controller change notifications to the
// transports that render them.
package service

import (
	"sync"

	"github.com/joeblew999/plat-paser/internal/dataset"
)

// Topic names what changed.
type Topic string

const (
	TopicReady    Topic = "ready"
	TopicDataset  Topic = "dataset"
	TopicFilter   Topic = "filter"
	TopicRenderer Topic = "renderer"
	TopicTable    Topic = "table"
	TopicCatalog  Topic = "catalog"
	TopicClosed   Topic = "closed"
)

// Event represents one controller state change.
type Event struct {
	Session    string
	Topic      Topic
	Dataset    dataset.Kind // empty when not dataset specific
	Generation uint64       // table generation for TopicTable
}

// EventBus is a simple fan-out pub/sub for controller change events.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events. On a closed
// bus the channel is returned already closed.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
