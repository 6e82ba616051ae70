// Package events provides the in-process bus that content and settings
// mutations are announced on. Subscribers are invoked synchronously in
// registration order.
package events

import (
	"sync"
)

// Handler receives every event published on the bus.
type Handler func(event interface{})

// Make it sync
type Bus struct {
	sync.RWMutex
	handlers []Handler
}

// Constructor
func NewBus() *Bus {
	return &Bus{
		handlers: make([]Handler, 0, 4),
	}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(handler Handler) {
	b.Lock()
	defer b.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers the event to every registered handler before returning.
func (b *Bus) Publish(event interface{}) {
	b.RLock()
	defer b.RUnlock()
	for _, handler := range b.handlers {
		handler(event)
	}
}
