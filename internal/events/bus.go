// Package events publishes itinerary changes to interested listeners.
package events

import (
	"sync"

	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
)

// Kind identifies what changed in the itinerary
type Kind string

const (
	KindBlockAdded         Kind = "block_added"
	KindBlockRemoved       Kind = "block_removed"
	KindDestinationUpdated Kind = "destination_updated"
	KindFlightsMerged      Kind = "flights_merged"
	KindActiveDayChanged   Kind = "active_day_changed"
)

// Event describes one itinerary change
type Event struct {
	Kind        Kind          `json:"kind"`
	DayIndex    int           `json:"dayIndex"`
	DayTitle    string        `json:"dayTitle,omitempty"`
	Block       *models.Block `json:"block,omitempty"`
	Count       int           `json:"count,omitempty"`
	Destination string        `json:"destination,omitempty"`
}

// Handler receives published events
type Handler func(Event)

// Bus dispatches events synchronously, in subscription order
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id int
	fn Handler
}

// NewBus creates an empty Bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.handlers {
			if s.id == id {
				b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every current subscriber
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, s := range handlers {
		s.fn(e)
	}
}
