package service

import (
	"sync"

	"netviz/internal/domain"
	"netviz/internal/protocol"
)

// EventType defines the type of event
type EventType string

const (
	// EventTopologyChanged carries the mutations accepted from one session
	EventTopologyChanged EventType = "topology_changed"
	// EventTopologyReloaded carries the full device list after an external edit
	EventTopologyReloaded EventType = "topology_reloaded"
)

// Event represents a persisted change to a topology
type Event struct {
	Type       EventType
	TopologyID int
	// Origin is the session that caused the change, empty for reloads
	Origin string
	// Messages are the applied leaf mutations, in application order
	Messages []protocol.Message
	// Devices is the complete device list, set for reloads
	Devices []domain.Device
}

// EventBus fans events out to subscribers in publish order
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	done        chan struct{}
	closeOnce   sync.Once
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
		done:        make(chan struct{}),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish delivers the event to every subscriber. It blocks while a
// subscriber's buffer is full, so events are never reordered or lost;
// after Close it returns immediately.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		case <-eb.done:
			return
		}
	}
}

// Close releases any blocked publishers and turns Publish into a no-op
func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		close(eb.done)
	})
}
