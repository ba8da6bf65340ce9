package service

import (
	"sync"

	"nodeflow/internal/flow"
)

// EventType defines the type of event
type EventType string

const (
	EventNodeAdded             = EventType(flow.EventNodeAdded)
	EventNodeAboutToBeRemoved  = EventType(flow.EventNodeAboutToBeRemoved)
	EventNodeRemoved           = EventType(flow.EventNodeRemoved)
	EventNodePortUpdated       = EventType(flow.EventNodePortUpdated)
	EventNodeValidationUpdated = EventType(flow.EventNodeValidationUpdated)
	EventNodeMoved             = EventType(flow.EventNodeMoved)
	EventConnectionAdded       = EventType(flow.EventConnectionAdded)
	EventConnectionRemoved     = EventType(flow.EventConnectionRemoved)

	EventSceneLoaded   EventType = "scene_loaded"
	EventSceneSaved    EventType = "scene_saved"
	EventSessionUpdate EventType = "session_updated"
)

// Event represents an event that occurred in the editor
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events. The returned function
// removes it again.
func (eb *EventBus) Subscribe(ch chan<- Event) func() {
	eb.mu.Lock()
	eb.subscribers = append(eb.subscribers, ch)
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		for i, sub := range eb.subscribers {
			if sub == ch {
				eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish sends an event to all subscribers without blocking
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
