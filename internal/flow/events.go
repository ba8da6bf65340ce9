package flow

import (
	"nodeflow/internal/domain"
)

// EventKind names a structural change of the model. A node removal is
// announced by EventNodeAboutToBeRemoved only after its connections are
// gone, and EventNodeRemoved always follows it.
type EventKind string

const (
	EventNodeAdded             EventKind = "node_added"
	EventNodeAboutToBeRemoved  EventKind = "node_about_to_be_removed"
	EventNodeRemoved           EventKind = "node_removed"
	EventNodePortUpdated       EventKind = "node_port_updated"
	EventNodeValidationUpdated EventKind = "node_validation_updated"
	EventNodeMoved             EventKind = "node_moved"
	EventConnectionAdded       EventKind = "connection_added"
	EventConnectionRemoved     EventKind = "connection_removed"
)

// Event is an advisory change notification. It carries identities only.
type Event struct {
	Kind       EventKind            `json:"kind"`
	Node       domain.NodeID        `json:"node"`
	Connection *domain.ConnectionID `json:"connection,omitempty"`
	Position   *domain.Position     `json:"position,omitempty"`
}

// Observer receives model change notifications
type Observer interface {
	ModelChanged(e Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(e Event)

// ModelChanged implements Observer
func (f ObserverFunc) ModelChanged(e Event) {
	f(e)
}

type subscription struct {
	observer Observer
}

// Subscribe registers an observer. The returned function unsubscribes it.
func (m *Model) Subscribe(o Observer) func() {
	sub := &subscription{observer: o}
	m.subs = append(m.subs, sub)

	return func() {
		for i, s := range m.subs {
			if s == sub {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) notify(e Event) {
	m.delivering++
	defer func() { m.delivering-- }()

	subs := make([]*subscription, len(m.subs))
	copy(subs, m.subs)
	for _, s := range subs {
		s.observer.ModelChanged(e)
	}
}

func (m *Model) notifyConnection(kind EventKind, id domain.ConnectionID) {
	m.notify(Event{Kind: kind, Node: id.Left, Connection: &id})
}
