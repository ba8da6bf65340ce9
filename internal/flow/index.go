package flow

import (
	"nodeflow/internal/domain"
)

// NodeIndex is a revocable handle to a node of a Model.
//
// The zero value is invalid. A valid index may still be stale; resolve it
// through the model (Model.Alive or any query) before relying on it.
type NodeIndex struct {
	id      domain.NodeID
	model   *Model
	payload any
}

// ID returns the node identity
func (i NodeIndex) ID() domain.NodeID {
	return i.id
}

// Model returns the owning model
func (i NodeIndex) Model() *Model {
	return i.model
}

// Payload returns the opaque value the model attached to this index
func (i NodeIndex) Payload() any {
	return i.payload
}

// IsValid reports whether the index names a node of some model. It does not
// check that the node still exists.
func (i NodeIndex) IsValid() bool {
	return !i.id.IsNil() && i.model != nil
}

func (i NodeIndex) String() string {
	if !i.IsValid() {
		return "invalid"
	}
	return i.id.Short()
}

// Peer is the far end of a connection seen from one port
type Peer struct {
	Node       NodeIndex
	Port       domain.PortIndex
	Connection domain.ConnectionID
}
