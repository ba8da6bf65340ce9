package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeID is the globally unique identity of a node
type NodeID uuid.UUID

// NilNodeID is the null identity. No live node ever carries it.
var NilNodeID = NodeID(uuid.Nil)

// NewNodeID mints a fresh node identity
func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

// ParseNodeID parses the canonical string form of a node identity
func ParseNodeID(s string) (NodeID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilNodeID, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return NodeID(id), nil
}

// IsNil reports whether this is the null identity
func (id NodeID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// String returns the canonical UUID form
func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first eight characters, for log lines
func (id NodeID) Short() string {
	return id.String()[:8]
}

// MarshalText implements encoding.TextMarshaler
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *NodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ValidationState is the validation status a node behavior reports
type ValidationState string

const (
	ValidationValid   ValidationState = "valid"
	ValidationWarning ValidationState = "warning"
	ValidationError   ValidationState = "error"
)
