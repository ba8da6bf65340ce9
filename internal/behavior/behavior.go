package behavior

import (
	"github.com/zclconf/go-cty/cty"

	"nodeflow/internal/domain"
)

// Behavior is the per-type definition of a node: its ports and how it
// computes outputs from inputs. The graph model owns exactly one Behavior per
// node and queries it for port metadata instead of storing it.
type Behavior interface {
	// Caption returns the human readable title of the node
	Caption() string

	// PortCount returns the number of ports in one direction
	PortCount(t domain.PortType) int

	// PortDataType returns the data type of a port
	PortDataType(t domain.PortType, i domain.PortIndex) domain.DataType

	// PortCaption returns the label of a port
	PortCaption(t domain.PortType, i domain.PortIndex) string

	// PortPolicy returns how many connections a port accepts
	PortPolicy(t domain.PortType, i domain.PortIndex) domain.ConnectionPolicy

	// SetInput delivers a value to an In port. cty.NilVal means the
	// upstream connection went away or produced nothing.
	SetInput(data cty.Value, i domain.PortIndex)

	// ComputeOutput returns the current value of an Out port
	ComputeOutput(i domain.PortIndex) cty.Value

	// Save returns the behavior-specific state to persist
	Save() map[string]any

	// Restore applies state previously returned by Save
	Restore(state map[string]any) error

	// Validation reports whether the node is in a usable state
	Validation() (domain.ValidationState, string)
}

// Sink receives change reports from a behavior. The graph model hands one to
// every behavior that implements Emitter.
type Sink interface {
	// OutputUpdated reports that an Out port has a new value
	OutputUpdated(i domain.PortIndex)

	// ValidationUpdated reports a change of validation state
	ValidationUpdated()

	// PortsUpdated reports that port counts or types changed
	PortsUpdated()
}

// Emitter is implemented by behaviors that push change reports
type Emitter interface {
	Bind(sink Sink)
}

// Factory creates a fresh behavior instance
type Factory func() Behavior
