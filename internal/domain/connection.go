package domain

import "fmt"

// ConnectionID identifies a connection by its endpoints.
// Left is the Out side, Right the In side.
type ConnectionID struct {
	Left      NodeID    `json:"left"`
	LeftPort  PortIndex `json:"left_port"`
	Right     NodeID    `json:"right"`
	RightPort PortIndex `json:"right_port"`
}

// NewConnectionID builds a connection id from its Out and In endpoints
func NewConnectionID(out, in PortRef) ConnectionID {
	return ConnectionID{
		Left:      out.Node,
		LeftPort:  out.Index,
		Right:     in.Node,
		RightPort: in.Index,
	}
}

// Out returns the Out-side endpoint
func (c ConnectionID) Out() PortRef {
	return PortRef{Node: c.Left, Type: PortOut, Index: c.LeftPort}
}

// In returns the In-side endpoint
func (c ConnectionID) In() PortRef {
	return PortRef{Node: c.Right, Type: PortIn, Index: c.RightPort}
}

// Side returns the endpoint on the given side
func (c ConnectionID) Side(t PortType) PortRef {
	if t == PortIn {
		return c.In()
	}
	return c.Out()
}

// Involves checks if this connection touches the given node
func (c ConnectionID) Involves(id NodeID) bool {
	return c.Left == id || c.Right == id
}

// OtherEnd returns the node on the other end of this connection
func (c ConnectionID) OtherEnd(id NodeID) NodeID {
	if c.Left == id {
		return c.Right
	}
	return c.Left
}

func (c ConnectionID) String() string {
	return fmt.Sprintf("%s:%d->%s:%d", c.Left.Short(), c.LeftPort, c.Right.Short(), c.RightPort)
}
