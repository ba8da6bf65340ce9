package domain

import "fmt"

// PortType is the direction of a port
type PortType int

const (
	PortNone PortType = iota
	PortIn
	PortOut
)

// Opposite returns the other direction. PortNone stays PortNone.
func (t PortType) Opposite() PortType {
	switch t {
	case PortIn:
		return PortOut
	case PortOut:
		return PortIn
	}
	return PortNone
}

func (t PortType) String() string {
	switch t {
	case PortIn:
		return "in"
	case PortOut:
		return "out"
	}
	return "none"
}

// ParsePortType parses "in" or "out"
func ParsePortType(s string) (PortType, error) {
	switch s {
	case "in":
		return PortIn, nil
	case "out":
		return PortOut, nil
	}
	return PortNone, fmt.Errorf("invalid port type %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (t PortType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *PortType) UnmarshalText(text []byte) error {
	parsed, err := ParsePortType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PortIndex is the position of a port within one direction of a node
type PortIndex int

// InvalidPort marks the absence of a port
const InvalidPort PortIndex = -1

// ConnectionPolicy limits how many connections a port accepts
type ConnectionPolicy string

const (
	PolicyOne  ConnectionPolicy = "one"
	PolicyMany ConnectionPolicy = "many"
)

// DataType tags the values that travel through a port
type DataType struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Equal compares data types by identity
func (d DataType) Equal(other DataType) bool {
	return d.ID == other.ID
}

// IsZero reports whether the data type is unset
func (d DataType) IsZero() bool {
	return d.ID == ""
}

func (d DataType) String() string {
	return d.ID
}

// PortRef addresses one port of one node
type PortRef struct {
	Node  NodeID    `json:"node"`
	Type  PortType  `json:"type"`
	Index PortIndex `json:"index"`
}

func (p PortRef) String() string {
	return fmt.Sprintf("%s/%s[%d]", p.Node.Short(), p.Type, p.Index)
}
