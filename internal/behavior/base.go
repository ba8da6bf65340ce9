package behavior

import (
	"nodeflow/internal/domain"
)

// PortSpec declares one port of a behavior
type PortSpec struct {
	Type    domain.DataType
	Caption string
	Policy  domain.ConnectionPolicy
}

// In declares an input port. Inputs accept a single connection.
func In(dt domain.DataType, caption string) PortSpec {
	return PortSpec{Type: dt, Caption: caption, Policy: domain.PolicyOne}
}

// Out declares an output port. Outputs fan out to many connections.
func Out(dt domain.DataType, caption string) PortSpec {
	return PortSpec{Type: dt, Caption: caption, Policy: domain.PolicyMany}
}

// Base implements the port queries and the Emitter plumbing from static
// port declarations. Concrete behaviors embed it.
type Base struct {
	Inputs  []PortSpec
	Outputs []PortSpec
	sink    Sink
}

func (b *Base) specs(t domain.PortType) []PortSpec {
	switch t {
	case domain.PortIn:
		return b.Inputs
	case domain.PortOut:
		return b.Outputs
	}
	return nil
}

func (b *Base) spec(t domain.PortType, i domain.PortIndex) (PortSpec, bool) {
	specs := b.specs(t)
	if i < 0 || int(i) >= len(specs) {
		return PortSpec{}, false
	}
	return specs[i], true
}

// PortCount implements Behavior
func (b *Base) PortCount(t domain.PortType) int {
	return len(b.specs(t))
}

// PortDataType implements Behavior
func (b *Base) PortDataType(t domain.PortType, i domain.PortIndex) domain.DataType {
	s, _ := b.spec(t, i)
	return s.Type
}

// PortCaption implements Behavior
func (b *Base) PortCaption(t domain.PortType, i domain.PortIndex) string {
	s, _ := b.spec(t, i)
	return s.Caption
}

// PortPolicy implements Behavior
func (b *Base) PortPolicy(t domain.PortType, i domain.PortIndex) domain.ConnectionPolicy {
	s, ok := b.spec(t, i)
	if !ok || s.Policy == "" {
		return domain.PolicyOne
	}
	return s.Policy
}

// Bind implements Emitter
func (b *Base) Bind(sink Sink) {
	b.sink = sink
}

// EmitOutput reports a new value on an Out port
func (b *Base) EmitOutput(i domain.PortIndex) {
	if b.sink != nil {
		b.sink.OutputUpdated(i)
	}
}

// EmitAllOutputs reports new values on every Out port
func (b *Base) EmitAllOutputs() {
	for i := range b.Outputs {
		b.EmitOutput(domain.PortIndex(i))
	}
}

// EmitValidation reports a change of validation state
func (b *Base) EmitValidation() {
	if b.sink != nil {
		b.sink.ValidationUpdated()
	}
}

// EmitPorts reports that the port declarations changed
func (b *Base) EmitPorts() {
	if b.sink != nil {
		b.sink.PortsUpdated()
	}
}
