package builtin

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"nodeflow/internal/behavior"
	"nodeflow/internal/domain"
)

// NumberSource emits a fixed number
type NumberSource struct {
	behavior.Base
	value float64
}

// NewNumberSource creates a number source emitting zero
func NewNumberSource() behavior.Behavior {
	return &NumberSource{
		Base: behavior.Base{
			Outputs: []behavior.PortSpec{behavior.Out(NumberType, "value")},
		},
	}
}

func (n *NumberSource) Caption() string { return "Number" }

// SetValue changes the emitted number and notifies downstream
func (n *NumberSource) SetValue(v float64) {
	n.value = v
	n.EmitOutput(0)
}

// Value returns the emitted number
func (n *NumberSource) Value() float64 { return n.value }

func (n *NumberSource) SetInput(cty.Value, domain.PortIndex) {}

func (n *NumberSource) ComputeOutput(i domain.PortIndex) cty.Value {
	if i != 0 {
		return cty.NilVal
	}
	return cty.NumberFloatVal(n.value)
}

func (n *NumberSource) Save() map[string]any {
	return map[string]any{"value": n.value}
}

func (n *NumberSource) Restore(state map[string]any) error {
	v, ok, err := stateFloat(state, "value")
	if err != nil {
		return fmt.Errorf("restore number source: %w", err)
	}
	if ok {
		n.SetValue(v)
	}
	return nil
}

func (n *NumberSource) Validation() (domain.ValidationState, string) {
	return domain.ValidationValid, ""
}

// TextSource emits a fixed string
type TextSource struct {
	behavior.Base
	text string
}

// NewTextSource creates a text source emitting the empty string
func NewTextSource() behavior.Behavior {
	return &TextSource{
		Base: behavior.Base{
			Outputs: []behavior.PortSpec{behavior.Out(TextType, "text")},
		},
	}
}

func (s *TextSource) Caption() string { return "Text" }

// SetText changes the emitted string and notifies downstream
func (s *TextSource) SetText(text string) {
	s.text = text
	s.EmitOutput(0)
}

func (s *TextSource) SetInput(cty.Value, domain.PortIndex) {}

func (s *TextSource) ComputeOutput(i domain.PortIndex) cty.Value {
	if i != 0 {
		return cty.NilVal
	}
	return cty.StringVal(s.text)
}

func (s *TextSource) Save() map[string]any {
	return map[string]any{"text": s.text}
}

func (s *TextSource) Restore(state map[string]any) error {
	raw, ok := state["text"]
	if !ok {
		return nil
	}
	text, ok := raw.(string)
	if !ok {
		return fmt.Errorf("restore text source: text: expected a string, got %T", raw)
	}
	s.SetText(text)
	return nil
}

func (s *TextSource) Validation() (domain.ValidationState, string) {
	return domain.ValidationValid, ""
}

// BoolSource emits a fixed boolean
type BoolSource struct {
	behavior.Base
	value bool
}

// NewBoolSource creates a boolean source emitting false
func NewBoolSource() behavior.Behavior {
	return &BoolSource{
		Base: behavior.Base{
			Outputs: []behavior.PortSpec{behavior.Out(BoolType, "flag")},
		},
	}
}

func (b *BoolSource) Caption() string { return "Boolean" }

// SetValue changes the emitted boolean and notifies downstream
func (b *BoolSource) SetValue(v bool) {
	b.value = v
	b.EmitOutput(0)
}

func (b *BoolSource) SetInput(cty.Value, domain.PortIndex) {}

func (b *BoolSource) ComputeOutput(i domain.PortIndex) cty.Value {
	if i != 0 {
		return cty.NilVal
	}
	return cty.BoolVal(b.value)
}

func (b *BoolSource) Save() map[string]any {
	return map[string]any{"value": b.value}
}

func (b *BoolSource) Restore(state map[string]any) error {
	raw, ok := state["value"]
	if !ok {
		return nil
	}
	v, ok := raw.(bool)
	if !ok {
		return fmt.Errorf("restore bool source: value: expected a bool, got %T", raw)
	}
	b.SetValue(v)
	return nil
}

func (b *BoolSource) Validation() (domain.ValidationState, string) {
	return domain.ValidationValid, ""
}
