package builtin

import (
	"github.com/zclconf/go-cty/cty"

	"nodeflow/internal/behavior"
	"nodeflow/internal/domain"
)

// Display is a sink that keeps the last value it received
type Display struct {
	behavior.Base
	caption string
	last    cty.Value
}

// NewTextDisplay creates a display accepting text
func NewTextDisplay() behavior.Behavior {
	return newDisplay("Text Display", TextType)
}

// NewNumberDisplay creates a display accepting numbers
func NewNumberDisplay() behavior.Behavior {
	return newDisplay("Number Display", NumberType)
}

func newDisplay(caption string, dt domain.DataType) *Display {
	return &Display{
		Base: behavior.Base{
			Inputs: []behavior.PortSpec{behavior.In(dt, "input")},
		},
		caption: caption,
		last:    cty.NilVal,
	}
}

func (d *Display) Caption() string { return d.caption }

func (d *Display) SetInput(data cty.Value, i domain.PortIndex) {
	if i != 0 {
		return
	}
	wasEmpty := Empty(d.last)
	d.last = data
	if wasEmpty != Empty(data) {
		d.EmitValidation()
	}
}

// Last returns the most recent input; cty.NilVal when disconnected
func (d *Display) Last() cty.Value { return d.last }

// Text renders the most recent input, or "" when there is none
func (d *Display) Text() string {
	if Empty(d.last) {
		return ""
	}
	if s, ok := asString(d.last); ok {
		return s
	}
	if d.last.Type().Equals(cty.Number) {
		return d.last.AsBigFloat().Text('f', -1)
	}
	return d.last.GoString()
}

func (d *Display) ComputeOutput(domain.PortIndex) cty.Value { return cty.NilVal }

func (d *Display) Save() map[string]any { return nil }

func (d *Display) Restore(map[string]any) error { return nil }

func (d *Display) Validation() (domain.ValidationState, string) {
	if Empty(d.last) {
		return domain.ValidationWarning, "no input"
	}
	return domain.ValidationValid, ""
}
