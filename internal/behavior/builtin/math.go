package builtin

import (
	"github.com/zclconf/go-cty/cty"

	"nodeflow/internal/behavior"
	"nodeflow/internal/domain"
)

// Addition sums two numbers. The output is empty until both inputs are set.
type Addition struct {
	behavior.Base
	operands [2]cty.Value
	state    domain.ValidationState
}

// NewAddition creates an adder with both inputs unset
func NewAddition() behavior.Behavior {
	return &Addition{
		Base: behavior.Base{
			Inputs: []behavior.PortSpec{
				behavior.In(NumberType, "a"),
				behavior.In(NumberType, "b"),
			},
			Outputs: []behavior.PortSpec{behavior.Out(NumberType, "sum")},
		},
		operands: [2]cty.Value{cty.NilVal, cty.NilVal},
		state:    domain.ValidationWarning,
	}
}

func (a *Addition) Caption() string { return "Addition" }

func (a *Addition) SetInput(data cty.Value, i domain.PortIndex) {
	if i < 0 || int(i) >= len(a.operands) {
		return
	}
	a.operands[i] = data

	next := domain.ValidationValid
	if _, _, ok := a.values(); !ok {
		next = domain.ValidationWarning
	}
	if next != a.state {
		a.state = next
		a.EmitValidation()
	}
	a.EmitOutput(0)
}

func (a *Addition) values() (float64, float64, bool) {
	x, okX := asFloat(a.operands[0])
	y, okY := asFloat(a.operands[1])
	return x, y, okX && okY
}

func (a *Addition) ComputeOutput(i domain.PortIndex) cty.Value {
	if i != 0 {
		return cty.NilVal
	}
	x, y, ok := a.values()
	if !ok {
		return cty.NilVal
	}
	return cty.NumberFloatVal(x + y)
}

func (a *Addition) Save() map[string]any { return nil }

func (a *Addition) Restore(map[string]any) error { return nil }

func (a *Addition) Validation() (domain.ValidationState, string) {
	if a.state == domain.ValidationWarning {
		return a.state, "missing inputs"
	}
	return a.state, ""
}
