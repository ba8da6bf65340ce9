package builtin

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"nodeflow/internal/behavior"
	"nodeflow/internal/domain"
)

// Converter adapts a value of one data type to another with cty's
// conversion rules. It has exactly one input and one output, both at index 0.
type Converter struct {
	behavior.Base
	caption string
	target  cty.Type
	input   cty.Value
	output  cty.Value
	err     error
}

// NewConverter returns a factory for a converter between two data types
func NewConverter(from, to domain.DataType) (behavior.Factory, error) {
	if _, err := CtyType(from); err != nil {
		return nil, err
	}
	target, err := CtyType(to)
	if err != nil {
		return nil, err
	}
	caption := fmt.Sprintf("%s to %s", from.Name, to.Name)

	return func() behavior.Behavior {
		return &Converter{
			Base: behavior.Base{
				Inputs:  []behavior.PortSpec{behavior.In(from, from.Name)},
				Outputs: []behavior.PortSpec{behavior.Out(to, to.Name)},
			},
			caption: caption,
			target:  target,
			input:   cty.NilVal,
			output:  cty.NilVal,
		}
	}, nil
}

func (c *Converter) Caption() string { return c.caption }

func (c *Converter) SetInput(data cty.Value, i domain.PortIndex) {
	if i != 0 {
		return
	}
	c.input = data

	hadErr := c.err != nil
	c.output, c.err = cty.NilVal, nil
	if !Empty(data) {
		out, err := convert.Convert(data, c.target)
		if err != nil {
			c.err = err
		} else {
			c.output = out
		}
	}

	if hadErr != (c.err != nil) {
		c.EmitValidation()
	}
	c.EmitOutput(0)
}

func (c *Converter) ComputeOutput(i domain.PortIndex) cty.Value {
	if i != 0 {
		return cty.NilVal
	}
	return c.output
}

func (c *Converter) Save() map[string]any { return nil }

func (c *Converter) Restore(map[string]any) error { return nil }

func (c *Converter) Validation() (domain.ValidationState, string) {
	if c.err != nil {
		return domain.ValidationError, c.err.Error()
	}
	return domain.ValidationValid, ""
}
