package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"nodeflow/internal/domain"
)

func TestRegister(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	for _, id := range []string{TypeNumberSource, TypeTextSource, TypeBoolSource, TypeAddition,
		TypeTextDisplay, TypeNumberDisplay, TypeNumberToText, TypeTextToNumber, TypeBoolToText} {
		assert.True(t, reg.Has(id), id)
	}

	typeID, ok := reg.Converter(NumberType, TextType)
	assert.True(t, ok)
	assert.Equal(t, TypeNumberToText, typeID)

	_, ok = reg.Converter(TextType, BoolType)
	assert.False(t, ok)
}

func TestNumberSource(t *testing.T) {
	src := NewNumberSource().(*NumberSource)

	t.Run("emits its value", func(t *testing.T) {
		src.SetValue(4)
		f, ok := asFloat(src.ComputeOutput(0))
		require.True(t, ok)
		assert.Equal(t, 4.0, f)
	})

	t.Run("restore accepts json and yaml numbers", func(t *testing.T) {
		require.NoError(t, src.Restore(map[string]any{"value": 2.5}))
		assert.Equal(t, 2.5, src.Value())
		require.NoError(t, src.Restore(map[string]any{"value": 7}))
		assert.Equal(t, 7.0, src.Value())
	})

	t.Run("restore rejects wrong types", func(t *testing.T) {
		assert.Error(t, src.Restore(map[string]any{"value": "seven"}))
	})

	t.Run("save round trip", func(t *testing.T) {
		other := NewNumberSource()
		require.NoError(t, other.Restore(src.Save()))
		assert.Equal(t, src.Value(), other.(*NumberSource).Value())
	})
}

func TestAddition(t *testing.T) {
	add := NewAddition()

	state, _ := add.Validation()
	assert.Equal(t, domain.ValidationWarning, state)
	assert.True(t, Empty(add.ComputeOutput(0)))

	add.SetInput(cty.NumberFloatVal(2), 0)
	assert.True(t, Empty(add.ComputeOutput(0)), "one operand is not enough")

	add.SetInput(cty.NumberFloatVal(3), 1)
	f, ok := asFloat(add.ComputeOutput(0))
	require.True(t, ok)
	assert.Equal(t, 5.0, f)
	state, _ = add.Validation()
	assert.Equal(t, domain.ValidationValid, state)

	add.SetInput(cty.NilVal, 1)
	assert.True(t, Empty(add.ComputeOutput(0)))
}

func TestConverters(t *testing.T) {
	tests := []struct {
		name  string
		from  domain.DataType
		to    domain.DataType
		in    cty.Value
		want  cty.Value
		state domain.ValidationState
	}{
		{"number to text", NumberType, TextType, cty.NumberFloatVal(42), cty.StringVal("42"), domain.ValidationValid},
		{"text to number", TextType, NumberType, cty.StringVal("3.5"), cty.NumberFloatVal(3.5), domain.ValidationValid},
		{"bool to text", BoolType, TextType, cty.True, cty.StringVal("true"), domain.ValidationValid},
		{"bad text to number", TextType, NumberType, cty.StringVal("abc"), cty.NilVal, domain.ValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewConverter(tt.from, tt.to)
			require.NoError(t, err)
			conv := factory()

			conv.SetInput(tt.in, 0)
			got := conv.ComputeOutput(0)
			if tt.state == domain.ValidationError {
				assert.True(t, Empty(got))
			} else {
				assert.True(t, got.RawEquals(tt.want), "got %#v", got)
			}

			state, _ := conv.Validation()
			assert.Equal(t, tt.state, state)
		})
	}

	t.Run("empty input clears output", func(t *testing.T) {
		factory, err := NewConverter(NumberType, TextType)
		require.NoError(t, err)
		conv := factory()
		conv.SetInput(cty.NumberFloatVal(1), 0)
		conv.SetInput(cty.NilVal, 0)
		assert.True(t, Empty(conv.ComputeOutput(0)))
	})

	t.Run("unknown data type", func(t *testing.T) {
		_, err := NewConverter(NumberType, domain.DataType{ID: "image"})
		assert.Error(t, err)
	})
}

func TestDisplay(t *testing.T) {
	d := NewTextDisplay().(*Display)
	assert.Equal(t, "", d.Text())

	d.SetInput(cty.StringVal("hello"), 0)
	assert.Equal(t, "hello", d.Text())
	state, _ := d.Validation()
	assert.Equal(t, domain.ValidationValid, state)

	n := NewNumberDisplay().(*Display)
	n.SetInput(cty.NumberFloatVal(1.5), 0)
	assert.Equal(t, "1.5", n.Text())
}
