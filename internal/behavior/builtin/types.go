// Package builtin provides the stock node behaviors shipped with nodeflow:
// sources, arithmetic, displays, and the type converters the interaction
// protocol inserts automatically.
//
// Values travelling between builtin nodes are go-cty values. Each domain data
// type maps onto one primitive cty type.
package builtin

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"nodeflow/internal/domain"
)

var (
	NumberType = domain.DataType{ID: "number", Name: "Number"}
	TextType   = domain.DataType{ID: "text", Name: "Text"}
	BoolType   = domain.DataType{ID: "bool", Name: "Boolean"}
)

// CtyType returns the cty type carried by a data type
func CtyType(dt domain.DataType) (cty.Type, error) {
	switch dt.ID {
	case NumberType.ID:
		return cty.Number, nil
	case TextType.ID:
		return cty.String, nil
	case BoolType.ID:
		return cty.Bool, nil
	}
	return cty.NilType, fmt.Errorf("no value type for data type %q", dt.ID)
}

// Empty reports whether v carries no usable value
func Empty(v cty.Value) bool {
	return v.IsNull() || !v.IsKnown()
}

func asFloat(v cty.Value) (float64, bool) {
	if Empty(v) || !v.Type().Equals(cty.Number) {
		return 0, false
	}
	var f float64
	if err := gocty.FromCtyValue(v, &f); err != nil {
		return 0, false
	}
	return f, true
}

func asString(v cty.Value) (string, bool) {
	if Empty(v) || !v.Type().Equals(cty.String) {
		return "", false
	}
	return v.AsString(), true
}

// stateFloat reads a number from saved state; YAML and JSON decode numbers
// into different Go types.
func stateFloat(state map[string]any, key string) (float64, bool, error) {
	raw, ok := state[key]
	if !ok {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case uint64:
		return float64(v), true, nil
	}
	return 0, false, fmt.Errorf("%s: expected a number, got %T", key, raw)
}
