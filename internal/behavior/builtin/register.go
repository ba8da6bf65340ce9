package builtin

import (
	"fmt"

	"nodeflow/internal/behavior"
	"nodeflow/internal/domain"
)

// Type identifiers of the builtin behaviors
const (
	TypeNumberSource  = "number_source"
	TypeTextSource    = "text_source"
	TypeBoolSource    = "bool_source"
	TypeAddition      = "addition"
	TypeTextDisplay   = "text_display"
	TypeNumberDisplay = "number_display"
	TypeNumberToText  = "number_to_text"
	TypeTextToNumber  = "text_to_number"
	TypeBoolToText    = "bool_to_text"
)

type converterDef struct {
	typeID string
	from   domain.DataType
	to     domain.DataType
}

var converters = []converterDef{
	{TypeNumberToText, NumberType, TextType},
	{TypeTextToNumber, TextType, NumberType},
	{TypeBoolToText, BoolType, TextType},
}

// Register adds every builtin behavior and converter to the registry
func Register(reg *behavior.Registry) error {
	plain := []struct {
		typeID   string
		category string
		factory  behavior.Factory
	}{
		{TypeNumberSource, "sources", NewNumberSource},
		{TypeTextSource, "sources", NewTextSource},
		{TypeBoolSource, "sources", NewBoolSource},
		{TypeAddition, "operators", NewAddition},
		{TypeTextDisplay, "displays", NewTextDisplay},
		{TypeNumberDisplay, "displays", NewNumberDisplay},
	}

	for _, p := range plain {
		if err := reg.Register(p.typeID, p.category, p.factory); err != nil {
			return err
		}
	}

	for _, c := range converters {
		factory, err := NewConverter(c.from, c.to)
		if err != nil {
			return fmt.Errorf("builtin converter %s: %w", c.typeID, err)
		}
		if err := reg.Register(c.typeID, "converters", factory); err != nil {
			return err
		}
		if err := reg.RegisterConverter(c.from, c.to, c.typeID); err != nil {
			return err
		}
	}

	return nil
}

// NewRegistry returns a registry holding the builtin behaviors
func NewRegistry() (*behavior.Registry, error) {
	reg := behavior.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
