package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"nodeflow/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PositionRequest is a scene position
type PositionRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

func (p PositionRequest) position() domain.Position {
	return domain.Position{X: *p.X, Y: *p.Y}
}

// CreateNodeRequest creates a node of a registered type
type CreateNodeRequest struct {
	Type     string          `json:"type" validate:"required"`
	Position PositionRequest `json:"position"`
	State    map[string]any  `json:"state,omitempty"`
}

// NodeStateRequest replaces a node's behavior payload
type NodeStateRequest struct {
	State map[string]any `json:"state" validate:"required"`
}

// PortRequest addresses one port
type PortRequest struct {
	Node  string `json:"node" validate:"required,uuid"`
	Type  string `json:"type" validate:"required,oneof=in out"`
	Index *int   `json:"index" validate:"required,gte=0"`
}

func (p PortRequest) ref() (domain.PortRef, error) {
	id, err := domain.ParseNodeID(p.Node)
	if err != nil {
		return domain.PortRef{}, err
	}
	t, err := domain.ParsePortType(p.Type)
	if err != nil {
		return domain.PortRef{}, err
	}
	return domain.PortRef{Node: id, Type: t, Index: domain.PortIndex(*p.Index)}, nil
}

// ConnectionRequest identifies a connection by its Out and In endpoints
type ConnectionRequest struct {
	OutID    string `json:"out_id" validate:"required,uuid"`
	OutIndex *int   `json:"out_index" validate:"required,gte=0"`
	InID     string `json:"in_id" validate:"required,uuid"`
	InIndex  *int   `json:"in_index" validate:"required,gte=0"`
}

func (c ConnectionRequest) id() (domain.ConnectionID, error) {
	out, err := domain.ParseNodeID(c.OutID)
	if err != nil {
		return domain.ConnectionID{}, err
	}
	in, err := domain.ParseNodeID(c.InID)
	if err != nil {
		return domain.ConnectionID{}, err
	}
	return domain.ConnectionID{
		Left:      out,
		LeftPort:  domain.PortIndex(*c.OutIndex),
		Right:     in,
		RightPort: domain.PortIndex(*c.InIndex),
	}, nil
}

// LockRequest locks or unlocks a connection
type LockRequest struct {
	ConnectionRequest
	Locked bool `json:"locked"`
}

// ConnectRequest commits a connection from one port to another, inserting
// a converter when needed
type ConnectRequest struct {
	From PortRequest `json:"from"`
	To   PortRequest `json:"to"`
}

// DetachRequest starts re-dragging one end of a connection
type DetachRequest struct {
	ConnectionRequest
	Side string `json:"side" validate:"required,oneof=in out"`
}

// validationError flattens validator output into one message
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if len(verrs) == 1 {
		return fmt.Errorf("field %s failed %q", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("field %s failed %q (and %d more)", fe.Namespace(), fe.Tag(), len(verrs)-1)
}
