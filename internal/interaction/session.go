package interaction

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nodeflow/internal/domain"
	"nodeflow/internal/flow"
)

var (
	// ErrIllegalState is returned for an operation the session state forbids
	ErrIllegalState = errors.New("illegal interaction state")

	// ErrNoTarget is returned when no port is under the dragged endpoint
	ErrNoTarget = errors.New("no port under point")
)

// State is the phase of one connection drag
type State int

const (
	StateIdle State = iota
	StateDragging
	StateCommitted
	StateConverted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateCommitted:
		return "committed"
	case StateConverted:
		return "converted"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the drag is over
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateConverted || s == StateCancelled
}

// RestorePolicy decides what Cancel does with a connection detached by
// Disconnect
type RestorePolicy int

const (
	// Discard leaves the detached connection destroyed
	Discard RestorePolicy = iota
	// RestoreOnCancel re-adds the detached connection
	RestoreOnCancel
)

// Evaluation is the compatibility verdict for one candidate port
type Evaluation struct {
	Target    domain.PortRef `json:"target"`
	OK        bool           `json:"ok"`
	Converter string         `json:"converter,omitempty"`
	Reason    error          `json:"-"`
}

// NeedsConversion reports whether connecting requires a converter node
func (e Evaluation) NeedsConversion() bool {
	return e.OK && e.Converter != ""
}

// Outcome describes what a commit created
type Outcome struct {
	State       State                 `json:"state"`
	Connections []domain.ConnectionID `json:"connections,omitempty"`
	Converter   domain.NodeID         `json:"converter"`
	// Orphan is set when a converter node was created but not fully wired
	Orphan bool `json:"orphan,omitempty"`
}

// Option configures a Session
type Option func(*Session)

// WithRestorePolicy sets what Cancel does after Disconnect
func WithRestorePolicy(p RestorePolicy) Option {
	return func(s *Session) { s.restore = p }
}

// WithFocus sets a hook called with the dragged endpoint when a connection is
// detached for re-dragging
func WithFocus(fn func(dragged domain.PortRef)) Option {
	return func(s *Session) { s.focus = fn }
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session drives one interactive connection drag. It reads the model freely
// and mutates it only through the model's public operations. A Session is
// single use: once terminal it stays terminal.
type Session struct {
	model    *flow.Model
	geometry Geometry
	logger   *zap.Logger
	restore  RestorePolicy
	focus    func(domain.PortRef)

	state    State
	fixed    domain.PortRef
	required domain.PortType
	point    domain.Position
	detached *domain.ConnectionID

	hover *domain.PortRef
	eval  Evaluation
}

// NewSession creates an idle session over a model
func NewSession(model *flow.Model, geometry Geometry, opts ...Option) *Session {
	s := &Session{
		model:    model,
		geometry: geometry,
		logger:   zap.NewNop(),
		required: domain.PortNone,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current phase
func (s *Session) State() State { return s.state }

// Fixed returns the endpoint that stays bound during the drag
func (s *Session) Fixed() domain.PortRef { return s.fixed }

// Required returns the direction of the port the drag is looking for, or
// PortNone when no port is required
func (s *Session) Required() domain.PortType { return s.required }

// Point returns the last position of the dragged endpoint
func (s *Session) Point() domain.Position { return s.point }

// Detached returns the connection removed by Disconnect, if any
func (s *Session) Detached() (domain.ConnectionID, bool) {
	if s.detached == nil {
		return domain.ConnectionID{}, false
	}
	return *s.detached, true
}

// Evaluation returns the verdict for the hovered port
func (s *Session) Evaluation() Evaluation { return s.eval }

// Start begins a new connection from fixed. The drag requires a port of the
// opposite direction.
func (s *Session) Start(fixed domain.PortRef) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: start while %s", ErrIllegalState, s.state)
	}
	if err := s.checkPort(fixed); err != nil {
		return err
	}

	s.fixed = fixed
	s.required = fixed.Type.Opposite()
	s.point = s.geometry.EndpointScenePosition(fixed)
	s.state = StateDragging

	s.logger.Debug("drag started", zap.Stringer("fixed", fixed))
	return nil
}

// Disconnect detaches the side end of an existing connection for re-dragging.
// The connection is removed from the model up front, which clears the data it
// delivered; the opposite end becomes the fixed endpoint.
func (s *Session) Disconnect(conn domain.ConnectionID, side domain.PortType) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: disconnect while %s", ErrIllegalState, s.state)
	}
	if side != domain.PortIn && side != domain.PortOut {
		return fmt.Errorf("%w: cannot detach side %s", ErrIllegalState, side)
	}
	if !s.model.HasConnection(conn) {
		return fmt.Errorf("detaching %s: %w", conn, flow.ErrConnectionNotFound)
	}

	dragged := conn.Side(side)
	s.point = s.geometry.EndpointScenePosition(dragged)

	if err := s.model.RemoveConnectionByID(conn); err != nil {
		return fmt.Errorf("detaching %s: %w", conn, err)
	}

	s.fixed = conn.Side(side.Opposite())
	s.required = side
	s.detached = &conn
	s.state = StateDragging

	s.logger.Debug("connection detached", zap.Stringer("connection", conn), zap.Stringer("side", side))
	if s.focus != nil {
		s.focus(dragged)
	}
	return nil
}

// Grab starts a drag at port. Grabbing a single-connection port that is
// already connected detaches that connection instead of starting a new one.
func (s *Session) Grab(port domain.PortRef) error {
	idx := s.model.NodeIndex(port.Node)
	if s.model.NodePortConnectionPolicy(idx, port.Index, port.Type) == domain.PolicyOne {
		if peers := s.model.NodePortConnections(idx, port.Index, port.Type); len(peers) > 0 {
			return s.Disconnect(peers[0].Connection, port.Type)
		}
	}
	return s.Start(port)
}

// Move updates the dragged endpoint and evaluates the port under it. The
// model is not modified.
func (s *Session) Move(p domain.Position) (Evaluation, error) {
	if s.state != StateDragging {
		return Evaluation{}, fmt.Errorf("%w: move while %s", ErrIllegalState, s.state)
	}
	s.point = p

	ref, ok := s.geometry.PortUnderPoint(s.required, p)
	if !ok {
		s.hover = nil
		s.eval = Evaluation{Reason: ErrNoTarget}
		return s.eval, nil
	}
	s.hover = &ref
	s.eval = s.CanConnect(ref)
	return s.eval, nil
}

// Target sets the hovered port directly, for hosts that resolve hits
// themselves
func (s *Session) Target(ref domain.PortRef) (Evaluation, error) {
	if s.state != StateDragging {
		return Evaluation{}, fmt.Errorf("%w: target while %s", ErrIllegalState, s.state)
	}
	s.hover = &ref
	s.point = s.geometry.EndpointScenePosition(ref)
	s.eval = s.CanConnect(ref)
	return s.eval, nil
}

// CanConnect evaluates whether the dragged endpoint may attach to target
func (s *Session) CanConnect(target domain.PortRef) Evaluation {
	eval := Evaluation{Target: target}

	if s.state != StateDragging || s.required == domain.PortNone {
		eval.Reason = fmt.Errorf("%w: no port required", ErrIllegalState)
		return eval
	}
	if target.Type != s.required {
		eval.Reason = fmt.Errorf("%w: need %s port, got %s", ErrNoTarget, s.required, target.Type)
		return eval
	}
	if err := s.checkPort(target); err != nil {
		eval.Reason = err
		return eval
	}

	out, in := s.endpoints(target)
	if id := domain.NewConnectionID(out, in); s.model.HasConnection(id) {
		eval.Reason = fmt.Errorf("%w: %s", flow.ErrDuplicateConnection, id)
		return eval
	}

	idx := s.model.NodeIndex(target.Node)
	if s.model.NodePortConnectionPolicy(idx, target.Index, target.Type) == domain.PolicyOne {
		for _, peer := range s.model.NodePortConnections(idx, target.Index, target.Type) {
			if s.detached == nil || peer.Connection != *s.detached {
				eval.Reason = fmt.Errorf("%w: %s", flow.ErrPortOccupied, target)
				return eval
			}
		}
	}

	fixedType := s.model.NodePortDataType(s.model.NodeIndex(s.fixed.Node), s.fixed.Index, s.fixed.Type)
	candidate := s.model.NodePortDataType(idx, target.Index, target.Type)
	if fixedType.Equal(candidate) {
		eval.OK = true
		return eval
	}

	from, to := fixedType, candidate
	if s.required == domain.PortOut {
		from, to = candidate, fixedType
	}
	if typeID, ok := s.model.Registry().Converter(from, to); ok {
		eval.OK = true
		eval.Converter = typeID
		return eval
	}

	eval.Reason = fmt.Errorf("%w: %s to %s and no converter", flow.ErrTypeMismatch, from, to)
	return eval
}

func (s *Session) checkPort(ref domain.PortRef) error {
	idx := s.model.NodeIndex(ref.Node)
	if !s.model.Alive(idx) {
		return fmt.Errorf("%w: node %s", flow.ErrInvalidIndex, ref.Node.Short())
	}
	if ref.Type != domain.PortIn && ref.Type != domain.PortOut {
		return fmt.Errorf("%w: port direction %s", flow.ErrPortOutOfRange, ref.Type)
	}
	if ref.Index < 0 || int(ref.Index) >= s.model.NodePortCount(idx, ref.Type) {
		return fmt.Errorf("%w: %s", flow.ErrPortOutOfRange, ref)
	}
	return nil
}

// endpoints orders the fixed endpoint and target as Out and In
func (s *Session) endpoints(target domain.PortRef) (out, in domain.PortRef) {
	if s.required == domain.PortIn {
		return s.fixed, target
	}
	return target, s.fixed
}

// TryConnect commits the drag onto the hovered port.
//
// A failed evaluation leaves the session dragging. Once the model has been
// asked to create something the session is terminal. On the converter path
// the converter node is not removed again if wiring it fails: the outcome is
// marked Orphan and the wiring errors are returned.
func (s *Session) TryConnect() (Outcome, error) {
	if s.state != StateDragging {
		return Outcome{State: s.state}, fmt.Errorf("%w: connect while %s", ErrIllegalState, s.state)
	}
	if s.hover == nil {
		return Outcome{State: s.state}, ErrNoTarget
	}

	s.eval = s.CanConnect(*s.hover)
	if !s.eval.OK {
		return Outcome{State: s.state}, s.eval.Reason
	}

	if s.eval.NeedsConversion() {
		return s.connectConverted(*s.hover, s.eval.Converter)
	}

	out, in := s.endpoints(*s.hover)
	id := domain.NewConnectionID(out, in)
	if err := s.model.AddConnectionByID(id); err != nil {
		err = s.abort(fmt.Errorf("connecting %s: %w", id, err))
		return Outcome{State: s.state}, err
	}

	s.state = StateCommitted
	s.logger.Debug("connection committed", zap.Stringer("connection", id))
	return Outcome{State: s.state, Connections: []domain.ConnectionID{id}}, nil
}

func (s *Session) connectConverted(target domain.PortRef, typeID string) (Outcome, error) {
	convID, err := s.model.AddNode(typeID, s.point)
	if err != nil {
		err = s.abort(fmt.Errorf("creating converter %s: %w", typeID, err))
		return Outcome{State: s.state}, err
	}
	conv := s.model.NodeIndex(convID)

	// placement is cosmetic, a failed move keeps the drop point
	_ = s.model.MoveNode(conv, s.placement(target, conv))

	convIn := domain.PortRef{Node: convID, Type: domain.PortIn, Index: 0}
	convOut := domain.PortRef{Node: convID, Type: domain.PortOut, Index: 0}

	var steps [2]domain.ConnectionID
	if s.required == domain.PortIn {
		steps[0] = domain.NewConnectionID(s.fixed, convIn)
		steps[1] = domain.NewConnectionID(convOut, target)
	} else {
		steps[0] = domain.NewConnectionID(convOut, s.fixed)
		steps[1] = domain.NewConnectionID(target, convIn)
	}

	outcome := Outcome{State: StateConverted, Converter: convID}
	var errs []error
	for _, id := range steps {
		if err := s.model.AddConnectionByID(id); err != nil {
			errs = append(errs, fmt.Errorf("wiring converter %s: %w", id, err))
			continue
		}
		outcome.Connections = append(outcome.Connections, id)
	}
	s.state = StateConverted

	if len(errs) > 0 {
		outcome.Orphan = true
		s.logger.Warn("converter left partially wired",
			zap.Stringer("converter", convID),
			zap.String("type", typeID),
			zap.Int("wired", len(outcome.Connections)))
		return outcome, errors.Join(errs...)
	}

	s.logger.Debug("converter inserted", zap.Stringer("converter", convID), zap.String("type", typeID))
	return outcome, nil
}

// placement centers the converter between the two endpoints it joins
func (s *Session) placement(target domain.PortRef, conv flow.NodeIndex) domain.Position {
	a := s.geometry.EndpointScenePosition(s.fixed)
	b := s.geometry.EndpointScenePosition(target)
	size := s.geometry.NodeSize(conv)
	return domain.Midpoint(a, b).Sub(size.Center())
}

// Cancel abandons the drag. A connection detached by Disconnect stays
// destroyed unless the session was created with RestoreOnCancel.
func (s *Session) Cancel() error {
	if s.state != StateDragging {
		return fmt.Errorf("%w: cancel while %s", ErrIllegalState, s.state)
	}
	return s.abort(nil)
}

// abort ends the drag as cancelled and applies the restore policy. The
// returned error joins cause with a failed restore.
func (s *Session) abort(cause error) error {
	s.state = StateCancelled
	s.hover = nil

	if s.detached == nil || s.restore != RestoreOnCancel {
		return cause
	}
	if err := s.model.AddConnectionByID(*s.detached); err != nil {
		return errors.Join(cause, fmt.Errorf("restoring %s: %w", *s.detached, err))
	}
	s.logger.Debug("detached connection restored", zap.Stringer("connection", *s.detached))
	return cause
}

// Release ends the drag at p: it commits when a compatible port is under p
// and cancels otherwise. A commit refused by the model also cancels.
func (s *Session) Release(p domain.Position) (Outcome, error) {
	eval, err := s.Move(p)
	if err != nil {
		return Outcome{State: s.state}, err
	}
	if !eval.OK {
		if err := s.Cancel(); err != nil {
			return Outcome{State: s.state}, err
		}
		return Outcome{State: s.state}, nil
	}

	outcome, err := s.TryConnect()
	if err != nil && s.state == StateDragging {
		if cerr := s.Cancel(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		outcome.State = s.state
	}
	return outcome, err
}
