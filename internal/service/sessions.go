package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nodeflow/internal/domain"
	"nodeflow/internal/interaction"
)

// ErrSessionNotFound is returned for an unknown or finished drag session
var ErrSessionNotFound = errors.New("drag session not found")

// EvaluationView is the JSON form of an interaction.Evaluation
type EvaluationView struct {
	Target    domain.PortRef `json:"target"`
	OK        bool           `json:"ok"`
	Converter string         `json:"converter,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// NewEvaluationView converts an evaluation for transport
func NewEvaluationView(e interaction.Evaluation) EvaluationView {
	v := EvaluationView{Target: e.Target, OK: e.OK, Converter: e.Converter}
	if e.Reason != nil {
		v.Reason = e.Reason.Error()
	}
	return v
}

// SessionView describes an open drag session
type SessionView struct {
	ID         string            `json:"id"`
	State      interaction.State `json:"state"`
	Fixed      domain.PortRef    `json:"fixed"`
	Required   domain.PortType   `json:"required"`
	Point      domain.Position   `json:"point"`
	Evaluation *EvaluationView   `json:"evaluation,omitempty"`
}

type dragSession struct {
	id      string
	session *interaction.Session
	touched time.Time
}

func (d *dragSession) view() SessionView {
	v := SessionView{
		ID:       d.id,
		State:    d.session.State(),
		Fixed:    d.session.Fixed(),
		Required: d.session.Required(),
		Point:    d.session.Point(),
	}
	if eval := d.session.Evaluation(); !eval.Target.Node.IsNil() || eval.Reason != nil {
		ev := NewEvaluationView(eval)
		v.Evaluation = &ev
	}
	return v
}

// BeginDrag starts a drag at a port. Grabbing a connected single-connection
// port detaches its connection for re-dragging instead of starting a new one.
func (s *EditorService) BeginDrag(port domain.PortRef) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session()
	if err := sess.Grab(port); err != nil {
		return SessionView{}, err
	}
	return s.open(sess), nil
}

// DetachConnection removes a connection and starts dragging its side end
func (s *EditorService) DetachConnection(conn domain.ConnectionID, side domain.PortType) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session()
	if err := sess.Disconnect(conn, side); err != nil {
		return SessionView{}, err
	}
	return s.open(sess), nil
}

func (s *EditorService) open(sess *interaction.Session) SessionView {
	d := &dragSession{id: uuid.NewString(), session: sess, touched: time.Now()}
	s.sessions[d.id] = d

	view := d.view()
	s.logger.Debug("drag started",
		zap.String("session", d.id),
		zap.Stringer("fixed", view.Fixed))
	s.eventBus.Publish(Event{Type: EventSessionUpdate, Payload: view})
	return view
}

func (s *EditorService) lookup(id string) (*dragSession, error) {
	d, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return d, nil
}

// Sessions lists open drag sessions
func (s *EditorService) Sessions() []SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]SessionView, 0, len(s.sessions))
	for _, d := range s.sessions {
		views = append(views, d.view())
	}
	return views
}

// DragMove moves the free end of a drag and evaluates the port under it
func (s *EditorService) DragMove(id string, p domain.Position) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	d.touched = time.Now()
	if _, err := d.session.Move(p); err != nil {
		return d.view(), err
	}

	view := d.view()
	s.eventBus.Publish(Event{Type: EventSessionUpdate, Payload: view})
	return view, nil
}

// DragRelease ends a drag at p, committing when a compatible port is there.
// The session is closed whatever the outcome.
func (s *EditorService) DragRelease(id string, p domain.Position) (interaction.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(id)
	if err != nil {
		return interaction.Outcome{}, err
	}
	delete(s.sessions, id)

	outcome, err := d.session.Release(p)
	if outcome.Orphan {
		s.logger.Warn("converter left partially wired",
			zap.Stringer("converter", outcome.Converter), zap.Error(err))
	}
	s.eventBus.Publish(Event{Type: EventSessionUpdate, Payload: d.view()})
	return outcome, err
}

// DragCancel abandons a drag
func (s *EditorService) DragCancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(id)
	if err != nil {
		return err
	}
	delete(s.sessions, id)

	if err := d.session.Cancel(); err != nil {
		return err
	}
	s.eventBus.Publish(Event{Type: EventSessionUpdate, Payload: d.view()})
	return nil
}

// ExpireDrags cancels drags whose last start or move is older than the drag
// timeout at now, applying the restore policy. It returns the expired ids.
func (s *EditorService) ExpireDrags(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dragTimeout <= 0 {
		return nil
	}

	var expired []string
	for id, d := range s.sessions {
		if now.Sub(d.touched) < s.dragTimeout {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, id)

		if err := d.session.Cancel(); err != nil {
			s.logger.Warn("expired drag cancel failed", zap.String("session", id), zap.Error(err))
		}
		s.logger.Info("drag session expired", zap.String("session", id))
		s.eventBus.Publish(Event{Type: EventSessionUpdate, Payload: d.view()})
	}
	return expired
}

// RunDragExpiry expires idle drags until ctx is cancelled. It returns at once
// when the drag timeout is disabled.
func (s *EditorService) RunDragExpiry(ctx context.Context) {
	if s.dragTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(s.dragTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.ExpireDrags(now)
		case <-ctx.Done():
			return
		}
	}
}
