package flow

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"

	"nodeflow/internal/domain"
)

// behaviorEmpty is the value delivered to an In port whose connection is gone
var behaviorEmpty = cty.NilVal

// nodeSink forwards behavior reports of one node into the model
type nodeSink struct {
	model *Model
	id    domain.NodeID
}

func (s *nodeSink) OutputUpdated(i domain.PortIndex) {
	n, ok := s.model.nodes[s.id]
	if !ok {
		return
	}
	s.model.propagateOutput(n, i, nil)
}

func (s *nodeSink) ValidationUpdated() {
	if _, ok := s.model.nodes[s.id]; !ok {
		return
	}
	s.model.notify(Event{Kind: EventNodeValidationUpdated, Node: s.id})
}

func (s *nodeSink) PortsUpdated() {
	n, ok := s.model.nodes[s.id]
	if !ok {
		return
	}
	s.model.prunePorts(n)
}

// propagateOutput pushes the current value of an Out port along conns, or
// along every connection of the port when conns is nil. A port already being
// propagated is skipped so loops terminate.
func (m *Model) propagateOutput(n *node, port domain.PortIndex, conns []domain.ConnectionID) {
	ref := domain.PortRef{Node: n.id, Type: domain.PortOut, Index: port}
	if m.propagating[ref] {
		m.logger.Debug("propagation loop cut", zap.Stringer("port", ref))
		return
	}
	m.propagating[ref] = true
	defer delete(m.propagating, ref)

	if conns == nil {
		conns = append([]domain.ConnectionID(nil), n.ports[portKey{domain.PortOut, port}]...)
	}
	data := n.behavior.ComputeOutput(port)
	for _, cid := range conns {
		m.deliver(cid, data)
	}
}

func (m *Model) deliver(id domain.ConnectionID, data cty.Value) {
	rn, ok := m.nodes[id.Right]
	if !ok {
		return
	}
	rn.behavior.SetInput(data, id.RightPort)
}

// PropagateData delivers data to the In side of a connection
func (m *Model) PropagateData(id domain.ConnectionID, data cty.Value) error {
	if _, ok := m.connections[id]; !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	m.deliver(id, data)
	return nil
}

// PropagateEmptyData clears the value at the In side of a connection
func (m *Model) PropagateEmptyData(id domain.ConnectionID) error {
	return m.PropagateData(id, behaviorEmpty)
}

// prunePorts drops connections that no longer fit the ports a behavior
// declares. Locks do not apply: a connection to a vanished port cannot stay.
func (m *Model) prunePorts(n *node) {
	for _, cid := range m.nodeConnections(n) {
		ln, rn := m.nodes[cid.Left], m.nodes[cid.Right]
		fits := hasPort(ln, domain.PortOut, cid.LeftPort) &&
			hasPort(rn, domain.PortIn, cid.RightPort) &&
			ln.behavior.PortDataType(domain.PortOut, cid.LeftPort).Equal(rn.behavior.PortDataType(domain.PortIn, cid.RightPort))
		if fits {
			continue
		}
		m.logger.Info("dropping connection after port change", zap.Stringer("connection", cid))
		m.dropConnection(cid)
	}
	for k, conns := range n.ports {
		if len(conns) == 0 {
			delete(n.ports, k)
		}
	}
	m.notify(Event{Kind: EventNodePortUpdated, Node: n.id})
}
