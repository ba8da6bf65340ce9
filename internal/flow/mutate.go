package flow

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nodeflow/internal/behavior"
	"nodeflow/internal/domain"
)

// AddNode instantiates a node of the registered type at pos
func (m *Model) AddNode(typeID string, pos domain.Position) (domain.NodeID, error) {
	if err := m.mutable(); err != nil {
		return domain.NilNodeID, err
	}

	b, err := m.registry.Create(typeID)
	if err != nil {
		return domain.NilNodeID, err
	}

	n := &node{
		id:       domain.NewNodeID(),
		typeID:   typeID,
		behavior: b,
		pos:      pos,
		ports:    make(map[portKey][]domain.ConnectionID),
	}
	m.nodes[n.id] = n
	m.order = append(m.order, n.id)

	if e, ok := b.(behavior.Emitter); ok {
		e.Bind(&nodeSink{model: m, id: n.id})
	}

	m.logger.Debug("node added", zap.Stringer("node", n.id), zap.String("type", typeID))
	m.notify(Event{Kind: EventNodeAdded, Node: n.id})

	return n.id, nil
}

// RemoveNode removes a node after removing every connection that touches it.
//
// The sweep stops at the first connection that refuses removal. The node
// then stays, and connections removed before the refusal stay removed.
// EventNodeAboutToBeRemoved is sent only once the sweep has succeeded.
func (m *Model) RemoveNode(idx NodeIndex) error {
	if err := m.mutable(); err != nil {
		return err
	}
	n, err := m.resolve(idx)
	if err != nil {
		return err
	}

	for _, cid := range m.nodeConnections(n) {
		if err := m.removeConnection(cid); err != nil {
			m.logger.Warn("node removal refused",
				zap.Stringer("node", n.id),
				zap.Stringer("connection", cid),
				zap.Error(err))
			return fmt.Errorf("removing node %s: %w", n.id.Short(), err)
		}
	}

	m.assertConsistent(len(m.nodeConnections(n)) == 0, "node %s still has connections after sweep", n.id.Short())

	m.notify(Event{Kind: EventNodeAboutToBeRemoved, Node: n.id})

	delete(m.nodes, n.id)
	for i, id := range m.order {
		if id == n.id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	m.logger.Debug("node removed", zap.Stringer("node", n.id))
	m.notify(Event{Kind: EventNodeRemoved, Node: n.id})

	return nil
}

// nodeConnections lists the connections of n in port order, each once
func (m *Model) nodeConnections(n *node) []domain.ConnectionID {
	var out []domain.ConnectionID
	seen := make(map[domain.ConnectionID]bool)
	for _, t := range []domain.PortType{domain.PortIn, domain.PortOut} {
		for i := 0; i < n.behavior.PortCount(t); i++ {
			for _, cid := range n.ports[portKey{t, domain.PortIndex(i)}] {
				if !seen[cid] {
					seen[cid] = true
					out = append(out, cid)
				}
			}
		}
	}
	// connections left on ports the behavior no longer declares
	for _, conns := range n.ports {
		for _, cid := range conns {
			if !seen[cid] {
				seen[cid] = true
				out = append(out, cid)
			}
		}
	}
	return out
}

// AddConnection connects Out port lport of left to In port rport of right
func (m *Model) AddConnection(left NodeIndex, lport domain.PortIndex, right NodeIndex, rport domain.PortIndex) error {
	if err := m.mutable(); err != nil {
		return err
	}
	ln, err := m.resolve(left)
	if err != nil {
		return err
	}
	rn, err := m.resolve(right)
	if err != nil {
		return err
	}
	return m.addConnection(ln, lport, rn, rport)
}

// AddConnectionByID adds the connection described by id
func (m *Model) AddConnectionByID(id domain.ConnectionID) error {
	return m.AddConnection(m.NodeIndex(id.Left), id.LeftPort, m.NodeIndex(id.Right), id.RightPort)
}

func (m *Model) addConnection(ln *node, lport domain.PortIndex, rn *node, rport domain.PortIndex) error {
	if !hasPort(ln, domain.PortOut, lport) {
		return fmt.Errorf("%w: out port %d of %s", ErrPortOutOfRange, lport, ln.id.Short())
	}
	if !hasPort(rn, domain.PortIn, rport) {
		return fmt.Errorf("%w: in port %d of %s", ErrPortOutOfRange, rport, rn.id.Short())
	}

	id := domain.ConnectionID{Left: ln.id, LeftPort: lport, Right: rn.id, RightPort: rport}
	if _, ok := m.connections[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, id)
	}

	out := ln.behavior.PortDataType(domain.PortOut, lport)
	in := rn.behavior.PortDataType(domain.PortIn, rport)
	if !out.Equal(in) {
		return fmt.Errorf("%w: %s to %s", ErrTypeMismatch, out, in)
	}

	outKey := portKey{domain.PortOut, lport}
	inKey := portKey{domain.PortIn, rport}
	if occupied(ln, outKey) {
		return fmt.Errorf("%w: out port %d of %s", ErrPortOccupied, lport, ln.id.Short())
	}
	if occupied(rn, inKey) {
		return fmt.Errorf("%w: in port %d of %s", ErrPortOccupied, rport, rn.id.Short())
	}

	m.connections[id] = out
	m.connOrder = append(m.connOrder, id)
	ln.ports[outKey] = append(ln.ports[outKey], id)
	rn.ports[inKey] = append(rn.ports[inKey], id)

	m.logger.Debug("connection added", zap.Stringer("connection", id), zap.Stringer("type", out))
	m.notifyConnection(EventConnectionAdded, id)

	m.propagateOutput(ln, lport, []domain.ConnectionID{id})
	return nil
}

func occupied(n *node, k portKey) bool {
	return n.behavior.PortPolicy(k.t, k.i) == domain.PolicyOne && len(n.ports[k]) > 0
}

// RemoveConnection removes the connection from Out port lport of left to In
// port rport of right and clears the data it delivered
func (m *Model) RemoveConnection(left NodeIndex, lport domain.PortIndex, right NodeIndex, rport domain.PortIndex) error {
	if err := m.mutable(); err != nil {
		return err
	}
	return m.removeConnection(domain.ConnectionID{Left: left.id, LeftPort: lport, Right: right.id, RightPort: rport})
}

// RemoveConnectionByID removes the connection described by id
func (m *Model) RemoveConnectionByID(id domain.ConnectionID) error {
	if err := m.mutable(); err != nil {
		return err
	}
	return m.removeConnection(id)
}

func (m *Model) removeConnection(id domain.ConnectionID) error {
	if _, ok := m.connections[id]; !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	if m.locked[id] {
		return fmt.Errorf("%w: %s", ErrConnectionLocked, id)
	}
	m.dropConnection(id)
	return nil
}

// dropConnection removes a connection unconditionally
func (m *Model) dropConnection(id domain.ConnectionID) {
	delete(m.connections, id)
	delete(m.locked, id)
	for i, cid := range m.connOrder {
		if cid == id {
			m.connOrder = append(m.connOrder[:i], m.connOrder[i+1:]...)
			break
		}
	}
	if ln, ok := m.nodes[id.Left]; ok {
		unlink(ln, portKey{domain.PortOut, id.LeftPort}, id)
	}
	if rn, ok := m.nodes[id.Right]; ok {
		unlink(rn, portKey{domain.PortIn, id.RightPort}, id)
	}

	m.logger.Debug("connection removed", zap.Stringer("connection", id))
	m.notifyConnection(EventConnectionRemoved, id)

	m.deliver(id, behaviorEmpty)
}

func unlink(n *node, k portKey, id domain.ConnectionID) {
	conns := n.ports[k]
	for i, cid := range conns {
		if cid == id {
			conns = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(n.ports, k)
		return
	}
	n.ports[k] = conns
}

// MoveNode sets the scene position of a node
func (m *Model) MoveNode(idx NodeIndex, pos domain.Position) error {
	if err := m.mutable(); err != nil {
		return err
	}
	n, err := m.resolve(idx)
	if err != nil {
		return err
	}
	n.pos = pos
	m.notify(Event{Kind: EventNodeMoved, Node: n.id, Position: &pos})
	return nil
}

// RestoreNodeState hands a saved payload to the behavior of a node
func (m *Model) RestoreNodeState(idx NodeIndex, state map[string]any) error {
	if err := m.mutable(); err != nil {
		return err
	}
	n, err := m.resolve(idx)
	if err != nil {
		return err
	}
	if err := n.behavior.Restore(state); err != nil {
		return fmt.Errorf("restoring %s state of %s: %w", n.typeID, n.id.Short(), err)
	}
	return nil
}

// SetConnectionLocked makes RemoveConnection refuse to remove id until unlocked
func (m *Model) SetConnectionLocked(id domain.ConnectionID, locked bool) error {
	if _, ok := m.connections[id]; !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	if locked {
		m.locked[id] = true
	} else {
		delete(m.locked, id)
	}
	return nil
}

// Clear unlocks every connection and removes all nodes
func (m *Model) Clear() error {
	if err := m.mutable(); err != nil {
		return err
	}
	clear(m.locked)

	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		if err := m.RemoveNode(m.NodeIndex(m.order[i])); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
