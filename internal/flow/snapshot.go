package flow

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"lukechampine.com/blake3"

	"nodeflow/internal/domain"
)

// NodeSnapshot is the observable state of one node
type NodeSnapshot struct {
	ID       domain.NodeID   `json:"id"`
	Type     string          `json:"type"`
	Position domain.Position `json:"position"`
	State    map[string]any  `json:"state,omitempty"`
}

// Snapshot is the observable state of a model
type Snapshot struct {
	Nodes       []NodeSnapshot        `json:"nodes"`
	Connections []domain.ConnectionID `json:"connections"`
}

// Snapshot captures nodes in creation order and connections in insertion order
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:       make([]NodeSnapshot, 0, len(m.order)),
		Connections: m.Connections(),
	}
	for _, id := range m.order {
		n := m.nodes[id]
		s.Nodes = append(s.Nodes, NodeSnapshot{
			ID:       n.id,
			Type:     n.typeID,
			Position: n.pos,
			State:    n.behavior.Save(),
		})
	}
	return s
}

// Fingerprint hashes the model snapshot in canonical order. Equal models
// yield equal fingerprints.
func (m *Model) Fingerprint() string {
	s := m.Snapshot()
	sort.Slice(s.Nodes, func(i, j int) bool {
		return s.Nodes[i].ID.String() < s.Nodes[j].ID.String()
	})
	sort.Slice(s.Connections, func(i, j int) bool {
		return connectionKey(s.Connections[i]) < connectionKey(s.Connections[j])
	})

	// map keys are sorted by encoding/json
	data, err := json.Marshal(s)
	if err != nil {
		m.assertConsistent(false, "snapshot not encodable: %v", err)
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func connectionKey(c domain.ConnectionID) string {
	return fmt.Sprintf("%s:%08d:%s:%08d", c.Left, c.LeftPort, c.Right, c.RightPort)
}

// DependencyOrder returns the nodes so that every node comes after the nodes
// feeding its In ports. Ties keep creation order.
func (m *Model) DependencyOrder() ([]NodeIndex, error) {
	pending := make(map[domain.NodeID]int, len(m.nodes))
	for _, id := range m.order {
		pending[id] = 0
	}
	for cid := range m.connections {
		pending[cid.Right]++
	}

	out := make([]NodeIndex, 0, len(m.order))
	done := make(map[domain.NodeID]bool, len(m.order))
	for len(out) < len(m.order) {
		progressed := false
		for _, id := range m.order {
			if done[id] || pending[id] > 0 {
				continue
			}
			done[id] = true
			progressed = true
			n := m.nodes[id]
			out = append(out, m.index(n))
			for _, cid := range m.nodeConnections(n) {
				if cid.Left == id {
					pending[cid.Right]--
				}
			}
		}
		if !progressed {
			return out, fmt.Errorf("%w: %d nodes unordered", ErrCycle, len(m.order)-len(out))
		}
	}
	return out, nil
}
