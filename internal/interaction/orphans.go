package interaction

import (
	"nodeflow/internal/domain"
	"nodeflow/internal/flow"
)

// Orphans returns converter nodes that are not wired on both sides
func Orphans(m *flow.Model) []domain.NodeID {
	var out []domain.NodeID
	for _, id := range m.NodeIDs() {
		idx := m.NodeIndex(id)
		if !m.Registry().IsConverter(m.NodeTypeIdentifier(idx)) {
			continue
		}
		if !wired(m, idx, domain.PortIn) || !wired(m, idx, domain.PortOut) {
			out = append(out, id)
		}
	}
	return out
}

func wired(m *flow.Model, idx flow.NodeIndex, t domain.PortType) bool {
	for i := 0; i < m.NodePortCount(idx, t); i++ {
		if len(m.NodePortConnections(idx, domain.PortIndex(i), t)) > 0 {
			return true
		}
	}
	return false
}
