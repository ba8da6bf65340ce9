package interaction

import (
	"math"

	"nodeflow/internal/domain"
	"nodeflow/internal/flow"
)

// Geometry is the read-only view of scene layout the protocol needs. A
// rendering host implements it from its widgets; BoxGeometry derives it from
// node positions alone.
type Geometry interface {
	// PortUnderPoint returns the port of the given direction at p, if any
	PortUnderPoint(t domain.PortType, p domain.Position) (domain.PortRef, bool)

	// EndpointScenePosition returns where a connection attaches to a port
	EndpointScenePosition(ref domain.PortRef) domain.Position

	// NodeSize returns the extent of a node
	NodeSize(idx flow.NodeIndex) domain.Size
}

// BoxGeometry lays every node out as a box anchored at its model position:
// In ports down the left edge, Out ports down the right edge.
type BoxGeometry struct {
	Model       *flow.Model
	Width       float64
	Header      float64
	PortSpacing float64
	HitRadius   float64
}

// NewBoxGeometry returns a BoxGeometry with default dimensions
func NewBoxGeometry(m *flow.Model) *BoxGeometry {
	return &BoxGeometry{
		Model:       m,
		Width:       160,
		Header:      28,
		PortSpacing: 22,
		HitRadius:   8,
	}
}

// NodeSize implements Geometry
func (g *BoxGeometry) NodeSize(idx flow.NodeIndex) domain.Size {
	rows := max(g.Model.NodePortCount(idx, domain.PortIn), g.Model.NodePortCount(idx, domain.PortOut), 1)
	return domain.Size{
		Width:  g.Width,
		Height: g.Header + float64(rows)*g.PortSpacing,
	}
}

// EndpointScenePosition implements Geometry
func (g *BoxGeometry) EndpointScenePosition(ref domain.PortRef) domain.Position {
	origin := g.Model.NodeLocation(g.Model.NodeIndex(ref.Node))
	offset := domain.Position{Y: g.Header + (float64(ref.Index)+0.5)*g.PortSpacing}
	if ref.Type == domain.PortOut {
		offset.X = g.Width
	}
	return origin.Add(offset)
}

// PortUnderPoint implements Geometry. The most recently created node wins
// when ports overlap.
func (g *BoxGeometry) PortUnderPoint(t domain.PortType, p domain.Position) (domain.PortRef, bool) {
	ids := g.Model.NodeIDs()
	for i := len(ids) - 1; i >= 0; i-- {
		idx := g.Model.NodeIndex(ids[i])
		for port := 0; port < g.Model.NodePortCount(idx, t); port++ {
			ref := domain.PortRef{Node: ids[i], Type: t, Index: domain.PortIndex(port)}
			at := g.EndpointScenePosition(ref)
			if math.Hypot(at.X-p.X, at.Y-p.Y) <= g.HitRadius {
				return ref, true
			}
		}
	}
	return domain.PortRef{}, false
}
