// Package codec converts a flow model to and from a portable scene document.
//
// A document holds two ordered lists. Nodes carry their serialized identity,
// registry type, position and behavior payload; connections reference nodes
// by serialized identity and ports by index. Identities are not portable:
// Load mints fresh ones and translates connection endpoints through the
// mapping it builds.
package codec

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"nodeflow/internal/domain"
	"nodeflow/internal/flow"
)

// Document is the persisted form of a scene
type Document struct {
	Nodes       []NodeRecord       `json:"nodes" yaml:"nodes" validate:"dive"`
	Connections []ConnectionRecord `json:"connections" yaml:"connections" validate:"dive"`
}

// NodeRecord is one persisted node
type NodeRecord struct {
	ID       string          `json:"id" yaml:"id" validate:"required,uuid"`
	Type     string          `json:"type,omitempty" yaml:"type,omitempty"`
	Position domain.Position `json:"position" yaml:"position"`
	Model    map[string]any  `json:"model,omitempty" yaml:"model,omitempty"`
}

// TypeID returns the registry type of the node. Documents that predate the
// type field keep it as model.name.
func (r NodeRecord) TypeID() string {
	if r.Type != "" {
		return r.Type
	}
	if name, ok := r.Model["name"].(string); ok {
		return name
	}
	return ""
}

// ConnectionRecord is one persisted connection, Out side to In side
type ConnectionRecord struct {
	OutID    string `json:"out_id" yaml:"out_id" validate:"required,uuid"`
	OutIndex int    `json:"out_index" yaml:"out_index" validate:"gte=0"`
	InID     string `json:"in_id" yaml:"in_id" validate:"required,uuid"`
	InIndex  int    `json:"in_index" yaml:"in_index" validate:"gte=0"`
}

func (c ConnectionRecord) String() string {
	return fmt.Sprintf("%s:%d->%s:%d", c.OutID, c.OutIndex, c.InID, c.InIndex)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structure of a document without a model: well-formed
// identities, non-negative port indices, known node references and no
// duplicate node identities.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	var errs []error
	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if ids[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate node id %s", n.ID))
		}
		ids[n.ID] = true
		if n.TypeID() == "" {
			errs = append(errs, fmt.Errorf("node %s has no type", n.ID))
		}
	}
	for _, c := range d.Connections {
		if !ids[c.OutID] || !ids[c.InID] {
			errs = append(errs, fmt.Errorf("connection %s references an unknown node", c))
		}
	}
	return errors.Join(errs...)
}

// Save captures every node and connection of the model. The model only
// stores complete connections, so every record has both endpoints.
func Save(m *flow.Model) *Document {
	doc := &Document{
		Nodes:       make([]NodeRecord, 0, m.NodeCount()),
		Connections: make([]ConnectionRecord, 0, m.ConnectionCount()),
	}

	for _, id := range m.NodeIDs() {
		idx := m.NodeIndex(id)
		doc.Nodes = append(doc.Nodes, NodeRecord{
			ID:       id.String(),
			Type:     m.NodeTypeIdentifier(idx),
			Position: m.NodeLocation(idx),
			Model:    m.NodeState(idx),
		})
	}

	for _, c := range m.Connections() {
		doc.Connections = append(doc.Connections, ConnectionRecord{
			OutID:    c.Left.String(),
			OutIndex: int(c.LeftPort),
			InID:     c.Right.String(),
			InIndex:  int(c.RightPort),
		})
	}

	return doc
}

// Skip records a document entry Load could not apply
type Skip struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// LoadReport describes what Load created and what it skipped
type LoadReport struct {
	// IDs maps serialized node identities to the identities minted by Load
	IDs                map[string]domain.NodeID `json:"ids"`
	Connections        int                      `json:"connections"`
	SkippedNodes       []Skip                   `json:"skipped_nodes,omitempty"`
	SkippedConnections []Skip                   `json:"skipped_connections,omitempty"`
}

// Complete reports whether every entry of the document was applied
func (r *LoadReport) Complete() bool {
	return len(r.SkippedNodes) == 0 && len(r.SkippedConnections) == 0
}

// Load adds the document's nodes and connections to m.
//
// Nodes are created first, each with a fresh identity, then given their
// saved payload. A node whose type is unknown or whose payload is rejected
// is skipped, as is every connection that references a skipped node or that
// the model refuses. Nodes created before a failure are kept. The returned
// error is reserved for failures that stop the load as a whole.
func Load(m *flow.Model, doc *Document) (*LoadReport, error) {
	if doc == nil {
		return nil, errors.New("load: nil document")
	}

	report := &LoadReport{IDs: make(map[string]domain.NodeID, len(doc.Nodes))}

	for _, rec := range doc.Nodes {
		if _, dup := report.IDs[rec.ID]; dup {
			report.SkippedNodes = append(report.SkippedNodes, Skip{Ref: rec.ID, Reason: "duplicate node id"})
			continue
		}

		id, err := m.AddNode(rec.TypeID(), rec.Position)
		if errors.Is(err, flow.ErrReentrant) {
			return report, fmt.Errorf("load: %w", err)
		}
		if err != nil {
			report.SkippedNodes = append(report.SkippedNodes, Skip{Ref: rec.ID, Reason: err.Error()})
			continue
		}

		idx := m.NodeIndex(id)
		if len(rec.Model) > 0 {
			if err := m.RestoreNodeState(idx, rec.Model); err != nil {
				report.SkippedNodes = append(report.SkippedNodes, Skip{Ref: rec.ID, Reason: err.Error()})
				if rerr := m.RemoveNode(idx); rerr != nil {
					return report, fmt.Errorf("load: discarding node %s: %w", rec.ID, rerr)
				}
				continue
			}
		}

		report.IDs[rec.ID] = id
	}

	for _, rec := range doc.Connections {
		out, okOut := report.IDs[rec.OutID]
		in, okIn := report.IDs[rec.InID]
		if !okOut || !okIn {
			report.SkippedConnections = append(report.SkippedConnections, Skip{Ref: rec.String(), Reason: "endpoint node not loaded"})
			continue
		}

		err := m.AddConnection(m.NodeIndex(out), domain.PortIndex(rec.OutIndex), m.NodeIndex(in), domain.PortIndex(rec.InIndex))
		if err != nil {
			report.SkippedConnections = append(report.SkippedConnections, Skip{Ref: rec.String(), Reason: err.Error()})
			continue
		}
		report.Connections++
	}

	return report, nil
}
