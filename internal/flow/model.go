package flow

import (
	"fmt"

	"go.uber.org/zap"

	"nodeflow/internal/behavior"
	"nodeflow/internal/domain"
)

type portKey struct {
	t domain.PortType
	i domain.PortIndex
}

type node struct {
	id       domain.NodeID
	typeID   string
	behavior behavior.Behavior
	pos      domain.Position
	ports    map[portKey][]domain.ConnectionID
}

// Model is the authoritative store of nodes and connections
type Model struct {
	registry *behavior.Registry
	logger   *zap.Logger

	nodes map[domain.NodeID]*node
	order []domain.NodeID

	connections map[domain.ConnectionID]domain.DataType
	connOrder   []domain.ConnectionID
	locked      map[domain.ConnectionID]bool

	subs        []*subscription
	delivering  int
	propagating map[domain.PortRef]bool
}

// Option configures a Model
type Option func(*Model)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates an empty model that instantiates node behaviors from registry
func New(registry *behavior.Registry, opts ...Option) *Model {
	m := &Model{
		registry:    registry,
		logger:      zap.NewNop(),
		nodes:       make(map[domain.NodeID]*node),
		connections: make(map[domain.ConnectionID]domain.DataType),
		locked:      make(map[domain.ConnectionID]bool),
		propagating: make(map[domain.PortRef]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the behavior registry the model creates nodes from
func (m *Model) Registry() *behavior.Registry {
	return m.registry
}

func (m *Model) mutable() error {
	if m.delivering > 0 {
		return ErrReentrant
	}
	return nil
}

func (m *Model) resolve(idx NodeIndex) (*node, error) {
	if !idx.IsValid() {
		return nil, ErrInvalidIndex
	}
	if idx.model != m {
		return nil, fmt.Errorf("%w: %s belongs to another model", ErrInvalidIndex, idx)
	}
	n, ok := m.nodes[idx.id]
	if !ok {
		return nil, fmt.Errorf("%w: node %s no longer exists", ErrInvalidIndex, idx)
	}
	return n, nil
}

func (m *Model) index(n *node) NodeIndex {
	return NodeIndex{id: n.id, model: m, payload: n.typeID}
}

// NodeIndex returns a handle for id, or an invalid index if id is unknown
func (m *Model) NodeIndex(id domain.NodeID) NodeIndex {
	n, ok := m.nodes[id]
	if !ok {
		return NodeIndex{}
	}
	return m.index(n)
}

// Alive reports whether idx still names a node of this model
func (m *Model) Alive(idx NodeIndex) bool {
	_, err := m.resolve(idx)
	return err == nil
}

// NodeIDs returns the live node ids in creation order
func (m *Model) NodeIDs() []domain.NodeID {
	ids := make([]domain.NodeID, len(m.order))
	copy(ids, m.order)
	return ids
}

// NodeCount returns the number of live nodes
func (m *Model) NodeCount() int {
	return len(m.nodes)
}

// ModelRegistry returns the registered node type identifiers
func (m *Model) ModelRegistry() []string {
	return m.registry.TypeIDs()
}

// NodeTypeIdentifier returns the registry type of a node
func (m *Model) NodeTypeIdentifier(idx NodeIndex) string {
	n, err := m.resolve(idx)
	if err != nil {
		return ""
	}
	return n.typeID
}

// NodeCaption returns the title of a node
func (m *Model) NodeCaption(idx NodeIndex) string {
	n, err := m.resolve(idx)
	if err != nil {
		return ""
	}
	return n.behavior.Caption()
}

// NodeLocation returns the scene position of a node
func (m *Model) NodeLocation(idx NodeIndex) domain.Position {
	n, err := m.resolve(idx)
	if err != nil {
		return domain.Position{}
	}
	return n.pos
}

// NodeValidation returns the validation state and message of a node
func (m *Model) NodeValidation(idx NodeIndex) (domain.ValidationState, string) {
	n, err := m.resolve(idx)
	if err != nil {
		return domain.ValidationError, err.Error()
	}
	return n.behavior.Validation()
}

// NodeBehavior returns the behavior instance of a node
func (m *Model) NodeBehavior(idx NodeIndex) behavior.Behavior {
	n, err := m.resolve(idx)
	if err != nil {
		return nil
	}
	return n.behavior
}

// NodeState returns the behavior payload to persist for a node
func (m *Model) NodeState(idx NodeIndex) map[string]any {
	n, err := m.resolve(idx)
	if err != nil {
		return nil
	}
	return n.behavior.Save()
}

// NodePortCount returns the number of ports of a node in one direction
func (m *Model) NodePortCount(idx NodeIndex, t domain.PortType) int {
	n, err := m.resolve(idx)
	if err != nil {
		return 0
	}
	return n.behavior.PortCount(t)
}

// NodePortDataType returns the data type of a port
func (m *Model) NodePortDataType(idx NodeIndex, port domain.PortIndex, t domain.PortType) domain.DataType {
	n, err := m.resolve(idx)
	if err != nil || !hasPort(n, t, port) {
		return domain.DataType{}
	}
	return n.behavior.PortDataType(t, port)
}

// NodePortCaption returns the label of a port
func (m *Model) NodePortCaption(idx NodeIndex, port domain.PortIndex, t domain.PortType) string {
	n, err := m.resolve(idx)
	if err != nil || !hasPort(n, t, port) {
		return ""
	}
	return n.behavior.PortCaption(t, port)
}

// NodePortConnectionPolicy returns how many connections a port accepts
func (m *Model) NodePortConnectionPolicy(idx NodeIndex, port domain.PortIndex, t domain.PortType) domain.ConnectionPolicy {
	n, err := m.resolve(idx)
	if err != nil || !hasPort(n, t, port) {
		return domain.PolicyOne
	}
	return n.behavior.PortPolicy(t, port)
}

// NodePortConnections returns a snapshot of the connections at a port
func (m *Model) NodePortConnections(idx NodeIndex, port domain.PortIndex, t domain.PortType) []Peer {
	n, err := m.resolve(idx)
	if err != nil {
		return nil
	}
	conns := n.ports[portKey{t, port}]
	peers := make([]Peer, 0, len(conns))
	for _, cid := range conns {
		far := cid.Side(t.Opposite())
		peers = append(peers, Peer{
			Node:       m.NodeIndex(far.Node),
			Port:       far.Index,
			Connection: cid,
		})
	}
	return peers
}

// Connections returns every connection in insertion order
func (m *Model) Connections() []domain.ConnectionID {
	ids := make([]domain.ConnectionID, len(m.connOrder))
	copy(ids, m.connOrder)
	return ids
}

// ConnectionCount returns the number of connections
func (m *Model) ConnectionCount() int {
	return len(m.connections)
}

// HasConnection reports whether the connection exists
func (m *Model) HasConnection(id domain.ConnectionID) bool {
	_, ok := m.connections[id]
	return ok
}

// IsConnectionLocked reports whether removal of the connection is refused
func (m *Model) IsConnectionLocked(id domain.ConnectionID) bool {
	return m.locked[id]
}

// ConnectionDataType returns the data type carried by a connection
func (m *Model) ConnectionDataType(id domain.ConnectionID) (domain.DataType, error) {
	dt, ok := m.connections[id]
	if !ok {
		return domain.DataType{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}

	out := m.nodes[id.Left].behavior.PortDataType(domain.PortOut, id.LeftPort)
	in := m.nodes[id.Right].behavior.PortDataType(domain.PortIn, id.RightPort)
	m.assertConsistent(out.Equal(in), "connection %s carries %s into %s", id, out, in)
	m.assertConsistent(out.Equal(dt), "connection %s was created for %s, port now has %s", id, dt, out)

	return out, nil
}

func hasPort(n *node, t domain.PortType, i domain.PortIndex) bool {
	if t != domain.PortIn && t != domain.PortOut {
		return false
	}
	return i >= 0 && int(i) < n.behavior.PortCount(t)
}
