package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nodeflow/internal/behavior"
	"nodeflow/internal/codec"
	"nodeflow/internal/domain"
	"nodeflow/internal/flow"
	"nodeflow/internal/interaction"
	"nodeflow/internal/loader"
	"nodeflow/internal/repository"
)

// DefaultDragTimeout bounds how long an abandoned drag session is kept
const DefaultDragTimeout = 5 * time.Minute

// ErrNoStore is returned by scene store operations when none is configured
var ErrNoStore = errors.New("no scene store configured")

// PortView describes one port of a node
type PortView struct {
	Index       domain.PortIndex        `json:"index"`
	DataType    domain.DataType         `json:"data_type"`
	Caption     string                  `json:"caption,omitempty"`
	Policy      domain.ConnectionPolicy `json:"policy"`
	Connections int                     `json:"connections"`
}

// NodeView describes one node for remote views
type NodeView struct {
	ID         domain.NodeID          `json:"id"`
	Type       string                 `json:"type"`
	Caption    string                 `json:"caption"`
	Position   domain.Position        `json:"position"`
	Validation domain.ValidationState `json:"validation"`
	Message    string                 `json:"message,omitempty"`
	State      map[string]any         `json:"state,omitempty"`
	In         []PortView             `json:"in"`
	Out        []PortView             `json:"out"`
}

// ConnectionView describes one connection
type ConnectionView struct {
	domain.ConnectionID
	DataType domain.DataType `json:"data_type"`
	Locked   bool            `json:"locked,omitempty"`
}

// SceneView is the complete observable scene
type SceneView struct {
	Nodes       []NodeView       `json:"nodes"`
	Connections []ConnectionView `json:"connections"`
	Fingerprint string           `json:"fingerprint"`
}

// Option configures an EditorService
type Option func(*EditorService)

// WithStore attaches a named scene store
func WithStore(store repository.SceneStore) Option {
	return func(s *EditorService) { s.store = store }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *EditorService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRestorePolicy sets what cancelling a re-drag does with the detached
// connection
func WithRestorePolicy(p interaction.RestorePolicy) Option {
	return func(s *EditorService) { s.restore = p }
}

// WithDragTimeout sets how long a drag may sit idle before ExpireDrags
// cancels it. Zero disables expiry.
func WithDragTimeout(d time.Duration) Option {
	return func(s *EditorService) { s.dragTimeout = d }
}

// WithGeometry replaces the default box geometry
func WithGeometry(fn func(*flow.Model) interaction.Geometry) Option {
	return func(s *EditorService) { s.newGeometry = fn }
}

// EditorService owns a flow model and serializes all access to it
type EditorService struct {
	mu          sync.Mutex
	model       *flow.Model
	geometry    interaction.Geometry
	newGeometry func(*flow.Model) interaction.Geometry
	store       repository.SceneStore
	eventBus    *EventBus
	logger      *zap.Logger
	restore     interaction.RestorePolicy
	sessions    map[string]*dragSession
	dragTimeout time.Duration
}

// New creates an editor service over an empty model
func New(registry *behavior.Registry, eventBus *EventBus, opts ...Option) *EditorService {
	s := &EditorService{
		eventBus:    eventBus,
		logger:      zap.NewNop(),
		sessions:    make(map[string]*dragSession),
		dragTimeout: DefaultDragTimeout,
		newGeometry: func(m *flow.Model) interaction.Geometry {
			return interaction.NewBoxGeometry(m)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.eventBus == nil {
		s.eventBus = NewEventBus()
	}

	s.model = flow.New(registry, flow.WithLogger(s.logger.Named("flow")))
	s.geometry = s.newGeometry(s.model)
	s.model.Subscribe(flow.ObserverFunc(s.forward))
	return s
}

// forward republishes a model notification on the event bus
func (s *EditorService) forward(e flow.Event) {
	s.eventBus.Publish(Event{Type: EventType(e.Kind), Payload: e})
}

// EventBus returns the bus model notifications are published on
func (s *EditorService) EventBus() *EventBus {
	return s.eventBus
}

// Registry returns the node type registry
func (s *EditorService) Registry() *behavior.Registry {
	return s.model.Registry()
}

// Types lists the registered node types
func (s *EditorService) Types() []behavior.TypeInfo {
	return s.model.Registry().Types()
}

// Do runs fn with exclusive access to the model. fn must not retain the
// model after returning.
func (s *EditorService) Do(fn func(m *flow.Model) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.model)
}

// Scene returns a view of every node and connection
func (s *EditorService) Scene() SceneView {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.model
	view := SceneView{
		Nodes:       make([]NodeView, 0, m.NodeCount()),
		Connections: make([]ConnectionView, 0, m.ConnectionCount()),
		Fingerprint: m.Fingerprint(),
	}
	for _, id := range m.NodeIDs() {
		view.Nodes = append(view.Nodes, nodeView(m, m.NodeIndex(id)))
	}
	for _, id := range m.Connections() {
		dt, _ := m.ConnectionDataType(id)
		view.Connections = append(view.Connections, ConnectionView{
			ConnectionID: id,
			DataType:     dt,
			Locked:       m.IsConnectionLocked(id),
		})
	}
	return view
}

// Node returns the view of one node
func (s *EditorService) Node(id domain.NodeID) (NodeView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.model.NodeIndex(id)
	if !s.model.Alive(idx) {
		return NodeView{}, fmt.Errorf("%w: %s", flow.ErrInvalidIndex, id)
	}
	return nodeView(s.model, idx), nil
}

func nodeView(m *flow.Model, idx flow.NodeIndex) NodeView {
	validation, message := m.NodeValidation(idx)
	return NodeView{
		ID:         idx.ID(),
		Type:       m.NodeTypeIdentifier(idx),
		Caption:    m.NodeCaption(idx),
		Position:   m.NodeLocation(idx),
		Validation: validation,
		Message:    message,
		State:      m.NodeState(idx),
		In:         portViews(m, idx, domain.PortIn),
		Out:        portViews(m, idx, domain.PortOut),
	}
}

func portViews(m *flow.Model, idx flow.NodeIndex, t domain.PortType) []PortView {
	n := m.NodePortCount(idx, t)
	ports := make([]PortView, 0, n)
	for i := 0; i < n; i++ {
		port := domain.PortIndex(i)
		ports = append(ports, PortView{
			Index:       port,
			DataType:    m.NodePortDataType(idx, port, t),
			Caption:     m.NodePortCaption(idx, port, t),
			Policy:      m.NodePortConnectionPolicy(idx, port, t),
			Connections: len(m.NodePortConnections(idx, port, t)),
		})
	}
	return ports
}

// Fingerprint returns the content hash of the current scene
func (s *EditorService) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Fingerprint()
}

// AddNode creates a node of a registered type
func (s *EditorService) AddNode(typeID string, pos domain.Position) (domain.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.AddNode(typeID, pos)
}

// RemoveNode removes a node and every connection touching it
func (s *EditorService) RemoveNode(id domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.RemoveNode(s.model.NodeIndex(id))
}

// MoveNode updates a node position
func (s *EditorService) MoveNode(id domain.NodeID, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.MoveNode(s.model.NodeIndex(id), pos)
}

// SetNodeState restores a behavior payload onto a live node
func (s *EditorService) SetNodeState(id domain.NodeID, state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.RestoreNodeState(s.model.NodeIndex(id), state)
}

// AddConnection adds a direct connection between compatible ports
func (s *EditorService) AddConnection(id domain.ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.AddConnectionByID(id)
}

// RemoveConnection removes a connection
func (s *EditorService) RemoveConnection(id domain.ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.RemoveConnectionByID(id)
}

// SetConnectionLocked locks or unlocks a connection against removal
func (s *EditorService) SetConnectionLocked(id domain.ConnectionID, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.SetConnectionLocked(id, locked)
}

// Connect commits an interactive connection between two ports, inserting a
// converter node when their data types differ and a converter is registered.
// from is the port the drag started at.
func (s *EditorService) Connect(from, to domain.PortRef) (interaction.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session()
	if err := sess.Start(from); err != nil {
		return interaction.Outcome{State: sess.State()}, err
	}
	eval, err := sess.Target(to)
	if err != nil {
		return interaction.Outcome{State: sess.State()}, err
	}
	if !eval.OK {
		return interaction.Outcome{State: interaction.StateCancelled}, eval.Reason
	}

	outcome, err := sess.TryConnect()
	if outcome.Orphan {
		s.logger.Warn("converter left partially wired",
			zap.Stringer("converter", outcome.Converter), zap.Error(err))
	}
	return outcome, err
}

func (s *EditorService) session() *interaction.Session {
	return interaction.NewSession(s.model, s.geometry,
		interaction.WithRestorePolicy(s.restore),
		interaction.WithLogger(s.logger.Named("interaction")),
	)
}

// Orphans lists converter nodes that are missing a connection on one side
func (s *EditorService) Orphans() []domain.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return interaction.Orphans(s.model)
}

// Document exports the current scene
func (s *EditorService) Document() *codec.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return codec.Save(s.model)
}

// ReplaceDocument clears the scene and loads doc into it. Open drag sessions
// are discarded.
func (s *EditorService) ReplaceDocument(doc *codec.Document) (*codec.LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(doc)
}

func (s *EditorService) replace(doc *codec.Document) (*codec.LoadReport, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}

	s.sessions = make(map[string]*dragSession)
	if err := s.model.Clear(); err != nil {
		return nil, fmt.Errorf("failed to clear scene: %w", err)
	}

	report, err := codec.Load(s.model, doc)
	if err != nil {
		return report, err
	}
	if !report.Complete() {
		s.logger.Warn("scene loaded with skips",
			zap.Int("skipped_nodes", len(report.SkippedNodes)),
			zap.Int("skipped_connections", len(report.SkippedConnections)))
	}

	s.eventBus.Publish(Event{Type: EventSceneLoaded, Payload: report})
	return report, nil
}

// LoadFile replaces the scene with the contents of a scene file
func (s *EditorService) LoadFile(path string) (*codec.LoadReport, error) {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	report, err := s.replace(doc)
	if err != nil {
		return report, err
	}
	s.logger.Info("scene loaded from file",
		zap.String("path", path),
		zap.Int("nodes", s.model.NodeCount()),
		zap.Int("connections", s.model.ConnectionCount()))
	return report, nil
}

// SaveFile writes the current scene to a file
func (s *EditorService) SaveFile(path string) error {
	doc := s.Document()
	if err := loader.SaveFile(path, doc); err != nil {
		return err
	}
	s.eventBus.Publish(Event{Type: EventSceneSaved, Payload: map[string]string{"path": path}})
	return nil
}

// SaveScene stores the current scene under name
func (s *EditorService) SaveScene(ctx context.Context, name string) (repository.SceneInfo, error) {
	if s.store == nil {
		return repository.SceneInfo{}, ErrNoStore
	}

	info, err := s.store.SaveScene(ctx, name, s.Document())
	if err != nil {
		return info, err
	}
	s.eventBus.Publish(Event{Type: EventSceneSaved, Payload: info})
	return info, nil
}

// LoadScene replaces the current scene with a stored one
func (s *EditorService) LoadScene(ctx context.Context, name string) (*codec.LoadReport, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}

	doc, _, err := s.store.LoadScene(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.ReplaceDocument(doc)
}

// ListScenes lists stored scenes
func (s *EditorService) ListScenes(ctx context.Context) ([]repository.SceneInfo, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListScenes(ctx)
}

// DeleteScene removes a stored scene
func (s *EditorService) DeleteScene(ctx context.Context, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.DeleteScene(ctx, name)
}

// StoredScene returns a stored scene without loading it
func (s *EditorService) StoredScene(ctx context.Context, name string) (*codec.Document, repository.SceneInfo, error) {
	if s.store == nil {
		return nil, repository.SceneInfo{}, ErrNoStore
	}
	return s.store.LoadScene(ctx, name)
}
