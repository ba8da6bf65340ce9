package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nodeflow/internal/behavior"
	"nodeflow/internal/codec"
	"nodeflow/internal/domain"
	"nodeflow/internal/flow"
	"nodeflow/internal/interaction"
	"nodeflow/internal/repository"
	"nodeflow/internal/service"
)

// EditorHandler handles editor API requests
type EditorHandler struct {
	svc    *service.EditorService
	logger *zap.Logger
}

// NewEditorHandler creates a new editor handler
func NewEditorHandler(svc *service.EditorService, logger *zap.Logger) *EditorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditorHandler{svc: svc, logger: logger}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Routes mounts the editor API on r
func (h *EditorHandler) Routes(r chi.Router) {
	r.Get("/types", h.ListTypes)

	r.Route("/scene", func(r chi.Router) {
		r.Get("/", h.GetScene)
		r.Put("/", h.ReplaceScene)
		r.Get("/export", h.ExportScene)
		r.Get("/orphans", h.ListOrphans)
	})

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", h.CreateNode)
		r.Get("/{id}", h.GetNode)
		r.Delete("/{id}", h.DeleteNode)
		r.Put("/{id}/position", h.MoveNode)
		r.Put("/{id}/state", h.SetNodeState)
	})

	r.Route("/connections", func(r chi.Router) {
		r.Post("/", h.CreateConnection)
		r.Delete("/", h.DeleteConnection)
		r.Put("/lock", h.LockConnection)
	})

	r.Post("/connect", h.Connect)

	r.Route("/drags", func(r chi.Router) {
		r.Get("/", h.ListDrags)
		r.Post("/", h.BeginDrag)
		r.Post("/detach", h.DetachConnection)
		r.Put("/{id}", h.MoveDrag)
		r.Post("/{id}/release", h.ReleaseDrag)
		r.Delete("/{id}", h.CancelDrag)
	})

	r.Route("/scenes", func(r chi.Router) {
		r.Get("/", h.ListScenes)
		r.Get("/{name}", h.GetStoredScene)
		r.Put("/{name}", h.SaveScene)
		r.Post("/{name}/load", h.LoadScene)
		r.Delete("/{name}", h.DeleteScene)
	})
}

// ============================================================================
// Scene
// ============================================================================

// ListTypes returns the registered node types
func (h *EditorHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Types(), http.StatusOK)
}

// GetScene returns every node and connection
func (h *EditorHandler) GetScene(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Scene(), http.StatusOK)
}

// ReplaceScene replaces the scene with the posted document
func (h *EditorHandler) ReplaceScene(w http.ResponseWriter, r *http.Request) {
	doc, err := codec.NewJSONCodec().Parse(r.Body)
	if err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := doc.Validate(); err != nil {
		h.writeError(w, "Invalid document", err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.svc.ReplaceDocument(doc)
	if err != nil {
		h.writeServiceError(w, "Failed to load scene", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// ExportScene returns the scene as a document. ?format=yaml selects YAML.
func (h *EditorHandler) ExportScene(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	data, err := codec.Encode(c, h.svc.Document())
	if err != nil {
		h.writeServiceError(w, "Failed to export scene", err)
		return
	}

	contentType := "application/json"
	if c.Format() == "yaml" {
		contentType = "application/x-yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ListOrphans returns converter nodes missing a connection on one side
func (h *EditorHandler) ListOrphans(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Orphans(), http.StatusOK)
}

// ============================================================================
// Nodes
// ============================================================================

// CreateNode creates a new node
func (h *EditorHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.svc.AddNode(req.Type, req.Position.position())
	if err != nil {
		h.writeServiceError(w, "Failed to create node", err)
		return
	}
	if req.State != nil {
		if err := h.svc.SetNodeState(id, req.State); err != nil {
			if rerr := h.svc.RemoveNode(id); rerr != nil {
				h.logger.Warn("failed to remove rejected node", zap.Stringer("node", id), zap.Error(rerr))
			}
			h.writeError(w, "Invalid node state", err.Error(), http.StatusBadRequest)
			return
		}
	}

	view, err := h.svc.Node(id)
	if err != nil {
		h.writeServiceError(w, "Failed to create node", err)
		return
	}
	h.writeJSON(w, view, http.StatusCreated)
}

// GetNode returns a single node
func (h *EditorHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.nodeID(w, r)
	if !ok {
		return
	}

	view, err := h.svc.Node(id)
	if err != nil {
		h.writeServiceError(w, "Failed to get node", err)
		return
	}
	h.writeJSON(w, view, http.StatusOK)
}

// DeleteNode removes a node and its connections
func (h *EditorHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.nodeID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveNode(id); err != nil {
		h.writeServiceError(w, "Failed to delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveNode updates a node position
func (h *EditorHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.nodeID(w, r)
	if !ok {
		return
	}
	var req PositionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.MoveNode(id, req.position()); err != nil {
		h.writeServiceError(w, "Failed to move node", err)
		return
	}
	h.writeJSON(w, req.position(), http.StatusOK)
}

// SetNodeState replaces a node's behavior payload
func (h *EditorHandler) SetNodeState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.nodeID(w, r)
	if !ok {
		return
	}
	var req NodeStateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.SetNodeState(id, req.State); err != nil {
		if errors.Is(err, flow.ErrInvalidIndex) {
			h.writeServiceError(w, "Failed to set node state", err)
			return
		}
		h.writeError(w, "Invalid node state", err.Error(), http.StatusBadRequest)
		return
	}

	view, err := h.svc.Node(id)
	if err != nil {
		h.writeServiceError(w, "Failed to set node state", err)
		return
	}
	h.writeJSON(w, view, http.StatusOK)
}

// ============================================================================
// Connections
// ============================================================================

// CreateConnection adds a direct connection
func (h *EditorHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := req.id()
	if err != nil {
		h.writeError(w, "Invalid connection", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.AddConnection(id); err != nil {
		h.writeServiceError(w, "Failed to create connection", err)
		return
	}
	h.writeJSON(w, id, http.StatusCreated)
}

// DeleteConnection removes a connection
func (h *EditorHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := req.id()
	if err != nil {
		h.writeError(w, "Invalid connection", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.RemoveConnection(id); err != nil {
		h.writeServiceError(w, "Failed to delete connection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockConnection locks or unlocks a connection
func (h *EditorHandler) LockConnection(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := req.id()
	if err != nil {
		h.writeError(w, "Invalid connection", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.SetConnectionLocked(id, req.Locked); err != nil {
		h.writeServiceError(w, "Failed to lock connection", err)
		return
	}
	h.writeJSON(w, map[string]bool{"locked": req.Locked}, http.StatusOK)
}

// Connect commits a connection between two ports, inserting a converter
// when their data types differ
func (h *EditorHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !h.decode(w, r, &req) {
		return
	}
	from, err := req.From.ref()
	if err != nil {
		h.writeError(w, "Invalid port", err.Error(), http.StatusBadRequest)
		return
	}
	to, err := req.To.ref()
	if err != nil {
		h.writeError(w, "Invalid port", err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.svc.Connect(from, to)
	if err != nil && !outcome.Orphan {
		h.writeServiceError(w, "Failed to connect", err)
		return
	}
	h.writeOutcome(w, outcome, err)
}

// ============================================================================
// Drag sessions
// ============================================================================

// ListDrags returns open drag sessions
func (h *EditorHandler) ListDrags(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Sessions(), http.StatusOK)
}

// BeginDrag starts a drag at a port
func (h *EditorHandler) BeginDrag(w http.ResponseWriter, r *http.Request) {
	var req PortRequest
	if !h.decode(w, r, &req) {
		return
	}
	port, err := req.ref()
	if err != nil {
		h.writeError(w, "Invalid port", err.Error(), http.StatusBadRequest)
		return
	}

	view, err := h.svc.BeginDrag(port)
	if err != nil {
		h.writeServiceError(w, "Failed to start drag", err)
		return
	}
	h.writeJSON(w, view, http.StatusCreated)
}

// DetachConnection removes a connection and starts dragging one end
func (h *EditorHandler) DetachConnection(w http.ResponseWriter, r *http.Request) {
	var req DetachRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := req.id()
	if err != nil {
		h.writeError(w, "Invalid connection", err.Error(), http.StatusBadRequest)
		return
	}
	side, err := domain.ParsePortType(req.Side)
	if err != nil {
		h.writeError(w, "Invalid side", err.Error(), http.StatusBadRequest)
		return
	}

	view, err := h.svc.DetachConnection(id, side)
	if err != nil {
		h.writeServiceError(w, "Failed to detach connection", err)
		return
	}
	h.writeJSON(w, view, http.StatusCreated)
}

// MoveDrag moves the free end of a drag
func (h *EditorHandler) MoveDrag(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.svc.DragMove(chi.URLParam(r, "id"), req.position())
	if err != nil {
		h.writeServiceError(w, "Failed to move drag", err)
		return
	}
	h.writeJSON(w, view, http.StatusOK)
}

// ReleaseDrag ends a drag, committing when a compatible port is under the
// release point
func (h *EditorHandler) ReleaseDrag(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !h.decode(w, r, &req) {
		return
	}

	outcome, err := h.svc.DragRelease(chi.URLParam(r, "id"), req.position())
	if err != nil && !outcome.Orphan {
		h.writeServiceError(w, "Failed to release drag", err)
		return
	}
	h.writeOutcome(w, outcome, err)
}

// CancelDrag abandons a drag
func (h *EditorHandler) CancelDrag(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DragCancel(chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to cancel drag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Stored scenes
// ============================================================================

// ListScenes returns stored scenes
func (h *EditorHandler) ListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := h.svc.ListScenes(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list scenes", err)
		return
	}
	if scenes == nil {
		scenes = []repository.SceneInfo{}
	}
	h.writeJSON(w, scenes, http.StatusOK)
}

// GetStoredScene returns a stored document without loading it
func (h *EditorHandler) GetStoredScene(w http.ResponseWriter, r *http.Request) {
	doc, _, err := h.svc.StoredScene(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, "Failed to get scene", err)
		return
	}
	h.writeJSON(w, doc, http.StatusOK)
}

// SaveScene stores the current scene under a name
func (h *EditorHandler) SaveScene(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.SaveScene(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, "Failed to save scene", err)
		return
	}
	h.writeJSON(w, info, http.StatusOK)
}

// LoadScene replaces the current scene with a stored one
func (h *EditorHandler) LoadScene(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.LoadScene(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, "Failed to load scene", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// DeleteScene removes a stored scene
func (h *EditorHandler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteScene(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeServiceError(w, "Failed to delete scene", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

// OutcomeResponse reports a commit, including partial converter wiring
type OutcomeResponse struct {
	interaction.Outcome
	Error string `json:"error,omitempty"`
}

func (h *EditorHandler) writeOutcome(w http.ResponseWriter, outcome interaction.Outcome, err error) {
	resp := OutcomeResponse{Outcome: outcome}
	status := http.StatusOK
	switch {
	case err != nil:
		// converter created but not fully wired
		resp.Error = err.Error()
		status = http.StatusMultiStatus
	case outcome.State == interaction.StateCommitted || outcome.State == interaction.StateConverted:
		status = http.StatusCreated
	}
	h.writeJSON(w, resp, status)
}

func (h *EditorHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		h.writeError(w, "Invalid request body", validationError(err).Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *EditorHandler) nodeID(w http.ResponseWriter, r *http.Request) (domain.NodeID, bool) {
	id, err := domain.ParseNodeID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "Invalid node ID", err.Error(), http.StatusBadRequest)
		return domain.NilNodeID, false
	}
	return id, true
}

// statusFor maps service and model errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, flow.ErrInvalidIndex),
		errors.Is(err, flow.ErrConnectionNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrSceneNotFound):
		return http.StatusNotFound
	case errors.Is(err, behavior.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, flow.ErrPortOccupied),
		errors.Is(err, flow.ErrDuplicateConnection),
		errors.Is(err, flow.ErrConnectionLocked),
		errors.Is(err, flow.ErrReentrant),
		errors.Is(err, interaction.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, flow.ErrTypeMismatch),
		errors.Is(err, flow.ErrPortOutOfRange),
		errors.Is(err, interaction.ErrNoTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *EditorHandler) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	h.writeError(w, message, err.Error(), status)
}

func (h *EditorHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", zap.Error(err))
	}
}

func (h *EditorHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}
