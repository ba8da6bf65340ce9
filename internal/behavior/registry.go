package behavior

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"nodeflow/internal/domain"
)

var (
	// ErrUnknownType is returned for type identifiers nobody registered
	ErrUnknownType = errors.New("unknown node type")

	// ErrAlreadyRegistered is returned when a type identifier is taken
	ErrAlreadyRegistered = errors.New("node type already registered")
)

// TypeInfo describes a registered node type
type TypeInfo struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Converter bool   `json:"converter"`
}

type converterKey struct {
	from string
	to   string
}

// Registry maps type identifiers to behavior factories and records which
// types convert one data type into another.
type Registry struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	categories map[string]string
	converters map[converterKey]string
	isConv     map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories:  make(map[string]Factory),
		categories: make(map[string]string),
		converters: make(map[converterKey]string),
		isConv:     make(map[string]bool),
	}
}

// Register adds a node type
func (r *Registry) Register(typeID, category string, factory Factory) error {
	if typeID == "" {
		return fmt.Errorf("register: empty type identifier")
	}
	if factory == nil {
		return fmt.Errorf("register %s: nil factory", typeID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeID]; exists {
		return fmt.Errorf("register %s: %w", typeID, ErrAlreadyRegistered)
	}

	r.factories[typeID] = factory
	r.categories[typeID] = category
	return nil
}

// RegisterConverter declares typeID as the node type that adapts from into to.
// The type must already be registered.
func (r *Registry) RegisterConverter(from, to domain.DataType, typeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeID]; !exists {
		return fmt.Errorf("register converter %s: %w", typeID, ErrUnknownType)
	}
	if from.Equal(to) {
		return fmt.Errorf("register converter %s: %s converts to itself", typeID, from)
	}

	r.converters[converterKey{from: from.ID, to: to.ID}] = typeID
	r.isConv[typeID] = true
	return nil
}

// Create instantiates a behavior of the given type
func (r *Registry) Create(typeID string) (Behavior, error) {
	r.mu.RLock()
	factory, ok := r.factories[typeID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeID)
	}
	return factory(), nil
}

// Has reports whether a type identifier is registered
func (r *Registry) Has(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeID]
	return ok
}

// Converter returns the node type converting from into to, if any
func (r *Registry) Converter(from, to domain.DataType) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typeID, ok := r.converters[converterKey{from: from.ID, to: to.ID}]
	return typeID, ok
}

// IsConverter reports whether typeID was registered as a converter
func (r *Registry) IsConverter(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isConv[typeID]
}

// TypeIDs returns all registered type identifiers, sorted
func (r *Registry) TypeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Types returns a description of every registered type, sorted by id
func (r *Registry) Types() []TypeInfo {
	ids := r.TypeIDs()

	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]TypeInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, TypeInfo{
			ID:        id,
			Category:  r.categories[id],
			Converter: r.isConv[id],
		})
	}
	return infos
}
