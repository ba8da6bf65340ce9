package repository

import (
	"context"
	"errors"
	"time"

	"nodeflow/internal/codec"
)

// ErrSceneNotFound is returned when no scene is stored under a name
var ErrSceneNotFound = errors.New("scene not found")

// ErrCorrupt is returned when a stored scene fails its content check
var ErrCorrupt = errors.New("stored scene is corrupt")

// SceneInfo describes a stored scene without its content
type SceneInfo struct {
	Name        string    `json:"name"`
	Hash        string    `json:"hash"`
	Nodes       int       `json:"nodes"`
	Connections int       `json:"connections"`
	Size        int       `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SceneStore defines the interface for named scene persistence
type SceneStore interface {
	// SaveScene stores doc under name, replacing any previous version
	SaveScene(ctx context.Context, name string, doc *codec.Document) (SceneInfo, error)

	// LoadScene returns the document stored under name
	LoadScene(ctx context.Context, name string) (*codec.Document, SceneInfo, error)

	// ListScenes returns all stored scenes ordered by name
	ListScenes(ctx context.Context) ([]SceneInfo, error)

	// DeleteScene removes a stored scene
	DeleteScene(ctx context.Context, name string) error

	// Close releases resources
	Close() error
}
