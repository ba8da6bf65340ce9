// Package service serializes access to the editor model.
//
// The flow model and interaction sessions are single threaded. EditorService
// owns one model, its geometry and any open drag sessions behind a single
// mutex, so HTTP handlers, the file watcher and the CLI all mutate the scene
// on one logical thread.
//
// # Event System
//
// Model notifications are republished on an EventBus as they happen, inside
// the lock and without blocking. Consumers (the SSE hub, metrics) receive
// them on their own channels. Scene-level events (loaded, saved) and drag
// session updates are published alongside.
//
// # Scenes
//
// A scene can be replaced from a codec document, exported as one, written to
// or read from a file, and saved to or loaded from a repository.SceneStore.
package service
