// Package handler implements the HTTP API over the editor service.
//
// # Handlers
//
// EditorHandler exposes the scene (nodes, connections, drag sessions) and
// the named scene store. Router mounts it under /api together with the SSE
// event stream and the Prometheus endpoint.
//
// # API Design
//
// All handlers follow REST conventions:
// - GET for retrieval
// - POST for creation and interactive commands
// - PUT for updates
// - DELETE for removal
//
// Request bodies are JSON, checked with go-playground/validator before they
// reach the service. Model errors are mapped to status codes with errors.Is:
// unknown nodes and connections are 404, policy conflicts are 409, type and
// port range violations are 422.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure.
package handler
