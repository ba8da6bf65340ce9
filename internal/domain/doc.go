// Package domain defines the core value types for the nodeflow graph editor.
//
// This package contains the identifiers and small value objects shared by the
// graph model, the connection interaction protocol, and the persistence codec.
// It has no knowledge of node behaviors or of any view.
//
// # Core Types
//
// NodeID is the stable identity of a node. It is minted once when the node is
// created and never reused.
//
// PortType and PortIndex address a port on a node. Together with a NodeID they
// form a PortRef.
//
// ConnectionID names a connection by its two endpoints. Left is always the
// Out side and Right the In side.
//
// DataType tags the data flowing through a port. Two ports are compatible
// when their data types share the same ID.
//
// ConnectionPolicy states whether a port accepts one or many connections.
//
// # Design Principles
//
// - Immutable value objects, comparable with ==
// - No dependency on the model, behaviors, or rendering
package domain
