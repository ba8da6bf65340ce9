// Package flow is the authoritative graph model of the editor.
//
// Model exclusively owns nodes and connections. Every other component holds
// only identities (domain.NodeID, domain.ConnectionID) or NodeIndex handles
// and re-resolves them through the model before use.
//
// # Handles
//
// A NodeIndex binds a node identity to its owning model. It is not a cached
// pointer: every model operation looks the identity up in the live set and
// fails with ErrInvalidIndex when the node is gone.
//
// # Mutation
//
// AddNode, RemoveNode, AddConnection, RemoveConnection and MoveNode return an
// error instead of applying a partial change. RemoveNode is the exception:
// it sweeps the node's connections one by one and stops at the first refusal,
// leaving the connections it already removed removed.
//
// # Notifications
//
// Observers receive an Event for every structural change, synchronously and
// in order. Events carry identities only; observers re-query the model. An
// observer must not mutate the model while an event is being delivered. Such
// calls fail with ErrReentrant and should be deferred to the next turn of the
// host's event loop.
//
// # Data propagation
//
// When a behavior reports a new output value, the model pushes it along every
// connection leaving that port. Removing a connection pushes an empty value
// to its In side.
//
// The model is not safe for concurrent use. Hosts that serve several
// goroutines serialize access, see service.EditorService.
package flow
