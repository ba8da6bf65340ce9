package flow

import "errors"

var (
	// ErrInvalidIndex is returned for a null, foreign or stale NodeIndex
	ErrInvalidIndex = errors.New("invalid node index")

	// ErrPortOutOfRange is returned for a port index the node does not have
	ErrPortOutOfRange = errors.New("port index out of range")

	// ErrTypeMismatch is returned when Out and In data types differ
	ErrTypeMismatch = errors.New("incompatible port data types")

	// ErrPortOccupied is returned when a single-connection port is taken
	ErrPortOccupied = errors.New("port already connected")

	// ErrDuplicateConnection is returned when re-adding an existing connection
	ErrDuplicateConnection = errors.New("connection already exists")

	// ErrConnectionNotFound is returned when no such connection exists
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrConnectionLocked is returned when a locked connection would be removed
	ErrConnectionLocked = errors.New("connection is locked")

	// ErrReentrant is returned for mutations issued from an observer callback
	ErrReentrant = errors.New("model mutated during change notification")

	// ErrCycle is returned by DependencyOrder when connections form a loop
	ErrCycle = errors.New("graph contains a cycle")
)
