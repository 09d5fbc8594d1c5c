package journal

import "errors"

// Domain-specific errors for journal parsing and replay.
var (
	// ErrUnknownOp is returned when an event names an operation the builder
	// does not have.
	ErrUnknownOp = errors.New("journal: unknown op")

	// ErrMissingField is returned when an event lacks a field its op needs.
	ErrMissingField = errors.New("journal: missing field")

	// ErrInvalidMessageID is returned when a message id is not a 32-bit
	// decimal or 0x-prefixed hex number.
	ErrInvalidMessageID = errors.New("journal: invalid message id")

	// ErrInvalidByteOrder is returned for byte orders other than intel or
	// motorola.
	ErrInvalidByteOrder = errors.New("journal: invalid byte order")
)
