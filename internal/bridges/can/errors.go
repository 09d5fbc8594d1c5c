package can

import "errors"

// Domain errors for the CAN bridge package.
var (
	// ErrFrameTooShort is returned when a signal's bits extend past the
	// frame payload.
	ErrFrameTooShort = errors.New("can: frame payload too short for signal")

	// ErrInvalidSignalLength is returned for lengths outside 1..64, or float
	// and double signals whose length is not 32 or 64.
	ErrInvalidSignalLength = errors.New("can: invalid signal length")

	// ErrUnknownMessage is returned when no message matches a frame id.
	ErrUnknownMessage = errors.New("can: unknown message id")

	// ErrUnknownMultiplexing is returned for signals whose multiplexing
	// marker cannot be classified.
	ErrUnknownMultiplexing = errors.New("can: unknown multiplexing marker")

	// ErrInvalidFrame is returned when a frame payload cannot be parsed.
	ErrInvalidFrame = errors.New("can: invalid frame")
)
