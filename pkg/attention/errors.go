package attention

import "errors"

var (
	// ErrInvalidInput is returned for non-finite coordinates or durations.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionClosed is returned when a finalized accumulator is mutated
	// without an intervening Reset.
	ErrSessionClosed = errors.New("session closed")
)
