package nn

import "errors"

// Contract violation errors. All are surfaced immediately to the caller;
// layers never retry, rebuild, or fall back to a degraded mode.
var (
	// ErrInvalidConfiguration reports a non-positive filter count, kernel
	// size, stride or dilation, or an unrecognized padding mode or data
	// layout. Raised at construction time, before any allocation.
	ErrInvalidConfiguration = errors.New("invalid layer configuration")

	// ErrUnknownActivation reports an activation name that does not resolve
	// to a registered function. Raised at construction time.
	ErrUnknownActivation = errors.New("unknown activation")

	// ErrShapeMismatch reports an input whose rank or channel count
	// disagrees with the layer's built weights. Raised at build/forward time.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidShape reports a computed output extent that is not positive
	// (kernel larger than input under valid padding).
	ErrInvalidShape = errors.New("invalid shape")
)
