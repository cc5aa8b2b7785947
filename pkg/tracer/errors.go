package tracer

import "errors"

var (
	// ErrUnknownPhase reports a request for a seismic phase the backend
	// has no velocity information for.
	ErrUnknownPhase = errors.New("no velocity model for requested phase")

	// ErrNoGradient reports a gradient query against a table whose
	// backend does not produce travel-time gradients.
	ErrNoGradient = errors.New("travel-time gradients not available")
)
