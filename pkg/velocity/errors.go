package velocity

import "errors"

var (
	// ErrInvalidModel reports a construction-time invariant violation:
	// non-positive or non-finite velocities, degenerate grid dimensions,
	// or a non-monotonic depth profile. Models that fail validation are
	// never returned.
	ErrInvalidModel = errors.New("invalid velocity model")

	// ErrOutOfDomain reports a query outside the region a model covers,
	// such as a position beyond the grid bounds or a depth outside a
	// layered profile.
	ErrOutOfDomain = errors.New("position outside model domain")
)
