// Package velocity defines the subsurface velocity models used by the
// travel-time tracers. A model describes seismic wave speed as a function
// of position and comes in three variants: a constant velocity, a 1D
// layered depth profile, and a dense 3D grid. All variants validate their
// physical invariants at construction time and are immutable afterwards,
// so a single model instance can be shared across concurrent solves.
package velocity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Phase identifies the seismic phase a velocity value refers to.
type Phase uint8

const (
	// PhaseP is the compressional (primary) wave phase.
	PhaseP Phase = iota

	// PhaseS is the shear (secondary) wave phase.
	PhaseS
)

// String returns the conventional single-letter phase name.
func (p Phase) String() string {
	switch p {
	case PhaseP:
		return "P"
	case PhaseS:
		return "S"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// ParsePhase converts a phase name ("P" or "S") into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "P", "p":
		return PhaseP, nil
	case "S", "s":
		return PhaseS, nil
	}
	return 0, fmt.Errorf("unknown seismic phase %q", s)
}

// Kind tags the closed set of velocity model variants.
type Kind uint8

const (
	// KindConstant is a single scalar velocity per phase.
	KindConstant Kind = iota

	// KindLayered is a 1D velocity-vs-depth profile.
	KindLayered

	// KindGrid3D is a dense volumetric velocity grid.
	KindGrid3D
)

// String returns the config-facing name of the model kind.
func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindLayered:
		return "layered"
	case KindGrid3D:
		return "grid3d"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Model is the closed union of velocity model variants. The concrete types
// are Constant, Layered and Grid3D; callers dispatch on Kind and never see
// additional implementations.
type Model interface {
	// Kind reports which variant this model is.
	Kind() Kind
}

// Constant is a homogeneous velocity model with one scalar velocity per
// seismic phase, in m/s.
type Constant struct {
	vp float64
	vs float64
}

// NewConstant builds a constant velocity model from P and S velocities
// in m/s. Both velocities must be strictly positive and finite.
func NewConstant(vp, vs float64) (*Constant, error) {
	if !isPositiveFinite(vp) {
		return nil, fmt.Errorf("%w: P velocity %v must be positive and finite", ErrInvalidModel, vp)
	}
	if !isPositiveFinite(vs) {
		return nil, fmt.Errorf("%w: S velocity %v must be positive and finite", ErrInvalidModel, vs)
	}
	return &Constant{vp: vp, vs: vs}, nil
}

// Kind reports KindConstant.
func (c *Constant) Kind() Kind { return KindConstant }

// Velocity returns the scalar velocity for the given phase in m/s.
func (c *Constant) Velocity(phase Phase) float64 {
	if phase == PhaseS {
		return c.vs
	}
	return c.vp
}

// Breakpoint is one node of a layered velocity profile: the P and S
// velocities at a given depth. Velocities between breakpoints vary
// linearly with depth.
type Breakpoint struct {
	// Depth below the reference datum in m, positive down.
	Depth float64

	// Vp is the P-wave velocity at this depth in m/s.
	Vp float64

	// Vs is the S-wave velocity at this depth in m/s.
	Vs float64
}

// Layered is a 1D velocity model defined by breakpoints at strictly
// increasing depths. It covers only the depth range spanned by its
// breakpoints; queries outside that range are out of domain.
type Layered struct {
	breakpoints []Breakpoint
	vp          interp.PiecewiseLinear
	vs          interp.PiecewiseLinear
}

// NewLayered builds a layered model from at least two breakpoints with
// strictly increasing depths and strictly positive, finite velocities.
func NewLayered(breakpoints []Breakpoint) (*Layered, error) {
	if len(breakpoints) < 2 {
		return nil, fmt.Errorf("%w: layered model needs at least 2 breakpoints, got %d", ErrInvalidModel, len(breakpoints))
	}

	depths := make([]float64, len(breakpoints))
	vps := make([]float64, len(breakpoints))
	vss := make([]float64, len(breakpoints))
	for i, bp := range breakpoints {
		if math.IsNaN(bp.Depth) || math.IsInf(bp.Depth, 0) {
			return nil, fmt.Errorf("%w: breakpoint %d has non-finite depth %v", ErrInvalidModel, i, bp.Depth)
		}
		if i > 0 && bp.Depth <= breakpoints[i-1].Depth {
			return nil, fmt.Errorf("%w: breakpoint depths must be strictly increasing, got %v after %v",
				ErrInvalidModel, bp.Depth, breakpoints[i-1].Depth)
		}
		if !isPositiveFinite(bp.Vp) {
			return nil, fmt.Errorf("%w: breakpoint %d has P velocity %v, must be positive and finite", ErrInvalidModel, i, bp.Vp)
		}
		if !isPositiveFinite(bp.Vs) {
			return nil, fmt.Errorf("%w: breakpoint %d has S velocity %v, must be positive and finite", ErrInvalidModel, i, bp.Vs)
		}
		depths[i] = bp.Depth
		vps[i] = bp.Vp
		vss[i] = bp.Vs
	}

	m := &Layered{breakpoints: append([]Breakpoint(nil), breakpoints...)}
	if err := m.vp.Fit(depths, vps); err != nil {
		return nil, fmt.Errorf("%w: fitting P profile: %v", ErrInvalidModel, err)
	}
	if err := m.vs.Fit(depths, vss); err != nil {
		return nil, fmt.Errorf("%w: fitting S profile: %v", ErrInvalidModel, err)
	}
	return m, nil
}

// Kind reports KindLayered.
func (l *Layered) Kind() Kind { return KindLayered }

// DepthRange returns the shallowest and deepest depths the profile covers.
func (l *Layered) DepthRange() (min, max float64) {
	return l.breakpoints[0].Depth, l.breakpoints[len(l.breakpoints)-1].Depth
}

// Contains reports whether the given depth lies within the profile.
func (l *Layered) Contains(depth float64) bool {
	min, max := l.DepthRange()
	return depth >= min && depth <= max
}

// VelocityAt returns the velocity at the given depth for the given phase,
// interpolated linearly between breakpoints. Depths outside the profile
// range return ErrOutOfDomain.
func (l *Layered) VelocityAt(depth float64, phase Phase) (float64, error) {
	if !l.Contains(depth) {
		min, max := l.DepthRange()
		return 0, fmt.Errorf("%w: depth %v outside layered model range [%v, %v]", ErrOutOfDomain, depth, min, max)
	}
	if phase == PhaseS {
		return l.vs.Predict(depth), nil
	}
	return l.vp.Predict(depth), nil
}

// Breakpoints returns a copy of the profile's breakpoints, ordered by depth.
func (l *Layered) Breakpoints() []Breakpoint {
	return append([]Breakpoint(nil), l.breakpoints...)
}

// LayerIndex returns the index of the breakpoint interval containing the
// given depth, such that breakpoints[i].Depth <= depth <= breakpoints[i+1].Depth.
func (l *Layered) LayerIndex(depth float64) (int, error) {
	if !l.Contains(depth) {
		return 0, fmt.Errorf("%w: depth %v outside layered model", ErrOutOfDomain, depth)
	}
	i := sort.Search(len(l.breakpoints), func(i int) bool {
		return l.breakpoints[i].Depth > depth
	})
	if i == 0 {
		return 0, nil
	}
	if i >= len(l.breakpoints) {
		return len(l.breakpoints) - 2, nil
	}
	return i - 1, nil
}

// DefaultEarthBreakpoints returns a generic continental crust velocity
// profile down to 45 km depth, usable as a reasonable default when no
// site-specific model is configured.
func DefaultEarthBreakpoints() []Breakpoint {
	return []Breakpoint{
		{Depth: 0, Vp: 5500, Vs: 3590},
		{Depth: 1000, Vp: 6000, Vs: 3920},
		{Depth: 4000, Vp: 6200, Vs: 4050},
		{Depth: 8000, Vp: 6300, Vs: 4120},
		{Depth: 13000, Vp: 6400, Vs: 4180},
		{Depth: 17000, Vp: 6500, Vs: 4250},
		{Depth: 22000, Vp: 6600, Vs: 4310},
		{Depth: 26000, Vp: 6800, Vs: 4440},
		{Depth: 30000, Vp: 8100, Vs: 5290},
		{Depth: 45000, Vp: 8100, Vs: 5290},
	}
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
