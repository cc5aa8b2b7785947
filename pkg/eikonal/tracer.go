package eikonal

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/tracer"
	"seistt/pkg/velocity"
)

// Tracer is the fast-marching ray tracer backend. It holds one velocity
// grid per seismic phase and caches the solved arrival-time field per
// (source, phase), since downstream stacking queries the same source
// against many receiver sets.
type Tracer struct {
	grids map[velocity.Phase]*velocity.Grid3D

	mu     sync.Mutex
	fields map[fieldKey]*Field
}

type fieldKey struct {
	phase   velocity.Phase
	x, y, z float64
}

// NewTracer builds a fast-marching backend from per-phase velocity grids.
// At least one phase must be present; phases may use different grids.
func NewTracer(grids map[velocity.Phase]*velocity.Grid3D) (*Tracer, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("%w: fast marching tracer needs at least one phase grid", velocity.ErrInvalidModel)
	}
	copied := make(map[velocity.Phase]*velocity.Grid3D, len(grids))
	for ph, g := range grids {
		if g == nil {
			return nil, fmt.Errorf("%w: nil grid for phase %s", velocity.ErrInvalidModel, ph)
		}
		copied[ph] = g
	}
	return &Tracer{
		grids:  copied,
		fields: make(map[fieldKey]*Field),
	}, nil
}

// Grid returns the velocity grid serving a phase.
func (t *Tracer) Grid(phase velocity.Phase) (*velocity.Grid3D, error) {
	g, ok := t.grids[phase]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tracer.ErrUnknownPhase, phase)
	}
	return g, nil
}

// Volume returns the solved arrival-time field for one source and phase,
// computing and caching it on first use. Concurrent callers racing on an
// uncached source may solve it twice; both solves are deterministic and
// identical, so either result is kept.
func (t *Tracer) Volume(source r3.Vec, phase velocity.Phase) (*Field, error) {
	grid, err := t.Grid(phase)
	if err != nil {
		return nil, err
	}

	key := fieldKey{phase: phase, x: source.X, y: source.Y, z: source.Z}
	t.mu.Lock()
	field, ok := t.fields[key]
	t.mu.Unlock()
	if ok {
		return field, nil
	}

	field, err = NewSolver(grid).Solve(source)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.fields[key] = field
	t.mu.Unlock()
	return field, nil
}

// Compute solves (or reuses) the arrival-time field for the source and
// reads travel times and gradients at every receiver by interpolation.
// Receivers outside the grid are reported per receiver in the table; a
// source outside the grid fails the whole computation.
func (t *Tracer) Compute(source r3.Vec, receivers []r3.Vec, phase velocity.Phase) (*tracer.Table, error) {
	field, err := t.Volume(source, phase)
	if err != nil {
		return nil, err
	}

	times := make([]float64, len(receivers))
	gradients := make([]r3.Vec, len(receivers))
	nan := r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	for i, rec := range receivers {
		if rec == source {
			times[i] = 0
			continue
		}
		tt, err := field.Interpolate(rec)
		if err != nil {
			times[i] = math.NaN()
			gradients[i] = nan
			continue
		}
		times[i] = tt
		g, err := field.Gradient(rec)
		if err != nil {
			gradients[i] = nan
			continue
		}
		gradients[i] = g
	}
	return tracer.NewTable(source, phase, append([]r3.Vec(nil), receivers...), times, gradients)
}

// ClearCache drops all cached arrival-time fields.
func (t *Tracer) ClearCache() {
	t.mu.Lock()
	t.fields = make(map[fieldKey]*Field)
	t.mu.Unlock()
}

// CachedFields returns the number of cached arrival-time fields.
func (t *Tracer) CachedFields() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fields)
}
