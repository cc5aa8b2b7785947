package tracer

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

// DepthSolver is the contract for an external 1D ray tracing routine. A
// flat layered medium is radially symmetric, so a source-receiver pair is
// fully described by the two depths and their horizontal offset. The
// solver is treated as a black box satisfying only this contract: it
// returns the first-arrival travel time in seconds for the given phase.
type DepthSolver interface {
	FirstArrival(model *velocity.Layered, phase velocity.Phase, sourceDepth, receiverDepth, offset float64) (float64, error)
}

// Layered is the backend for 1D layered velocity models. Its own work is
// geometric: it reduces each 3D source-receiver pair to the (source depth,
// receiver depth, offset) form the 1D solver expects and caches solver
// results under that key, since many receivers recur at equal offsets.
// The cache is unbounded within a run (bounded in practice by the number
// of distinct offsets) and cleared with ClearCache between runs.
type Layered struct {
	model  *velocity.Layered
	solver DepthSolver

	mu    sync.Mutex
	cache map[layeredKey]float64
}

// layeredKey quantizes the radially-symmetric query to millimeters so
// that receivers at numerically equal offsets share one solver call.
type layeredKey struct {
	phase    velocity.Phase
	srcDepth int64
	recDepth int64
	offset   int64
}

func makeLayeredKey(phase velocity.Phase, zs, zr, offset float64) layeredKey {
	const quantum = 1e3 // keys in mm
	return layeredKey{
		phase:    phase,
		srcDepth: int64(math.Round(zs * quantum)),
		recDepth: int64(math.Round(zr * quantum)),
		offset:   int64(math.Round(offset * quantum)),
	}
}

// NewLayered builds the layered-model backend. A nil solver selects the
// built-in direct plus head-wave solver.
func NewLayered(model *velocity.Layered, solver DepthSolver) *Layered {
	if solver == nil {
		solver = NewDirectSolver()
	}
	return &Layered{
		model:  model,
		solver: solver,
		cache:  make(map[layeredKey]float64),
	}
}

// Compute returns first-arrival travel times for all receivers. The
// source depth must lie within the profile; receivers outside the profile
// depth range are marked out of domain individually.
func (l *Layered) Compute(source r3.Vec, receivers []r3.Vec, phase velocity.Phase) (*Table, error) {
	if !l.model.Contains(source.Z) {
		min, max := l.model.DepthRange()
		return nil, fmt.Errorf("%w: source depth %v outside layered model range [%v, %v]",
			velocity.ErrOutOfDomain, source.Z, min, max)
	}

	times := make([]float64, len(receivers))
	for i, rec := range receivers {
		if !l.model.Contains(rec.Z) {
			times[i] = math.NaN()
			continue
		}
		if rec == source {
			times[i] = 0
			continue
		}
		offset := math.Hypot(rec.X-source.X, rec.Y-source.Y)
		tt, err := l.firstArrival(phase, source.Z, rec.Z, offset)
		if err != nil {
			return nil, fmt.Errorf("receiver %d: %w", i, err)
		}
		times[i] = tt
	}
	return NewTable(source, phase, append([]r3.Vec(nil), receivers...), times, nil)
}

func (l *Layered) firstArrival(phase velocity.Phase, zs, zr, offset float64) (float64, error) {
	key := makeLayeredKey(phase, zs, zr, offset)

	l.mu.Lock()
	tt, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return tt, nil
	}

	tt, err := l.solver.FirstArrival(l.model, phase, zs, zr, offset)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.cache[key] = tt
	l.mu.Unlock()
	return tt, nil
}

// ClearCache discards all cached solver results.
func (l *Layered) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[layeredKey]float64)
	l.mu.Unlock()
}

// CacheSize returns the number of cached solver results.
func (l *Layered) CacheSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}
