package eikonal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

// Field is the arrival-time volume produced by one solve: first-arrival
// times in seconds at every grid node for one source. It is immutable
// once returned by the solver and backs travel-time table queries at
// arbitrary positions through trilinear interpolation.
type Field struct {
	idx    velocity.GridIndexer
	source r3.Vec
	times  []float64
}

// Source returns the source position the field was solved for.
func (f *Field) Source() r3.Vec { return f.source }

// Indexer returns the grid geometry of the field.
func (f *Field) Indexer() velocity.GridIndexer { return f.idx }

// Times returns the arrival times in row-major node order as a read-only
// view. Nodes the sweep never accepted hold NaN. Callers must not modify
// the slice.
func (f *Field) Times() []float64 { return f.times }

// At returns the arrival time at a grid node.
func (f *Field) At(ix, iy, iz int) float64 {
	return f.times[f.idx.FlatIndex(ix, iy, iz)]
}

// Interpolate returns the arrival time at an arbitrary position inside
// the grid, trilinearly interpolated over the 8 surrounding nodes.
// Positions outside the grid, or positions whose surrounding nodes were
// never accepted, return velocity.ErrOutOfDomain.
func (f *Field) Interpolate(p r3.Vec) (float64, error) {
	t, err := f.idx.Interpolate(f.times, p)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(t) {
		return math.NaN(), fmt.Errorf("%w: arrival time unknown at (%v, %v, %v)",
			velocity.ErrOutOfDomain, p.X, p.Y, p.Z)
	}
	return t, nil
}

// Gradient returns the spatial gradient of the arrival-time field at an
// arbitrary position, in s/m.
func (f *Field) Gradient(p r3.Vec) (r3.Vec, error) {
	g, err := f.idx.Gradient(f.times, p)
	if err != nil {
		return r3.Vec{}, err
	}
	if math.IsNaN(g.X) || math.IsNaN(g.Y) || math.IsNaN(g.Z) {
		return r3.Vec{}, fmt.Errorf("%w: arrival gradient unknown at (%v, %v, %v)",
			velocity.ErrOutOfDomain, p.X, p.Y, p.Z)
	}
	return g, nil
}

// MaxTime returns the largest known arrival time in the field, ignoring
// unknown nodes.
func (f *Field) MaxTime() float64 {
	maxT := 0.0
	for _, t := range f.times {
		if !math.IsNaN(t) && t > maxT {
			maxT = t
		}
	}
	return maxT
}
