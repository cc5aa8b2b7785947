package velocity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Grid3D is a dense volumetric velocity model on a regular grid. Values
// are stored row-major by (ix, iy, iz) with iz varying fastest. The grid
// is validated on construction and immutable afterwards.
type Grid3D struct {
	origin  r3.Vec
	spacing r3.Vec
	nx      int
	ny      int
	nz      int
	values  []float64
}

// NewGrid3D builds a 3D velocity grid. The origin is the position of node
// (0,0,0); spacing components must be strictly positive and finite; every
// axis must have at least 2 nodes so interpolation and finite-difference
// stencils are defined; values must hold exactly nx*ny*nz strictly
// positive, finite velocities in m/s. The values slice is copied.
func NewGrid3D(origin, spacing r3.Vec, nx, ny, nz int, values []float64) (*Grid3D, error) {
	if nx < 2 || ny < 2 || nz < 2 {
		return nil, fmt.Errorf("%w: grid dimensions (%d,%d,%d) must be at least 2 on every axis",
			ErrInvalidModel, nx, ny, nz)
	}
	for axis, h := range []float64{spacing.X, spacing.Y, spacing.Z} {
		if !isPositiveFinite(h) {
			return nil, fmt.Errorf("%w: grid spacing %v on axis %d must be positive and finite",
				ErrInvalidModel, h, axis)
		}
	}
	if len(values) != nx*ny*nz {
		return nil, fmt.Errorf("%w: got %d velocity values for %dx%dx%d grid, want %d",
			ErrInvalidModel, len(values), nx, ny, nz, nx*ny*nz)
	}
	for i, v := range values {
		if !isPositiveFinite(v) {
			return nil, fmt.Errorf("%w: velocity value %v at flat index %d must be positive and finite",
				ErrInvalidModel, v, i)
		}
	}
	return &Grid3D{
		origin:  origin,
		spacing: spacing,
		nx:      nx, ny: ny, nz: nz,
		values: append([]float64(nil), values...),
	}, nil
}

// NewUniformGrid3D builds a grid filled with a single velocity. Used to
// validate grid-based tracers against the analytic constant-velocity case.
func NewUniformGrid3D(origin, spacing r3.Vec, nx, ny, nz int, v float64) (*Grid3D, error) {
	if !isPositiveFinite(v) {
		return nil, fmt.Errorf("%w: velocity %v must be positive and finite", ErrInvalidModel, v)
	}
	values := make([]float64, nx*ny*nz)
	for i := range values {
		values[i] = v
	}
	return NewGrid3D(origin, spacing, nx, ny, nz, values)
}

// RasterizeLayered samples a layered profile onto a 3D grid so that grid
// based solvers can run on 1D models. The grid's Z axis is depth, positive
// down, anchored at origin.Z. Depths outside the profile are clamped to
// its endpoints.
func RasterizeLayered(l *Layered, origin, spacing r3.Vec, nx, ny, nz int, phase Phase) (*Grid3D, error) {
	if nx < 2 || ny < 2 || nz < 2 {
		return nil, fmt.Errorf("%w: grid dimensions (%d,%d,%d) must be at least 2 on every axis",
			ErrInvalidModel, nx, ny, nz)
	}
	minDepth, maxDepth := l.DepthRange()
	column := make([]float64, nz)
	for iz := range column {
		depth := origin.Z + float64(iz)*spacing.Z
		depth = math.Max(minDepth, math.Min(maxDepth, depth))
		v, err := l.VelocityAt(depth, phase)
		if err != nil {
			return nil, err
		}
		column[iz] = v
	}

	values := make([]float64, nx*ny*nz)
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			base := (ix*ny + iy) * nz
			copy(values[base:base+nz], column)
		}
	}
	return NewGrid3D(origin, spacing, nx, ny, nz, values)
}

// Kind reports KindGrid3D.
func (g *Grid3D) Kind() Kind { return KindGrid3D }

// Origin returns the position of grid node (0,0,0).
func (g *Grid3D) Origin() r3.Vec { return g.origin }

// Spacing returns the node spacing along each axis in m.
func (g *Grid3D) Spacing() r3.Vec { return g.spacing }

// Dims returns the node counts along each axis.
func (g *Grid3D) Dims() (nx, ny, nz int) { return g.nx, g.ny, g.nz }

// NumNodes returns the total node count.
func (g *Grid3D) NumNodes() int { return g.nx * g.ny * g.nz }

// At returns the velocity at grid node (ix, iy, iz). Indices must be in
// range; this is the hot path and performs no bounds checking beyond the
// slice access itself.
func (g *Grid3D) At(ix, iy, iz int) float64 {
	return g.values[(ix*g.ny+iy)*g.nz+iz]
}

// AtIndex returns the velocity at a flat row-major node index.
func (g *Grid3D) AtIndex(i int) float64 { return g.values[i] }

// Values returns the grid's velocity values as a read-only view in
// row-major (ix, iy, iz) order. Callers must not modify the slice.
func (g *Grid3D) Values() []float64 { return g.values }

// MinVelocity returns the smallest velocity in the grid.
func (g *Grid3D) MinVelocity() float64 { return floats.Min(g.values) }

// MaxVelocity returns the largest velocity in the grid.
func (g *Grid3D) MaxVelocity() float64 { return floats.Max(g.values) }

// Indexer returns the coordinate mapper bound to this grid's geometry.
func (g *Grid3D) Indexer() GridIndexer {
	return GridIndexer{
		origin:  g.origin,
		spacing: g.spacing,
		nx:      g.nx, ny: g.ny, nz: g.nz,
	}
}

// VelocityAtPosition returns the trilinearly interpolated velocity at an
// arbitrary position inside the grid.
func (g *Grid3D) VelocityAtPosition(p r3.Vec) (float64, error) {
	return g.Indexer().Interpolate(g.values, p)
}
