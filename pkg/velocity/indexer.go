package velocity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// GridIndexer maps continuous 3D positions to and from discrete node
// indices for one grid geometry. It is a pure value type with no mutable
// state, safe to copy and share; it also interpolates any field shaped
// like its grid, which lets the arrival-time solver reuse the same
// geometry for its own output volumes.
type GridIndexer struct {
	origin     r3.Vec
	spacing    r3.Vec
	nx, ny, nz int
}

// Origin returns the position of node (0,0,0).
func (gi GridIndexer) Origin() r3.Vec { return gi.origin }

// Spacing returns the node spacing along each axis in m.
func (gi GridIndexer) Spacing() r3.Vec { return gi.spacing }

// Dims returns the node counts along each axis.
func (gi GridIndexer) Dims() (nx, ny, nz int) { return gi.nx, gi.ny, gi.nz }

// NumNodes returns the total node count.
func (gi GridIndexer) NumNodes() int { return gi.nx * gi.ny * gi.nz }

// FlatIndex converts node coordinates to the row-major flat index with
// iz varying fastest.
func (gi GridIndexer) FlatIndex(ix, iy, iz int) int {
	return (ix*gi.ny+iy)*gi.nz + iz
}

// NodeCoords converts a flat index back to node coordinates.
func (gi GridIndexer) NodeCoords(i int) (ix, iy, iz int) {
	iz = i % gi.nz
	i /= gi.nz
	iy = i % gi.ny
	ix = i / gi.ny
	return ix, iy, iz
}

// Position returns the spatial position of a grid node.
func (gi GridIndexer) Position(ix, iy, iz int) r3.Vec {
	return r3.Vec{
		X: gi.origin.X + float64(ix)*gi.spacing.X,
		Y: gi.origin.Y + float64(iy)*gi.spacing.Y,
		Z: gi.origin.Z + float64(iz)*gi.spacing.Z,
	}
}

// Contains reports whether a position lies within the grid bounds,
// boundary inclusive.
func (gi GridIndexer) Contains(p r3.Vec) bool {
	u := (p.X - gi.origin.X) / gi.spacing.X
	v := (p.Y - gi.origin.Y) / gi.spacing.Y
	w := (p.Z - gi.origin.Z) / gi.spacing.Z
	return u >= 0 && u <= float64(gi.nx-1) &&
		v >= 0 && v <= float64(gi.ny-1) &&
		w >= 0 && w <= float64(gi.nz-1)
}

// Cell locates the grid cell containing a position. It returns the base
// node (lowest corner) of the cell and the fractional offsets of the
// position within the cell, each in [0, 1]. Positions on the maximum face
// of the grid are assigned to the last interior cell with an offset of 1.
// Positions outside the grid return ErrOutOfDomain.
func (gi GridIndexer) Cell(p r3.Vec) (ix, iy, iz int, fx, fy, fz float64, err error) {
	if !gi.Contains(p) {
		return 0, 0, 0, 0, 0, 0, fmt.Errorf("%w: position (%v, %v, %v) outside grid bounds",
			ErrOutOfDomain, p.X, p.Y, p.Z)
	}
	ix, fx = cellAxis((p.X-gi.origin.X)/gi.spacing.X, gi.nx)
	iy, fy = cellAxis((p.Y-gi.origin.Y)/gi.spacing.Y, gi.ny)
	iz, fz = cellAxis((p.Z-gi.origin.Z)/gi.spacing.Z, gi.nz)
	return ix, iy, iz, fx, fy, fz, nil
}

func cellAxis(u float64, n int) (int, float64) {
	i := int(math.Floor(u))
	if i > n-2 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return i, u - float64(i)
}

// NearestNode returns the node coordinates closest to a position, or
// ErrOutOfDomain if the position lies outside the grid.
func (gi GridIndexer) NearestNode(p r3.Vec) (ix, iy, iz int, err error) {
	cx, cy, cz, fx, fy, fz, err := gi.Cell(p)
	if err != nil {
		return 0, 0, 0, err
	}
	if fx >= 0.5 {
		cx++
	}
	if fy >= 0.5 {
		cy++
	}
	if fz >= 0.5 {
		cz++
	}
	return cx, cy, cz, nil
}

// Interpolate evaluates a grid-shaped scalar field at an arbitrary
// position by trilinear interpolation over the 8 surrounding nodes. The
// field must have exactly NumNodes values in row-major order. NaN values
// among the contributing nodes propagate to the result.
func (gi GridIndexer) Interpolate(field []float64, p r3.Vec) (float64, error) {
	ix, iy, iz, fx, fy, fz, err := gi.Cell(p)
	if err != nil {
		return math.NaN(), err
	}

	c000 := field[gi.FlatIndex(ix, iy, iz)]
	c001 := field[gi.FlatIndex(ix, iy, iz+1)]
	c010 := field[gi.FlatIndex(ix, iy+1, iz)]
	c011 := field[gi.FlatIndex(ix, iy+1, iz+1)]
	c100 := field[gi.FlatIndex(ix+1, iy, iz)]
	c101 := field[gi.FlatIndex(ix+1, iy, iz+1)]
	c110 := field[gi.FlatIndex(ix+1, iy+1, iz)]
	c111 := field[gi.FlatIndex(ix+1, iy+1, iz+1)]

	c00 := c000*(1-fz) + c001*fz
	c01 := c010*(1-fz) + c011*fz
	c10 := c100*(1-fz) + c101*fz
	c11 := c110*(1-fz) + c111*fz

	c0 := c00*(1-fy) + c01*fy
	c1 := c10*(1-fy) + c11*fy

	return c0*(1-fx) + c1*fx, nil
}

// Gradient evaluates the spatial gradient of a grid-shaped scalar field
// at an arbitrary position. The gradient is the exact derivative of the
// trilinear interpolant within the containing cell, so it is consistent
// with Interpolate and deterministic. NaN values among the contributing
// nodes propagate to the result.
func (gi GridIndexer) Gradient(field []float64, p r3.Vec) (r3.Vec, error) {
	ix, iy, iz, fx, fy, fz, err := gi.Cell(p)
	if err != nil {
		return r3.Vec{}, err
	}

	c000 := field[gi.FlatIndex(ix, iy, iz)]
	c001 := field[gi.FlatIndex(ix, iy, iz+1)]
	c010 := field[gi.FlatIndex(ix, iy+1, iz)]
	c011 := field[gi.FlatIndex(ix, iy+1, iz+1)]
	c100 := field[gi.FlatIndex(ix+1, iy, iz)]
	c101 := field[gi.FlatIndex(ix+1, iy, iz+1)]
	c110 := field[gi.FlatIndex(ix+1, iy+1, iz)]
	c111 := field[gi.FlatIndex(ix+1, iy+1, iz+1)]

	// d/dx: difference along x of the bilinear interpolant in (y, z).
	dx := (c100-c000)*(1-fy)*(1-fz) +
		(c101-c001)*(1-fy)*fz +
		(c110-c010)*fy*(1-fz) +
		(c111-c011)*fy*fz

	dy := (c010-c000)*(1-fx)*(1-fz) +
		(c011-c001)*(1-fx)*fz +
		(c110-c100)*fx*(1-fz) +
		(c111-c101)*fx*fz

	dz := (c001-c000)*(1-fx)*(1-fy) +
		(c011-c010)*(1-fx)*fy +
		(c101-c100)*fx*(1-fy) +
		(c111-c110)*fx*fy

	return r3.Vec{
		X: dx / gi.spacing.X,
		Y: dy / gi.spacing.Y,
		Z: dz / gi.spacing.Z,
	}, nil
}
