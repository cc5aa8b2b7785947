// Package eikonal solves the eikonal equation |grad T(x)| = 1/v(x) on a
// 3D velocity grid with the fast marching method, producing the
// first-arrival travel-time field from a point source to every grid node.
// The method accepts nodes in order of increasing arrival time, which
// mirrors the one-directional causality of an expanding wavefront: a
// node's true arrival time never depends on a node with a larger one.
package eikonal

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

// Node states of the fast marching sweep. Every node moves monotonically
// Far -> Considered -> Accepted; Accepted times never change.
const (
	stateFar uint8 = iota
	stateConsidered
	stateAccepted
)

// Solver computes arrival-time fields over one velocity grid. It owns a
// private arrival-time array, state array and priority queue that are
// reset on every Solve, so one Solver instance must not be shared between
// concurrent solves; the grid itself is read-only and safely shared.
type Solver struct {
	grid  *velocity.Grid3D
	idx   velocity.GridIndexer
	times []float64
	state []uint8
	queue *nodeHeap

	// onAccept, when set, observes every node acceptance in order.
	onAccept func(node int, t float64)
}

// NewSolver builds a solver for the given velocity grid, allocating its
// working arrays once for reuse across solves.
func NewSolver(grid *velocity.Grid3D) *Solver {
	n := grid.NumNodes()
	return &Solver{
		grid:  grid,
		idx:   grid.Indexer(),
		times: make([]float64, n),
		state: make([]uint8, n),
	}
}

// Solve computes the first-arrival field for one source position inside
// the grid. Given identical inputs the result is bit-for-bit reproducible:
// ties in the queue pop in insertion order and the local update uses a
// fixed branch-selection rule.
func (s *Solver) Solve(source r3.Vec) (*Field, error) {
	for i := range s.times {
		s.times[i] = math.Inf(1)
		s.state[i] = stateFar
	}
	s.queue = newNodeHeap(len(s.times))

	if err := s.seed(source); err != nil {
		return nil, err
	}

	for !s.queue.empty() {
		node, t := s.queue.popMin()
		s.state[node] = stateAccepted
		s.times[node] = t
		if s.onAccept != nil {
			s.onAccept(node, t)
		}
		s.relaxNeighbors(node)
	}

	out := make([]float64, len(s.times))
	for i, t := range s.times {
		if s.state[i] == stateAccepted {
			out[i] = t
		} else {
			out[i] = math.NaN()
		}
	}
	return &Field{idx: s.idx, source: source, times: out}, nil
}

// seed marks all corner nodes of the cell containing the source as
// Considered with first-order times distance/velocity. Seeding the whole
// cell rather than snapping to the nearest node avoids a position
// dependent bias for off-node sources; a source exactly on a node gets
// exactly zero there.
func (s *Solver) seed(source r3.Vec) error {
	ix, iy, iz, _, _, _, err := s.idx.Cell(source)
	if err != nil {
		return err
	}
	for dx := 0; dx <= 1; dx++ {
		for dy := 0; dy <= 1; dy++ {
			for dz := 0; dz <= 1; dz++ {
				node := s.idx.FlatIndex(ix+dx, iy+dy, iz+dz)
				dist := r3.Norm(r3.Sub(s.idx.Position(ix+dx, iy+dy, iz+dz), source))
				t := dist / s.grid.AtIndex(node)
				s.times[node] = t
				s.state[node] = stateConsidered
				s.queue.insert(node, t)
			}
		}
	}
	return nil
}

// relaxNeighbors recomputes tentative times for the 6-neighbors of a
// freshly accepted node, inserting or decrease-keying them as needed.
func (s *Solver) relaxNeighbors(node int) {
	ix, iy, iz := s.idx.NodeCoords(node)
	nx, ny, nz := s.idx.Dims()

	visit := func(jx, jy, jz int) {
		nb := s.idx.FlatIndex(jx, jy, jz)
		if s.state[nb] == stateAccepted {
			return
		}
		cand := s.updateTime(jx, jy, jz)
		if cand >= s.times[nb] {
			return
		}
		s.times[nb] = cand
		if s.state[nb] == stateFar {
			s.state[nb] = stateConsidered
			s.queue.insert(nb, cand)
		} else {
			s.queue.decrease(nb, cand)
		}
	}

	if ix > 0 {
		visit(ix-1, iy, iz)
	}
	if ix < nx-1 {
		visit(ix+1, iy, iz)
	}
	if iy > 0 {
		visit(ix, iy-1, iz)
	}
	if iy < ny-1 {
		visit(ix, iy+1, iz)
	}
	if iz > 0 {
		visit(ix, iy, iz-1)
	}
	if iz < nz-1 {
		visit(ix, iy, iz+1)
	}
}

// updateTime solves the local upwind finite-difference update for one
// node: the quadratic in the unknown time T built from the minimum
// Accepted neighbor along each axis,
//
//	sum_i ((T - a_i)/h_i)^2 = 1/v^2,
//
// taking the larger root, which is the physically valid branch consistent
// with causality. If the root falls below a contributing neighbor time
// (no valid root under extreme velocity contrast), the slowest axis is
// dropped and the quadratic re-solved, degenerating to the first-order
// one-sided difference T = a + h/v when only one axis remains. Boundary
// nodes naturally use one-sided differences only. Returns +Inf when no
// Accepted neighbor exists on any axis.
func (s *Solver) updateTime(ix, iy, iz int) float64 {
	nx, ny, nz := s.idx.Dims()
	spacing := s.idx.Spacing()

	var a, h [3]float64
	n := 0

	addAxis := func(t, step float64) {
		// Insertion sort keeps contributions ordered by time, axis
		// order breaking exact ties, so branch selection is fixed.
		i := n
		for i > 0 && a[i-1] > t {
			a[i], h[i] = a[i-1], h[i-1]
			i--
		}
		a[i], h[i] = t, step
		n++
	}

	axisMin := func(lo, hi int, loOK, hiOK bool) (float64, bool) {
		t := math.Inf(1)
		ok := false
		if loOK && s.state[lo] == stateAccepted {
			t = s.times[lo]
			ok = true
		}
		if hiOK && s.state[hi] == stateAccepted && s.times[hi] < t {
			t = s.times[hi]
			ok = true
		}
		return t, ok
	}

	if t, ok := axisMin(s.idx.FlatIndex(max(ix-1, 0), iy, iz), s.idx.FlatIndex(min(ix+1, nx-1), iy, iz), ix > 0, ix < nx-1); ok {
		addAxis(t, spacing.X)
	}
	if t, ok := axisMin(s.idx.FlatIndex(ix, max(iy-1, 0), iz), s.idx.FlatIndex(ix, min(iy+1, ny-1), iz), iy > 0, iy < ny-1); ok {
		addAxis(t, spacing.Y)
	}
	if t, ok := axisMin(s.idx.FlatIndex(ix, iy, max(iz-1, 0)), s.idx.FlatIndex(ix, iy, min(iz+1, nz-1)), iz > 0, iz < nz-1); ok {
		addAxis(t, spacing.Z)
	}

	if n == 0 {
		return math.Inf(1)
	}

	slowness := 1 / s.grid.At(ix, iy, iz)
	for m := n; m >= 2; m-- {
		var sumA, sumB, sumC float64
		for i := 0; i < m; i++ {
			w := 1 / (h[i] * h[i])
			sumA += w
			sumB += a[i] * w
			sumC += a[i] * a[i] * w
		}
		sumC -= slowness * slowness
		disc := sumB*sumB - sumA*sumC
		if disc < 0 {
			continue
		}
		t := (sumB + math.Sqrt(disc)) / sumA
		if t >= a[m-1] {
			return t
		}
	}
	return a[0] + h[0]*slowness
}

// Grid returns the velocity grid the solver operates on.
func (s *Solver) Grid() *velocity.Grid3D { return s.grid }
