package tracer

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

func uniformProfile(t *testing.T, vp, vs, maxDepth float64) *velocity.Layered {
	t.Helper()
	model, err := velocity.NewLayered([]velocity.Breakpoint{
		{Depth: 0, Vp: vp, Vs: vs},
		{Depth: maxDepth, Vp: vp, Vs: vs},
	})
	if err != nil {
		t.Fatalf("Failed to build layered model: %v", err)
	}
	return model
}

func TestLayeredMatchesAnalyticOnUniformProfile(t *testing.T) {
	// With a constant profile the first arrival is the straight ray, so
	// the layered backend must reproduce the analytic solution.
	model := uniformProfile(t, 5000, 2890, 10000)
	backend := NewLayered(model, nil)

	source := r3.Vec{X: 0, Y: 0, Z: 1000}
	receivers := []r3.Vec{
		{X: 4000, Y: 0, Z: 3000},
		{X: 0, Y: 2500, Z: 500},
		{X: 3000, Y: 4000, Z: 1000},
		{X: 0, Y: 0, Z: 9000},
	}

	table, err := backend.Compute(source, receivers, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	for i, rec := range receivers {
		got, err := table.Time(i)
		if err != nil {
			t.Fatalf("Time(%d) failed: %v", i, err)
		}
		want := r3.Norm(r3.Sub(rec, source)) / 5000
		if math.Abs(got-want) > want*1e-6 {
			t.Errorf("receiver %d: travel time = %v, want %v", i, got, want)
		}
	}
}

func TestLayeredZeroAtSource(t *testing.T) {
	model := uniformProfile(t, 5000, 2890, 10000)
	backend := NewLayered(model, nil)
	source := r3.Vec{X: 10, Y: 20, Z: 500}

	table, err := backend.Compute(source, []r3.Vec{source}, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if tt, _ := table.Time(0); tt != 0 {
		t.Errorf("travel time at source = %v, want exactly 0", tt)
	}
}

func TestLayeredSymmetry(t *testing.T) {
	model, err := velocity.NewLayered([]velocity.Breakpoint{
		{Depth: 0, Vp: 4000, Vs: 2300},
		{Depth: 2000, Vp: 5500, Vs: 3170},
		{Depth: 8000, Vp: 6500, Vs: 3750},
	})
	if err != nil {
		t.Fatalf("Failed to build layered model: %v", err)
	}
	backend := NewLayered(model, nil)

	a := r3.Vec{X: 0, Y: 0, Z: 500}
	b := r3.Vec{X: 6000, Y: 0, Z: 4000}

	tabAB, err := backend.Compute(a, []r3.Vec{b}, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute(a->b) failed: %v", err)
	}
	tabBA, err := backend.Compute(b, []r3.Vec{a}, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute(b->a) failed: %v", err)
	}
	t1, _ := tabAB.Time(0)
	t2, _ := tabBA.Time(0)
	if math.Abs(t1-t2) > 1e-9*t1 {
		t.Errorf("travel time not symmetric: %v vs %v", t1, t2)
	}
}

func TestLayeredHeadWaveFirstArrival(t *testing.T) {
	// Thin slow layer over a fast halfspace: at long offsets the head
	// wave refracted along the interface beats the direct wave.
	model, err := velocity.NewLayered([]velocity.Breakpoint{
		{Depth: 0, Vp: 3000, Vs: 1730},
		{Depth: 999, Vp: 3000, Vs: 1730},
		{Depth: 1001, Vp: 6000, Vs: 3460},
		{Depth: 8000, Vp: 6000, Vs: 3460},
	})
	if err != nil {
		t.Fatalf("Failed to build layered model: %v", err)
	}
	backend := NewLayered(model, nil)

	source := r3.Vec{Z: 0}
	receiver := r3.Vec{X: 10000, Z: 0}

	table, err := backend.Compute(source, []r3.Vec{receiver}, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	tt, err := table.Time(0)
	if err != nil {
		t.Fatalf("Time(0) failed: %v", err)
	}

	direct := 10000.0 / 3000
	floor := 10000.0 / 6000
	if tt >= direct {
		t.Errorf("first arrival %v not faster than direct wave %v", tt, direct)
	}
	if tt <= floor {
		t.Errorf("first arrival %v faster than refractor allows (%v)", tt, floor)
	}
}

func TestLayeredOutOfDomainReceivers(t *testing.T) {
	model := uniformProfile(t, 5000, 2890, 10000)
	backend := NewLayered(model, nil)

	source := r3.Vec{Z: 1000}
	receivers := []r3.Vec{
		{X: 1000, Z: 2000},
		{X: 1000, Z: -500}, // above the profile
		{X: 1000, Z: 20000}, // below the profile
	}

	table, err := backend.Compute(source, receivers, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if _, err := table.Time(0); err != nil {
		t.Errorf("in-domain receiver failed: %v", err)
	}
	for _, i := range []int{1, 2} {
		if _, err := table.Time(i); !errors.Is(err, velocity.ErrOutOfDomain) {
			t.Errorf("Time(%d) error = %v, want ErrOutOfDomain", i, err)
		}
	}
}

func TestLayeredSourceOutOfDomain(t *testing.T) {
	model := uniformProfile(t, 5000, 2890, 10000)
	backend := NewLayered(model, nil)

	_, err := backend.Compute(r3.Vec{Z: -100}, []r3.Vec{{Z: 1000}}, velocity.PhaseP)
	if !errors.Is(err, velocity.ErrOutOfDomain) {
		t.Errorf("error = %v, want ErrOutOfDomain", err)
	}
}

// countingSolver wraps the built-in solver and counts delegated calls,
// exposing the caching behavior.
type countingSolver struct {
	inner DepthSolver
	calls int
}

func (c *countingSolver) FirstArrival(model *velocity.Layered, phase velocity.Phase, zs, zr, offset float64) (float64, error) {
	c.calls++
	return c.inner.FirstArrival(model, phase, zs, zr, offset)
}

func TestLayeredCachesEqualOffsets(t *testing.T) {
	model := uniformProfile(t, 5000, 2890, 10000)
	counting := &countingSolver{inner: NewDirectSolver()}
	backend := NewLayered(model, counting)

	// Four receivers on a ring share one offset and depth: one solver call.
	source := r3.Vec{Z: 2000}
	receivers := []r3.Vec{
		{X: 3000, Y: 0, Z: 1000},
		{X: -3000, Y: 0, Z: 1000},
		{X: 0, Y: 3000, Z: 1000},
		{X: 0, Y: -3000, Z: 1000},
	}

	if _, err := backend.Compute(source, receivers, velocity.PhaseP); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if counting.calls != 1 {
		t.Errorf("solver called %d times for one distinct offset, want 1", counting.calls)
	}
	if backend.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", backend.CacheSize())
	}

	// A repeat run hits the cache entirely.
	if _, err := backend.Compute(source, receivers, velocity.PhaseP); err != nil {
		t.Fatalf("Repeat compute failed: %v", err)
	}
	if counting.calls != 1 {
		t.Errorf("solver called %d times after repeat, want 1", counting.calls)
	}

	backend.ClearCache()
	if backend.CacheSize() != 0 {
		t.Errorf("CacheSize() after ClearCache = %d, want 0", backend.CacheSize())
	}
}
