package eikonal

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/tracer"
	"seistt/pkg/velocity"
)

func phaseGrids(t *testing.T) map[velocity.Phase]*velocity.Grid3D {
	t.Helper()
	return map[velocity.Phase]*velocity.Grid3D{
		velocity.PhaseP: uniformGrid(t, r3.Vec{}, 100, 21, 21, 21, 5000),
	}
}

func TestTracerValidation(t *testing.T) {
	if _, err := NewTracer(nil); !errors.Is(err, velocity.ErrInvalidModel) {
		t.Errorf("NewTracer(nil) error = %v, want ErrInvalidModel", err)
	}
	if _, err := NewTracer(map[velocity.Phase]*velocity.Grid3D{velocity.PhaseP: nil}); !errors.Is(err, velocity.ErrInvalidModel) {
		t.Errorf("NewTracer with nil grid error = %v, want ErrInvalidModel", err)
	}
}

func TestTracerUnknownPhase(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	_, err = tr.Compute(r3.Vec{X: 1000, Y: 1000, Z: 1000}, []r3.Vec{{X: 500, Y: 500, Z: 500}}, velocity.PhaseS)
	if !errors.Is(err, tracer.ErrUnknownPhase) {
		t.Errorf("error = %v, want ErrUnknownPhase", err)
	}
}

func TestTracerComputeMatchesAnalytic(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	source := r3.Vec{X: 1000, Y: 1000, Z: 1000}
	receivers := []r3.Vec{
		{X: 1800, Y: 1000, Z: 1000},
		{X: 1000, Y: 1900, Z: 1000},
		{X: 1000, Y: 1000, Z: 200},
	}

	table, err := tr.Compute(source, receivers, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	for i, rec := range receivers {
		got, err := table.Time(i)
		if err != nil {
			t.Fatalf("Time(%d) failed: %v", i, err)
		}
		want := r3.Norm(r3.Sub(rec, source)) / 5000
		if math.Abs(got-want) > want*0.01 {
			t.Errorf("receiver %d: travel time = %v, want %v within 1%%", i, got, want)
		}
	}
}

func TestTracerZeroAtCoincidentReceiver(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	source := r3.Vec{X: 950, Y: 1050, Z: 1000} // off-node on purpose
	table, err := tr.Compute(source, []r3.Vec{source}, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if tt, _ := table.Time(0); tt != 0 {
		t.Errorf("travel time at source = %v, want exactly 0", tt)
	}
}

func TestTracerOutOfDomainReceiver(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	source := r3.Vec{X: 1000, Y: 1000, Z: 1000}
	receivers := []r3.Vec{
		{X: 1500, Y: 1000, Z: 1000},
		{X: 99999, Y: 1000, Z: 1000}, // outside the grid
	}

	table, err := tr.Compute(source, receivers, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if _, err := table.Time(0); err != nil {
		t.Errorf("in-domain receiver failed: %v", err)
	}
	if _, err := table.Time(1); !errors.Is(err, velocity.ErrOutOfDomain) {
		t.Errorf("Time(1) error = %v, want ErrOutOfDomain", err)
	}
}

func TestTracerSourceOutOfDomain(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	_, err = tr.Compute(r3.Vec{X: -5000}, []r3.Vec{{X: 1000, Y: 1000, Z: 1000}}, velocity.PhaseP)
	if !errors.Is(err, velocity.ErrOutOfDomain) {
		t.Errorf("error = %v, want ErrOutOfDomain", err)
	}
}

func TestTracerGradients(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	source := r3.Vec{X: 1000, Y: 1000, Z: 1000}
	table, err := tr.Compute(source, []r3.Vec{{X: 1850, Y: 1000, Z: 1000}}, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !table.HasGradients() {
		t.Fatal("fast marching tracer should produce gradients")
	}
	g, err := table.Gradient(0)
	if err != nil {
		t.Fatalf("Gradient(0) failed: %v", err)
	}
	if g.X <= 0 {
		t.Errorf("gradient X = %v, want positive away from the source", g.X)
	}
	if norm := r3.Norm(g); math.Abs(norm-1.0/5000) > 0.15/5000 {
		t.Errorf("|Gradient| = %v, want about %v", norm, 1.0/5000)
	}
}

func TestTracerFieldCache(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	source := r3.Vec{X: 1000, Y: 1000, Z: 1000}
	receivers := []r3.Vec{{X: 1500, Y: 1000, Z: 1000}}

	if _, err := tr.Compute(source, receivers, velocity.PhaseP); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := tr.CachedFields(); got != 1 {
		t.Errorf("CachedFields() = %d, want 1", got)
	}

	// Same source: the cached field serves the second receiver set too.
	if _, err := tr.Compute(source, []r3.Vec{{X: 1000, Y: 1600, Z: 1000}}, velocity.PhaseP); err != nil {
		t.Fatalf("Second compute failed: %v", err)
	}
	if got := tr.CachedFields(); got != 1 {
		t.Errorf("CachedFields() after same-source compute = %d, want 1", got)
	}

	// New source: one more field.
	if _, err := tr.Compute(r3.Vec{X: 500, Y: 500, Z: 500}, receivers, velocity.PhaseP); err != nil {
		t.Fatalf("Third compute failed: %v", err)
	}
	if got := tr.CachedFields(); got != 2 {
		t.Errorf("CachedFields() after new source = %d, want 2", got)
	}

	tr.ClearCache()
	if got := tr.CachedFields(); got != 0 {
		t.Errorf("CachedFields() after ClearCache = %d, want 0", got)
	}
}

func TestTracerVolumeReuse(t *testing.T) {
	tr, err := NewTracer(phaseGrids(t))
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	source := r3.Vec{X: 1000, Y: 1000, Z: 1000}

	f1, err := tr.Volume(source, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	f2, err := tr.Volume(source, velocity.PhaseP)
	if err != nil {
		t.Fatalf("Second Volume failed: %v", err)
	}
	if f1 != f2 {
		t.Error("repeated Volume calls should return the cached field")
	}
}
