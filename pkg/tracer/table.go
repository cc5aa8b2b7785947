package tracer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

// Table is a travel-time lookup table for one fixed source: the result of
// one backend computation over an ordered set of receivers. It is
// immutable after construction and safe to share across goroutines.
//
// Receivers that could not be timed (outside the model domain) carry a NaN
// sentinel internally; Time and Gradient surface those entries as
// velocity.ErrOutOfDomain so callers can skip individual receivers without
// losing the rest of the table.
type Table struct {
	source    r3.Vec
	phase     velocity.Phase
	receivers []r3.Vec
	times     []float64
	gradients []r3.Vec
}

// NewTable assembles a travel-time table. The receivers and times slices
// must have equal length; gradients may be nil when the backend does not
// produce them. Ownership of all slices passes to the table.
func NewTable(source r3.Vec, phase velocity.Phase, receivers []r3.Vec, times []float64, gradients []r3.Vec) (*Table, error) {
	if len(times) != len(receivers) {
		return nil, fmt.Errorf("table has %d times for %d receivers", len(times), len(receivers))
	}
	if gradients != nil && len(gradients) != len(receivers) {
		return nil, fmt.Errorf("table has %d gradients for %d receivers", len(gradients), len(receivers))
	}
	return &Table{
		source:    source,
		phase:     phase,
		receivers: receivers,
		times:     times,
		gradients: gradients,
	}, nil
}

// Source returns the source position the table was computed for.
func (t *Table) Source() r3.Vec { return t.source }

// Phase returns the seismic phase the table was computed for.
func (t *Table) Phase() velocity.Phase { return t.phase }

// Len returns the number of receivers in the table.
func (t *Table) Len() int { return len(t.receivers) }

// Receiver returns the position of the i-th receiver.
func (t *Table) Receiver(i int) r3.Vec { return t.receivers[i] }

// Time returns the first-arrival travel time in seconds for the i-th
// receiver. Receivers outside the model domain return ErrOutOfDomain.
func (t *Table) Time(i int) (float64, error) {
	tt := t.times[i]
	if math.IsNaN(tt) {
		return math.NaN(), fmt.Errorf("%w: receiver %d", velocity.ErrOutOfDomain, i)
	}
	return tt, nil
}

// Gradient returns the spatial gradient of travel time with respect to
// the i-th receiver position, in s/m. Backends that do not compute
// gradients return ErrNoGradient.
func (t *Table) Gradient(i int) (r3.Vec, error) {
	if t.gradients == nil {
		return r3.Vec{}, ErrNoGradient
	}
	g := t.gradients[i]
	if math.IsNaN(g.X) || math.IsNaN(g.Y) || math.IsNaN(g.Z) {
		return r3.Vec{}, fmt.Errorf("%w: receiver %d", velocity.ErrOutOfDomain, i)
	}
	return g, nil
}

// HasGradients reports whether the producing backend computed gradients.
func (t *Table) HasGradients() bool { return t.gradients != nil }

// Times returns a copy of all travel times, with NaN marking receivers
// outside the model domain.
func (t *Table) Times() []float64 {
	return append([]float64(nil), t.times...)
}
