package tracer

import (
	"gonum.org/v1/gonum/spatial/r3"

	"seistt/pkg/velocity"
)

// Constant is the analytic backend for homogeneous media: travel time is
// the Euclidean source-receiver distance divided by the phase velocity.
// It is exact and O(1) per receiver, and serves as the ground truth the
// grid-based backends are regression-tested against.
type Constant struct {
	model *velocity.Constant
}

// NewConstant builds the analytic constant-velocity backend.
func NewConstant(model *velocity.Constant) *Constant {
	return &Constant{model: model}
}

// Compute returns travel times and gradients for all receivers. A
// constant model covers all of space, so no receiver is out of domain.
func (c *Constant) Compute(source r3.Vec, receivers []r3.Vec, phase velocity.Phase) (*Table, error) {
	v := c.model.Velocity(phase)

	times := make([]float64, len(receivers))
	gradients := make([]r3.Vec, len(receivers))
	for i, rec := range receivers {
		d := r3.Sub(rec, source)
		dist := r3.Norm(d)
		times[i] = dist / v
		if dist > 0 {
			// dT/dr is the unit ray direction over the medium velocity.
			gradients[i] = r3.Scale(1/(v*dist), d)
		}
	}
	return NewTable(source, phase, append([]r3.Vec(nil), receivers...), times, gradients)
}
