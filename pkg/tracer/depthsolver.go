package tracer

import (
	"fmt"
	"math"

	"seistt/pkg/velocity"
)

// DirectSolver is the built-in DepthSolver. It discretizes the velocity
// profile into thin constant-velocity layers and returns the minimum of
// the direct wave, found by bisection on the ray parameter, and the
// critically refracted head waves along every faster interface below the
// deeper endpoint. Turning rays in velocity gradients are approximated by
// the layer discretization; LayerStep bounds that approximation.
type DirectSolver struct {
	// LayerStep is the maximum thickness in m of the constant-velocity
	// layers the profile is discretized into.
	LayerStep float64
}

// NewDirectSolver returns a DirectSolver with a 100 m layer step.
func NewDirectSolver() *DirectSolver {
	return &DirectSolver{LayerStep: 100}
}

// stack is a flat-layer discretization of a profile: len(bounds) ==
// len(vel)+1, with vel[i] holding the velocity between bounds[i] and
// bounds[i+1].
type stack struct {
	bounds []float64
	vel    []float64
}

func (s *DirectSolver) discretize(model *velocity.Layered, phase velocity.Phase) (*stack, error) {
	step := s.LayerStep
	if step <= 0 {
		step = 100
	}

	bps := model.Breakpoints()
	st := &stack{}
	for i := 0; i < len(bps)-1; i++ {
		top, bot := bps[i].Depth, bps[i+1].Depth
		n := int(math.Ceil((bot - top) / step))
		if n < 1 {
			n = 1
		}
		h := (bot - top) / float64(n)
		for j := 0; j < n; j++ {
			zTop := top + float64(j)*h
			v, err := model.VelocityAt(zTop+h/2, phase)
			if err != nil {
				return nil, err
			}
			st.bounds = append(st.bounds, zTop)
			st.vel = append(st.vel, v)
		}
	}
	st.bounds = append(st.bounds, bps[len(bps)-1].Depth)
	return st, nil
}

// segments returns the clipped layer thicknesses and velocities between
// two depths with zTop <= zBot.
func (st *stack) segments(zTop, zBot float64) (hs, vs []float64) {
	for i, v := range st.vel {
		lo := math.Max(st.bounds[i], zTop)
		hi := math.Min(st.bounds[i+1], zBot)
		if hi > lo {
			hs = append(hs, hi-lo)
			vs = append(vs, v)
		}
	}
	return hs, vs
}

// velocityAt returns the velocity of the layer containing a depth.
func (st *stack) velocityAt(z float64) float64 {
	for i := range st.vel {
		if z < st.bounds[i+1] {
			return st.vel[i]
		}
	}
	return st.vel[len(st.vel)-1]
}

// FirstArrival returns the first-arrival time between two depths at a
// horizontal offset, both depths within the profile.
func (s *DirectSolver) FirstArrival(model *velocity.Layered, phase velocity.Phase, sourceDepth, receiverDepth, offset float64) (float64, error) {
	if !model.Contains(sourceDepth) || !model.Contains(receiverDepth) {
		return 0, fmt.Errorf("%w: depths (%v, %v) outside layered model", velocity.ErrOutOfDomain, sourceDepth, receiverDepth)
	}
	if offset < 0 || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return 0, fmt.Errorf("offset %v must be non-negative and finite", offset)
	}

	st, err := s.discretize(model, phase)
	if err != nil {
		return 0, err
	}

	zTop := math.Min(sourceDepth, receiverDepth)
	zBot := math.Max(sourceDepth, receiverDepth)

	best := directTime(st, zTop, zBot, offset)
	for _, t := range headWaveTimes(st, sourceDepth, receiverDepth, offset) {
		if t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) || math.IsNaN(best) {
		return 0, fmt.Errorf("no arrival found for depths (%v, %v) offset %v", sourceDepth, receiverDepth, offset)
	}
	return best, nil
}

// directTime traces the direct ray between two depths by bisecting the
// ray parameter until the horizontal range matches the offset.
func directTime(st *stack, zTop, zBot, offset float64) float64 {
	if zBot-zTop < 1e-9 {
		// Horizontal path within the layer containing the endpoints.
		return offset / st.velocityAt(zTop)
	}

	hs, vs := st.segments(zTop, zBot)
	if offset < 1e-12 {
		var t float64
		for i, h := range hs {
			t += h / vs[i]
		}
		return t
	}

	vmax := vs[0]
	for _, v := range vs[1:] {
		if v > vmax {
			vmax = v
		}
	}

	// The range is monotonically increasing in the ray parameter and
	// diverges as p approaches 1/vmax, so the bisection always brackets.
	pLo, pHi := 0.0, (1-1e-14)/vmax
	for iter := 0; iter < 200; iter++ {
		p := 0.5 * (pLo + pHi)
		if rayRange(hs, vs, p) < offset {
			pLo = p
		} else {
			pHi = p
		}
	}
	p := 0.5 * (pLo + pHi)

	var t float64
	for i, h := range hs {
		sin := p * vs[i]
		cos := math.Sqrt(1 - sin*sin)
		t += h / (vs[i] * cos)
	}
	// Account for residual horizontal mismatch at the bracketed ray
	// parameter along the horizontal slowness direction.
	t += (offset - rayRange(hs, vs, p)) * p
	return t
}

func rayRange(hs, vs []float64, p float64) float64 {
	var x float64
	for i, h := range hs {
		sin := p * vs[i]
		cos := math.Sqrt(1 - sin*sin)
		x += h * sin / cos
	}
	return x
}

// headWaveTimes returns candidate arrival times for waves critically
// refracted along each interface faster than everything above it, for
// offsets beyond the critical distance.
func headWaveTimes(st *stack, zs, zr, offset float64) []float64 {
	zBot := math.Max(zs, zr)

	var times []float64
	for i := range st.vel {
		zi := st.bounds[i+1]
		if zi <= zBot || i+1 >= len(st.vel) {
			continue
		}
		vn := st.vel[i+1]

		delaySrc, xSrc, ok := legDelay(st, zs, zi, vn)
		if !ok {
			continue
		}
		delayRec, xRec, ok := legDelay(st, zr, zi, vn)
		if !ok {
			continue
		}
		if offset < xSrc+xRec {
			// Below the critical distance: no head wave.
			continue
		}
		times = append(times, offset/vn+delaySrc+delayRec)
	}
	return times
}

// legDelay computes the intercept delay and critical horizontal distance
// of one down-going leg from depth z to the refractor at depth zi with
// refractor velocity vn. The leg is invalid if any traversed layer is as
// fast as the refractor.
func legDelay(st *stack, z, zi, vn float64) (delay, x float64, ok bool) {
	hs, vs := st.segments(z, zi)
	for i, h := range hs {
		if vs[i] >= vn {
			return 0, 0, false
		}
		sin := vs[i] / vn
		cos := math.Sqrt(1 - sin*sin)
		delay += h * cos / vs[i]
		x += h * sin / cos
	}
	return delay, x, true
}
