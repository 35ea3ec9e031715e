// Package exposure integrates orbit-derived signals over finite exposure
// windows with adaptive Simpson quadrature.
//
// Each evaluator sample carries its own exact gradient, chained from the
// upstream closed-form derivatives. The integrator applies identical Simpson
// weights to values and gradients, so the integral's gradient falls out of
// the same weighted sum - the adaptive recursion tree itself is never
// differentiated, only its leaves are.
package exposure

import (
	"errors"
	"fmt"
)

// Evaluator produces the instantaneous signal and its gradient with respect
// to the upstream parameters. Implementations must be pure: same t, same
// sample.
type Evaluator interface {
	Evaluate(t float64) (Sample, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(t float64) (Sample, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(t float64) (Sample, error) { return f(t) }

// Sample is one leaf evaluation: a scalar value plus its gradient. Grad may
// be nil for gradient-free integration; when present its length must be the
// same for every sample of a window.
type Sample struct {
	Value float64
	Grad  []float64
}

// Window describes one exposure: centered at T with duration D, integrated
// to absolute tolerance Tol (scaled by interval width), with the adaptive
// recursion bounded by MaxDepth.
type Window struct {
	T        float64
	D        float64 // >= 0; 0 degenerates to a point evaluation
	Tol      float64
	MaxDepth int
}

// Result is the time-averaged signal over the window.
//
// Degraded reports that some subinterval exhausted the recursion budget and
// the estimate there is the best available rather than tolerance-certified.
type Result struct {
	Value    float64
	Grad     []float64
	Degraded bool
}

// ErrInvalidWindow is returned for a negative duration or tolerance.
var ErrInvalidWindow = errors.New("exposure: invalid window")

// DefaultMaxDepth bounds the adaptive recursion when the caller does not.
// 2^24 leaf intervals is far beyond any smooth light-curve's needs; hitting
// the bound indicates a non-smooth or noisy evaluator.
const DefaultMaxDepth = 24

// Integrate returns the time-averaged signal over [T-D/2, T+D/2].
//
// Classic adaptive Simpson: the whole-interval estimate is compared against
// the two half-interval estimates; disagreement beyond the width-scaled
// tolerance splits the interval and halves the tolerance. Gradients ride
// along through every estimate with the same weights.
func Integrate(ev Evaluator, w Window) (Result, error) {
	if w.D < 0 {
		return Result{}, fmt.Errorf("%w: duration %v is negative", ErrInvalidWindow, w.D)
	}
	if w.Tol < 0 {
		return Result{}, fmt.Errorf("%w: tolerance %v is negative", ErrInvalidWindow, w.Tol)
	}

	if w.D == 0 {
		s, err := ev.Evaluate(w.T)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: s.Value, Grad: cloneGrad(s.Grad)}, nil
	}

	depth := w.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}

	lo, hi := w.T-w.D/2, w.T+w.D/2
	fa, err := ev.Evaluate(lo)
	if err != nil {
		return Result{}, err
	}
	fm, err := ev.Evaluate(w.T)
	if err != nil {
		return Result{}, err
	}
	fb, err := ev.Evaluate(hi)
	if err != nil {
		return Result{}, err
	}

	whole := simpson(fa, fm, fb, w.D)
	sum, degraded, err := refine(ev, lo, hi, fa, fm, fb, whole, w.D, w.Tol*w.D, depth)
	if err != nil {
		return Result{}, err
	}

	// Time average: divide the integral (and its gradient) by the width.
	sum.scale(1 / w.D)
	return Result{Value: sum.Value, Grad: sum.Grad, Degraded: degraded}, nil
}

// estimate is a Simpson integral estimate over some interval, value and
// gradient weighted identically.
type estimate struct {
	Value float64
	Grad  []float64
}

func (e *estimate) scale(s float64) {
	e.Value *= s
	for i := range e.Grad {
		e.Grad[i] *= s
	}
}

func (e *estimate) addScaled(o estimate, s float64) {
	e.Value += s * o.Value
	for i := range e.Grad {
		e.Grad[i] += s * o.Grad[i]
	}
}

// simpson is the three-point rule over an interval of the given width.
func simpson(fa, fm, fb Sample, width float64) estimate {
	w := width / 6
	est := estimate{Value: w * (fa.Value + 4*fm.Value + fb.Value)}
	if fa.Grad != nil {
		est.Grad = make([]float64, len(fa.Grad))
		for i := range est.Grad {
			est.Grad[i] = w * (fa.Grad[i] + 4*fm.Grad[i] + fb.Grad[i])
		}
	}
	return est
}

// refine recursively splits [lo, hi] until the whole-interval and
// sum-of-halves estimates agree within tol, or depth runs out. The finer
// estimate is always the one accepted.
//
// width is the exact interval length, halved per level rather than
// recomputed from the endpoints: hi - lo loses digits when the window is
// tiny relative to |T|, and the quadrature weights must still sum to the
// window so that a constant integrand averages back exactly. Midpoints may
// come from the endpoints; only the weights need the exact width.
func refine(ev Evaluator, lo, hi float64, fa, fm, fb Sample, whole estimate, width, tol float64, depth int) (estimate, bool, error) {
	mid := 0.5 * (lo + hi)
	lm := 0.5 * (lo + mid)
	rm := 0.5 * (mid + hi)

	flm, err := ev.Evaluate(lm)
	if err != nil {
		return estimate{}, false, err
	}
	frm, err := ev.Evaluate(rm)
	if err != nil {
		return estimate{}, false, err
	}

	half := 0.5 * width
	left := simpson(fa, flm, fm, half)
	right := simpson(fm, frm, fb, half)

	finer := left
	finer.Grad = cloneGrad(left.Grad)
	finer.addScaled(right, 1)

	if diff := finer.Value - whole.Value; diff <= tol && diff >= -tol {
		return finer, false, nil
	}
	if depth <= 1 {
		// Budget exhausted: keep the best available estimate and flag
		// the precision shortfall instead of failing.
		return finer, true, nil
	}

	lEst, lDeg, err := refine(ev, lo, mid, fa, flm, fm, left, half, tol/2, depth-1)
	if err != nil {
		return estimate{}, false, err
	}
	rEst, rDeg, err := refine(ev, mid, hi, fm, frm, fb, right, half, tol/2, depth-1)
	if err != nil {
		return estimate{}, false, err
	}

	lEst.addScaled(rEst, 1)
	return lEst, lDeg || rDeg, nil
}

func cloneGrad(g []float64) []float64 {
	if g == nil {
		return nil
	}
	out := make([]float64, len(g))
	copy(out, g)
	return out
}
