package celerite

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTerm is returned when a kernel term's parameters are outside
// their domain.
var ErrInvalidTerm = errors.New("celerite: invalid kernel term")

// Coefficients is the reduced form every term lowers to: sums of real
// exponential components a*exp(-c*tau) and oscillatory components
// exp(-c*tau)*(a*cos(d*tau) + b*sin(d*tau)).
//
// The same struct carries gradients: the adjoint of a coefficient lives at
// the position of the coefficient itself.
type Coefficients struct {
	RealA, RealC                           []float64
	ComplexA, ComplexB, ComplexC, ComplexD []float64
}

// Width is the total column count of the semiseparable representation:
// one column per real component, two per oscillatory component.
func (c Coefficients) Width() int {
	return len(c.RealA) + 2*len(c.ComplexA)
}

// KernelValue evaluates k(tau) for the reduced coefficients. Used by the
// dense reference path; the factorization never calls it.
func (c Coefficients) KernelValue(tau float64) float64 {
	tau = math.Abs(tau)
	var k float64
	for i := range c.RealA {
		k += c.RealA[i] * math.Exp(-c.RealC[i]*tau)
	}
	for i := range c.ComplexA {
		arg := c.ComplexD[i] * tau
		k += math.Exp(-c.ComplexC[i]*tau) *
			(c.ComplexA[i]*math.Cos(arg) + c.ComplexB[i]*math.Sin(arg))
	}
	return k
}

func (c *Coefficients) appendReal(a, cc float64) {
	c.RealA = append(c.RealA, a)
	c.RealC = append(c.RealC, cc)
}

func (c *Coefficients) appendComplex(a, b, cc, d float64) {
	c.ComplexA = append(c.ComplexA, a)
	c.ComplexB = append(c.ComplexB, b)
	c.ComplexC = append(c.ComplexC, cc)
	c.ComplexD = append(c.ComplexD, d)
}

// Term is one damped-oscillator kernel component. Every term lowers to
// reduced coefficients; ParamGradient pulls reduced-coefficient adjoints
// back to the term's native parameters through its hand-derived Jacobian.
type Term interface {
	Validate() error

	// Coefficients returns the term's reduced components.
	Coefficients() Coefficients

	// ParamGradient maps adjoints of this term's own reduced
	// coefficients (same shapes as Coefficients returns) to adjoints of
	// the native parameters, in the term's documented parameter order.
	ParamGradient(grad Coefficients) []float64
}

// Kernel is a sum of terms. The positive-semidefiniteness of the sum is not
// verified structurally; a violation surfaces as ErrFactorizationFailed.
type Kernel []Term

// Validate checks every term.
func (k Kernel) Validate() error {
	if len(k) == 0 {
		return fmt.Errorf("%w: kernel has no terms", ErrInvalidTerm)
	}
	for i, t := range k {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("term %d: %w", i, err)
		}
	}
	return nil
}

// Coefficients concatenates the reduced coefficients of all terms, real
// components first in term order, then oscillatory components in term order.
func (k Kernel) Coefficients() Coefficients {
	var out Coefficients
	for _, t := range k {
		c := t.Coefficients()
		out.RealA = append(out.RealA, c.RealA...)
		out.RealC = append(out.RealC, c.RealC...)
		out.ComplexA = append(out.ComplexA, c.ComplexA...)
		out.ComplexB = append(out.ComplexB, c.ComplexB...)
		out.ComplexC = append(out.ComplexC, c.ComplexC...)
		out.ComplexD = append(out.ComplexD, c.ComplexD...)
	}
	return out
}

// ParamGradients splits a concatenated coefficient gradient back into
// per-term native-parameter gradients, in term order.
func (k Kernel) ParamGradients(grad Coefficients) [][]float64 {
	out := make([][]float64, len(k))
	ri, ci := 0, 0
	for i, t := range k {
		c := t.Coefficients()
		nr, nc := len(c.RealA), len(c.ComplexA)
		sub := Coefficients{
			RealA:    grad.RealA[ri : ri+nr],
			RealC:    grad.RealC[ri : ri+nr],
			ComplexA: grad.ComplexA[ci : ci+nc],
			ComplexB: grad.ComplexB[ci : ci+nc],
			ComplexC: grad.ComplexC[ci : ci+nc],
			ComplexD: grad.ComplexD[ci : ci+nc],
		}
		out[i] = t.ParamGradient(sub)
		ri += nr
		ci += nc
	}
	return out
}

// RealTerm is a single exponential component a*exp(-c*tau).
// Parameter order: (a, c).
type RealTerm struct {
	A, C float64
}

func (t RealTerm) Validate() error {
	if !(t.C > 0) {
		return fmt.Errorf("%w: real term damping c=%v must be positive", ErrInvalidTerm, t.C)
	}
	return nil
}

func (t RealTerm) Coefficients() Coefficients {
	var c Coefficients
	c.appendReal(t.A, t.C)
	return c
}

func (t RealTerm) ParamGradient(grad Coefficients) []float64 {
	return []float64{grad.RealA[0], grad.RealC[0]}
}

// ComplexTerm is one oscillatory component
// exp(-c*tau)*(a*cos(d*tau) + b*sin(d*tau)).
// Parameter order: (a, b, c, d).
type ComplexTerm struct {
	A, B, C, D float64
}

func (t ComplexTerm) Validate() error {
	if !(t.C > 0) {
		return fmt.Errorf("%w: complex term damping c=%v must be positive", ErrInvalidTerm, t.C)
	}
	return nil
}

func (t ComplexTerm) Coefficients() Coefficients {
	var c Coefficients
	c.appendComplex(t.A, t.B, t.C, t.D)
	return c
}

func (t ComplexTerm) ParamGradient(grad Coefficients) []float64 {
	return []float64{grad.ComplexA[0], grad.ComplexB[0], grad.ComplexC[0], grad.ComplexD[0]}
}

// SHOTerm is a stochastically driven damped harmonic oscillator with power
// spectrum parameters (S0, w0, Q). Parameter order: (S0, w0, Q).
//
// The reduction splits at Q = 1/2: underdamped oscillators lower to one
// oscillatory component, overdamped to two real components. Exactly
// critical damping is a removable singularity of the closed forms; the
// auxiliary sqrt is floored at a tiny value, so Q within ~1e-8 of 1/2 is
// regularized rather than rejected. The boundary is not differentiable.
type SHOTerm struct {
	S0, W0, Q float64
}

// shoFloor regularizes the critically damped boundary.
const shoFloor = 1e-16

func (t SHOTerm) Validate() error {
	switch {
	case !(t.W0 > 0):
		return fmt.Errorf("%w: SHO frequency w0=%v must be positive", ErrInvalidTerm, t.W0)
	case !(t.Q > 0):
		return fmt.Errorf("%w: SHO quality factor Q=%v must be positive", ErrInvalidTerm, t.Q)
	}
	return nil
}

func (t SHOTerm) Coefficients() Coefficients {
	var c Coefficients
	if t.Q >= 0.5 {
		f := math.Sqrt(math.Max(4*t.Q*t.Q-1, shoFloor))
		a := t.S0 * t.W0 * t.Q
		cc := t.W0 / (2 * t.Q)
		c.appendComplex(a, a/f, cc, cc*f)
	} else {
		f := math.Sqrt(math.Max(1-4*t.Q*t.Q, shoFloor))
		aa := 0.5 * t.S0 * t.W0 * t.Q
		cc := t.W0 / (2 * t.Q)
		c.appendReal(aa*(1+1/f), cc*(1-f))
		c.appendReal(aa*(1-1/f), cc*(1+f))
	}
	return c
}

func (t SHOTerm) ParamGradient(grad Coefficients) []float64 {
	s0, w0, q := t.S0, t.W0, t.Q
	if q >= 0.5 {
		ga, gb, gc, gd := grad.ComplexA[0], grad.ComplexB[0], grad.ComplexC[0], grad.ComplexD[0]

		f := math.Sqrt(math.Max(4*q*q-1, shoFloor))
		a := s0 * w0 * q
		cc := w0 / (2 * q)
		dfdq := 4 * q / f

		// a = S0*w0*Q, b = a/f, c = w0/(2Q), d = c*f.
		dS0 := ga*w0*q + gb*w0*q/f
		dW0 := ga*s0*q + gb*s0*q/f + gc/(2*q) + gd*f/(2*q)
		dQ := ga*s0*w0 +
			gb*(s0*w0/f-a*dfdq/(f*f)) +
			gc*(-w0/(2*q*q)) +
			gd*(-w0*f/(2*q*q)+cc*dfdq)
		return []float64{dS0, dW0, dQ}
	}

	f := math.Sqrt(math.Max(1-4*q*q, shoFloor))
	aa := 0.5 * s0 * w0 * q
	cc := w0 / (2 * q)
	dfdq := -4 * q / f

	// Two real components: a± = aa*(1 ± 1/f), c∓ = cc*(1 ∓ f).
	ga1, gc1 := grad.RealA[0], grad.RealC[0]
	ga2, gc2 := grad.RealA[1], grad.RealC[1]

	dAAdS0 := 0.5 * w0 * q
	dAAdW0 := 0.5 * s0 * q
	dAAdQ := 0.5 * s0 * w0

	dS0 := ga1*dAAdS0*(1+1/f) + ga2*dAAdS0*(1-1/f)
	dW0 := ga1*dAAdW0*(1+1/f) + ga2*dAAdW0*(1-1/f) +
		gc1*(1-f)/(2*q) + gc2*(1+f)/(2*q)
	dQ := ga1*(dAAdQ*(1+1/f)-aa*dfdq/(f*f)) +
		ga2*(dAAdQ*(1-1/f)+aa*dfdq/(f*f)) +
		gc1*(-w0/(2*q*q)*(1-f)-cc*dfdq) +
		gc2*(-w0/(2*q*q)*(1+f)+cc*dfdq)
	return []float64{dS0, dW0, dQ}
}

// RotationTerm models stellar rotation as a pair of underdamped SHO terms
// at the rotation period and its first harmonic.
// Parameter order: (amp, period, Q0, deltaQ, mix).
type RotationTerm struct {
	Amp    float64 // variance amplitude of the cycle
	Period float64 // primary rotation period
	Q0     float64 // base quality factor above critical, > 0
	DeltaQ float64 // quality difference between the two modes
	Mix    float64 // fractional amplitude of the harmonic, in (0, 1]
}

func (t RotationTerm) Validate() error {
	switch {
	case !(t.Amp > 0):
		return fmt.Errorf("%w: rotation amplitude %v must be positive", ErrInvalidTerm, t.Amp)
	case !(t.Period > 0):
		return fmt.Errorf("%w: rotation period %v must be positive", ErrInvalidTerm, t.Period)
	case !(t.Q0 > 0):
		return fmt.Errorf("%w: rotation Q0=%v must be positive", ErrInvalidTerm, t.Q0)
	case t.Q0+t.DeltaQ <= 0:
		return fmt.Errorf("%w: rotation Q0+deltaQ=%v must be positive", ErrInvalidTerm, t.Q0+t.DeltaQ)
	case !(t.Mix > 0) || t.Mix > 1:
		return fmt.Errorf("%w: rotation mix %v must be in (0, 1]", ErrInvalidTerm, t.Mix)
	}
	return nil
}

// shoPair lowers the rotation parameters to the two underlying SHO terms.
func (t RotationTerm) shoPair() (SHOTerm, SHOTerm) {
	q1 := 0.5 + t.Q0 + t.DeltaQ
	w1 := 4 * math.Pi * q1 / (t.Period * math.Sqrt(4*q1*q1-1))
	s1 := t.Amp / ((1 + t.Mix) * w1 * q1)

	q2 := 0.5 + t.Q0
	w2 := 8 * math.Pi * q2 / (t.Period * math.Sqrt(4*q2*q2-1))
	s2 := t.Mix * t.Amp / ((1 + t.Mix) * w2 * q2)

	return SHOTerm{S0: s1, W0: w1, Q: q1}, SHOTerm{S0: s2, W0: w2, Q: q2}
}

func (t RotationTerm) Coefficients() Coefficients {
	p, h := t.shoPair()
	var c Coefficients
	pc, hc := p.Coefficients(), h.Coefficients()
	c.appendComplex(pc.ComplexA[0], pc.ComplexB[0], pc.ComplexC[0], pc.ComplexD[0])
	c.appendComplex(hc.ComplexA[0], hc.ComplexB[0], hc.ComplexC[0], hc.ComplexD[0])
	return c
}

func (t RotationTerm) ParamGradient(grad Coefficients) []float64 {
	p, h := t.shoPair()

	// Pull coefficient adjoints back to the two (S0, w0, Q) triples.
	g1 := p.ParamGradient(Coefficients{
		ComplexA: grad.ComplexA[:1], ComplexB: grad.ComplexB[:1],
		ComplexC: grad.ComplexC[:1], ComplexD: grad.ComplexD[:1],
	})
	g2 := h.ParamGradient(Coefficients{
		ComplexA: grad.ComplexA[1:2], ComplexB: grad.ComplexB[1:2],
		ComplexC: grad.ComplexC[1:2], ComplexD: grad.ComplexD[1:2],
	})

	q1, q2 := p.Q, h.Q
	w1, w2 := p.W0, h.W0
	s1, s2 := p.S0, h.S0

	// dw/dQ from w = k*pi*Q/(P*sqrt(4Q^2-1)): collapses to
	// -(k*pi/P)*(4Q^2-1)^(-3/2).
	dw1dQ1 := -(4 * math.Pi / t.Period) * math.Pow(4*q1*q1-1, -1.5)
	dw2dQ2 := -(8 * math.Pi / t.Period) * math.Pow(4*q2*q2-1, -1.5)

	// S = (mix share)*amp/((1+mix)*w*Q) gives dS/dw = -S/w, dS/dQ = -S/Q.
	// Native adjoints accumulate through both SHO triples.
	dAmp := g1[0]*s1/t.Amp + g2[0]*s2/t.Amp
	dPeriod := (g1[1]+g1[0]*(-s1/w1))*(-w1/t.Period) +
		(g2[1]+g2[0]*(-s2/w2))*(-w2/t.Period)
	dQ1 := g1[2] + g1[0]*(-s1/q1) + (g1[1]+g1[0]*(-s1/w1))*dw1dQ1
	dQ2 := g2[2] + g2[0]*(-s2/q2) + (g2[1]+g2[0]*(-s2/w2))*dw2dQ2
	dMix := g1[0]*(-s1/(1+t.Mix)) + g2[0]*s2*(1/t.Mix-1/(1+t.Mix))

	return []float64{
		dAmp,
		dPeriod,
		dQ1 + dQ2, // both modes move with Q0
		dQ1,       // only the primary moves with deltaQ
		dMix,
	}
}
