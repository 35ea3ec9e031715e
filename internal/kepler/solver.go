package kepler

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEccentricity is returned when e is outside [0, 1).
// Parabolic and hyperbolic orbits are unsupported - the solver fails fast
// rather than silently extrapolating.
var ErrInvalidEccentricity = errors.New("kepler: eccentricity outside [0, 1)")

// Result holds the solved eccentric anomaly together with the cached
// trigonometric values downstream code needs. Recomputing sin(E) and cos(E)
// accurately is more expensive than carrying them, and the true anomaly f is
// consumed directly by orbit geometry.
//
// INVARIANT: E - Ecc*SinE - M == 0 to within solver tolerance (<= 1e-12
// absolute, ~1e-15 for double precision away from the e -> 1 boundary).
type Result struct {
	M   float64 // mean anomaly as supplied by the caller
	Ecc float64 // eccentricity used for the solve

	E    float64 // eccentric anomaly, same branch as M
	SinE float64
	CosE float64

	F    float64 // true anomaly, same branch as E
	SinF float64
	CosF float64
}

// region selects the closed-form starter formula. Dispatch over an explicit
// enum (not nested conditionals) keeps each starter independently testable.
type region int

const (
	// regionSeries covers low eccentricity where the classic power series
	// in e is already a high quality starter.
	regionSeries region = iota

	// regionNearPi covers M close to pi where sin(E) linearizes around
	// pi - E and the equation is well conditioned.
	regionNearPi

	// regionCorner covers the singular corner (high e, small M) where a
	// naive starter E0 = M fails badly. Uses Mikkola's cubic approximation.
	regionCorner

	// regionGeneral covers everything else with Markley's Pade-based
	// starter.
	regionGeneral
)

// Region boundaries. Heuristic, chosen so every region's starter error is
// small enough that one correction plus the fourth-order polish reaches
// machine precision.
const (
	seriesEccMax  = 0.1
	cornerEccMin  = 0.9
	cornerMeanMax = 0.3
	nearPiMeanMin = 2.9
)

func classify(m, e float64) region {
	switch {
	case m >= nearPiMeanMin:
		return regionNearPi
	case e < seriesEccMax:
		return regionSeries
	case e >= cornerEccMin && m < cornerMeanMax:
		return regionCorner
	default:
		return regionGeneral
	}
}

// Solve computes the eccentric anomaly E with M = E - e*sin(E) and the
// derived true anomaly f. M may be any real value; reduction modulo 2*pi and
// the odd symmetry E(-M) = -E(M) are applied internally.
//
// The only error condition is e outside [0, 1). Accuracy degradation as
// e -> 1 near the M -> 0 corner is an accepted boundary behavior and never
// reported as an error.
func Solve(m, e float64) (Result, error) {
	if e < 0 || e >= 1 || math.IsNaN(e) {
		return Result{}, fmt.Errorf("%w: e=%v", ErrInvalidEccentricity, e)
	}

	// Reduce M to mr in (-pi, pi] plus a whole number of revolutions.
	mr := math.Mod(m, 2*math.Pi)
	if mr > math.Pi {
		mr -= 2 * math.Pi
	} else if mr < -math.Pi {
		mr += 2 * math.Pi
	}
	revs := math.Round((m - mr) / (2 * math.Pi))

	// Fold into [0, pi] via E(-M) = -E(M).
	sign := 1.0
	ms := mr
	if ms < 0 {
		sign = -1.0
		ms = -ms
	}

	er := solveReduced(ms, e)

	sinE := sign * math.Sin(er)
	cosE := math.Cos(er)
	eSigned := sign * er

	// True anomaly from the closed-form relation to E. The denominator
	// 1 - e*cos(E) is the radial distance in units of a and is strictly
	// positive for e < 1.
	den := 1 - e*cosE
	sinF := math.Sqrt(1-e*e) * sinE / den
	cosF := (cosE - e) / den
	f := math.Atan2(sinF, cosF)

	return Result{
		M:    m,
		Ecc:  e,
		E:    eSigned + 2*math.Pi*revs,
		SinE: sinE,
		CosE: cosE,
		F:    f + 2*math.Pi*revs,
		SinF: sinF,
		CosF: cosF,
	}, nil
}

// solveReduced solves for E in [0, pi] given M in [0, pi].
// Three fixed stages: starter, one correction, one fourth-order polish.
func solveReduced(m, e float64) float64 {
	// Exact endpoints short-circuit the pipeline. M = 0 and M = pi are
	// fixed points of the equation for every eccentricity.
	if m == 0 {
		return 0
	}
	if m == math.Pi {
		return math.Pi
	}

	var e0 float64
	switch classify(m, e) {
	case regionSeries:
		e0 = starterSeries(m, e)
		e0 = halley(e0, m, e)
	case regionNearPi:
		e0 = starterNearPi(m, e)
		e0 = halley(e0, m, e)
	case regionCorner:
		// Mikkola's cubic starter; the fifth-order term in s is the
		// region's correction step, folded into the starter formula.
		e0 = starterMikkola(m, e)
	case regionGeneral:
		e0 = starterMarkley(m, e)
		e0 = halley(e0, m, e)
	}

	return householder4(e0, m, e)
}

// starterSeries is the power series in e through second order:
// E0 = M + e*sin(M) + (e^2/2)*sin(2M). Error is O(e^3).
func starterSeries(m, e float64) float64 {
	sm, cm := math.Sincos(m)
	return m + e*sm*(1+e*cm)
}

// starterNearPi linearizes sin(E) about pi: sin(E) ~= pi - E, giving
// E0 = (M + e*pi)/(1 + e). Error is O(e*(pi-E)^3).
func starterNearPi(m, e float64) float64 {
	return (m + e*math.Pi) / (1 + e)
}

// starterMikkola is the cubic approximation of Mikkola (1987), including the
// fifth-order correction in the auxiliary variable s. It is the only starter
// that stays accurate in the singular corner M -> 0, e -> 1.
func starterMikkola(m, e float64) float64 {
	alpha := (1 - e) / (4*e + 0.5)
	beta := 0.5 * m / (4*e + 0.5)

	z := math.Cbrt(beta + math.Copysign(math.Sqrt(beta*beta+alpha*alpha*alpha), beta))
	s := z - alpha/z
	// Fifth-order correction to the cubic root.
	s -= 0.078 * s * s * s * s * s / (1 + e)

	return m + e*s*(3-4*s*s)
}

// starterMarkley is the Pade-based starter of Markley (1995). Valid on the
// full reduced domain; used wherever no specialized starter applies.
func starterMarkley(m, e float64) float64 {
	alpha := (3*math.Pi*math.Pi + 1.6*math.Pi*(math.Pi-m)/(1+e)) / (math.Pi*math.Pi - 6)
	d := 3*(1-e) + alpha*e
	q := 2*alpha*d*(1-e) - m*m
	r := 3*alpha*d*(d-1+e)*m + m*m*m
	w := math.Cbrt(math.Abs(r) + math.Sqrt(q*q*q+r*r))
	w *= w
	return (2*r*w/(w*w+w*q+q*q) + m) / d
}

// residual evaluates E - e*sin(E) - M without catastrophic cancellation,
// returning the residual together with sin(E) and cos(E).
//
// The grouping (E - sin(E)) + (1-e)*sin(E) - M isolates the cancellation in
// E - sin(E), which is evaluated by series for small |E|.
func residual(eAnom, m, e float64) (res, sinE, cosE float64) {
	sinE, cosE = math.Sincos(eAnom)
	res = eMinusSin(eAnom, sinE) + (1-e)*sinE - m
	return res, sinE, cosE
}

// eMinusSin returns x - sin(x). For |x| < 1 the direct difference loses
// precision, so the alternating Taylor series is summed instead; it converges
// to machine precision in a handful of terms on that range.
func eMinusSin(x, sinX float64) float64 {
	if math.Abs(x) >= 1 {
		return x - sinX
	}
	x2 := x * x
	term := x * x2 / 6 // x^3/3!
	sum := term
	// Terms: x^(2k+1)/(2k+1)! with alternating sign, starting at k=2.
	for k, sign := 5.0, -1.0; ; k, sign = k+2, -sign {
		term *= x2 / (k * (k - 1))
		next := sum + sign*term
		if next == sum {
			return sum
		}
		sum = next
	}
}

// oneMinusECos returns 1 - e*cos(E) stably. For small |E| the grouping
// (1 - e) + e*(1 - cos(E)) avoids subtracting nearly equal quantities, with
// 1 - cos(E) = 2*sin^2(E/2).
func oneMinusECos(eAnom, e float64) float64 {
	if math.Abs(eAnom) >= 1 {
		return 1 - e*math.Cos(eAnom)
	}
	s := math.Sin(0.5 * eAnom)
	return (1 - e) + 2*e*s*s
}

// halley applies a single Halley (second-order) correction step.
func halley(eAnom, m, e float64) float64 {
	res, sinE, _ := residual(eAnom, m, e)
	f1 := oneMinusECos(eAnom, e)
	f2 := e * sinE
	return eAnom - 2*res*f1/(2*f1*f1-res*f2)
}

// householder4 applies one generalized Newton update of fourth order.
// From a starter within ~1e-3 of the root this lands at machine precision in
// a single application; no loop, no convergence test.
func householder4(eAnom, m, e float64) float64 {
	res, sinE, cosE := residual(eAnom, m, e)
	f1 := oneMinusECos(eAnom, e)
	f2 := e * sinE
	f3 := e * cosE

	d1 := -res / f1
	d2 := -res / (f1 + 0.5*d1*f2)
	d3 := -res / (f1 + 0.5*d2*f2 + d2*d2*f3/6)

	return eAnom + d3
}
