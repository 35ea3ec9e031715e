package kepler

import "math"

// Derivatives holds the exact partial derivatives of the solved anomalies
// with respect to the solver inputs. All four are required downstream: orbit
// geometry consumes f directly rather than E for performance.
type Derivatives struct {
	EM float64 // dE/dM
	Ee float64 // dE/de
	FM float64 // df/dM
	Fe float64 // df/de
}

// Derivatives computes the gradient of (E, f) with respect to (M, e) by
// implicit differentiation of E - e*sin(E) = M:
//
//	dE/dM = 1 / (1 - e*cos(E))
//	dE/de = sin(E) / (1 - e*cos(E))
//
// The true anomaly derivatives chain through the closed-form relation
// between f and E, holding M fixed:
//
//	df/dM = sqrt(1-e^2) / (1 - e*cos(E))^2
//	df/de = sin(f) * (2 + e*cos(f)) / (1 - e^2)
//
// Everything is evaluated from the cached trig values in r - the solver's
// control flow is never differentiated.
//
// Near e -> 1 with E -> 0 the denominator 1 - e*cos(E) shrinks and the
// derivatives blow up. No clamping is applied; callers must keep e bounded
// away from 1 where gradients are consumed.
func (r Result) Derivatives() Derivatives {
	e := r.Ecc
	den := 1 - e*r.CosE
	ome2 := 1 - e*e

	dEdM := 1 / den
	return Derivatives{
		EM: dEdM,
		Ee: r.SinE / den,
		FM: math.Sqrt(ome2) * dEdM * dEdM,
		Fe: r.SinF * (2 + e*r.CosF) / ome2,
	}
}
