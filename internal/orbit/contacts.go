package orbit

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrNoTransit signals that the orbit geometry never intersects the limb
// circle of radius L. This is a normal outcome - callers skip the epoch -
// not a failure.
var ErrNoTransit = errors.New("orbit: geometry does not produce a transit")

// edgeOnTol decides when cos(i) is treated as exactly zero and the contact
// quartic is replaced by the edge-on quadratic branches.
const edgeOnTol = 1e-8

// ContactPoint is one root of the contact condition: the instant at which
// the projected separation equals L = R_star + R_planet.
type ContactPoint struct {
	Time        float64 // within [t0, t0+P)
	TrueAnomaly float64
	X, Y, Z     float64

	// Transit reports the line-of-sight side: Z < 0 is a transit contact,
	// Z >= 0 an occultation contact.
	Transit bool
}

// Contacts returns every real contact point of the orbit with the limb
// circle of radius L, in both line-of-sight hemispheres. The slice is empty
// when the geometry never touches the limb.
//
// Results are deterministic: sorted by time, ties broken by sky-plane X.
func Contacts(el Elements, l float64) ([]ContactPoint, error) {
	if err := el.Validate(); err != nil {
		return nil, err
	}
	if !(l > 0) {
		return nil, fmt.Errorf("%w: limb radius %v must be positive", ErrInvalidElements, l)
	}

	si, ci := math.Sincos(el.Inclination)
	sw, cw := math.Sincos(el.OmegaPeri)

	var cands []skyCandidate
	if math.Abs(ci) < edgeOnTol {
		cands = edgeOnCandidates(el, l, sw, cw)
	} else {
		cands = quarticCandidates(el, l, sw, cw, ci)
	}

	points := make([]ContactPoint, 0, len(cands))
	for _, c := range cands {
		points = append(points, toContact(el, c, si, ci))
	}

	slices.SortFunc(points, func(a, b ContactPoint) int {
		switch {
		case a.Time != b.Time:
			if a.Time < b.Time {
				return -1
			}
			return 1
		case a.X != b.X:
			if a.X < b.X {
				return -1
			}
			return 1
		default:
			return 0
		}
	})
	return dedupe(points, l), nil
}

// TransitTimes returns the transit-side (Z < 0) contact times in ascending
// order, or ErrNoTransit when the limb is never crossed on that side.
func TransitTimes(el Elements, l float64) ([]float64, error) {
	return sideTimes(el, l, true)
}

// OccultationTimes is the Z >= 0 counterpart of TransitTimes.
func OccultationTimes(el Elements, l float64) ([]float64, error) {
	return sideTimes(el, l, false)
}

func sideTimes(el Elements, l float64, transit bool) ([]float64, error) {
	pts, err := Contacts(el, l)
	if err != nil {
		return nil, err
	}
	var times []float64
	for _, p := range pts {
		if p.Transit == transit {
			times = append(times, p.Time)
		}
	}
	if len(times) == 0 {
		return nil, ErrNoTransit
	}
	return times, nil
}

// skyCandidate is an intersection point in sky-plane coordinates before
// conversion back to a time. v = y2/cos(i) is the in-plane coordinate that
// stays finite in the edge-on limit.
type skyCandidate struct {
	x2, v float64
}

// quarticCandidates solves the general-inclination case. Substituting the
// inverse rotation into the perifocal ellipse constraint gives a quadratic
// form Q(x2, y2); combining it with x2^2 + y2^2 = L^2 eliminates y2 and
// leaves a closed-form quartic in x2.
func quarticCandidates(el Elements, l, sw, cw, ci float64) []skyCandidate {
	a := el.SemiMajor
	e := el.Ecc
	invA2 := 1 / (a * a)
	invB2 := 1 / (a * a * (1 - e*e))

	axx := invA2*cw*cw + invB2*sw*sw
	axy := 2 * cw * sw * (invA2 - invB2) / ci
	ayy := (invA2*sw*sw + invB2*cw*cw) / (ci * ci)
	bx := 2 * e * cw / a
	by := 2 * e * sw / (a * ci)
	c0 := -(1 - e*e)

	// Q = axx*x^2 + axy*x*y + ayy*y^2 + bx*x + by*y + c0.
	// With y^2 = L^2 - x^2: (L^2 - x^2) * S(x)^2 = P(x)^2, where
	// S(x) = axy*x + by and P(x) = (axx-ayy)*x^2 + bx*x + (ayy*L^2 + c0).
	p2 := axx - ayy
	p1 := bx
	p0 := ayy*l*l + c0

	qScale := (math.Abs(axx)+math.Abs(axy)+math.Abs(ayy))*l*l +
		(math.Abs(bx)+math.Abs(by))*l + math.Abs(c0)

	var roots []float64
	if axy == 0 && by == 0 {
		// Circular orbits zero out S(x) and collapse the quartic below to
		// the perfect square P(x)^2, whose companion eigenvalues are only
		// good to a few digits. Solve P(x) = 0 directly instead.
		roots = quadraticRoots(p2, p1, p0)
	} else {
		coeffs := []float64{
			p0*p0 - by*by*l*l,
			2 * (p1*p0 - axy*by*l*l),
			p1*p1 + 2*p2*p0 - axy*axy*l*l + by*by,
			2 * (p2*p1 + axy*by),
			p2*p2 + axy*axy,
		}
		roots = realRoots(coeffs)
	}

	var cands []skyCandidate
	for _, x := range roots {
		if math.Abs(x) > l*(1+1e-9) {
			continue
		}
		y2sq := l*l - x*x
		if y2sq < 0 {
			y2sq = 0
		}

		// Every root sits on the circle with y = -P(x)/S(x); rather than
		// divide by S, which shrinks toward zero for near-circular
		// geometries, test both circle branches against the quadric.
		// Symmetric geometries legitimately keep both.
		yAbs := math.Sqrt(y2sq)
		for _, y := range []float64{yAbs, -yAbs} {
			q := axx*x*x + axy*x*y + ayy*y*y + bx*x + by*y + c0
			if math.Abs(q) > 1e-6*qScale {
				continue
			}
			cands = append(cands, skyCandidate{x2: x, v: y / ci})
			if yAbs == 0 {
				break
			}
		}
	}
	return cands
}

// edgeOnCandidates handles cos(i) = 0, where the sky position collapses onto
// the X axis and the contact condition forces x2 = +/-L. Each branch leaves
// a quadratic in the line-of-sight coordinate.
func edgeOnCandidates(el Elements, l, sw, cw float64) []skyCandidate {
	a := el.SemiMajor
	e := el.Ecc
	invA2 := 1 / (a * a)
	invB2 := 1 / (a * a * (1 - e*e))

	q2 := invA2*sw*sw + invB2*cw*cw

	var cands []skyCandidate
	for _, sigma := range []float64{1, -1} {
		q1 := 2*sigma*l*cw*sw*(invA2-invB2) + 2*e*sw/a
		q0 := l*l*(invA2*cw*cw+invB2*sw*sw) + 2*sigma*e*l*cw/a - (1 - e*e)

		for _, v := range quadraticRoots(q2, q1, q0) {
			cands = append(cands, skyCandidate{x2: sigma * l, v: v})
		}
	}
	return cands
}

// toContact converts a sky-plane intersection back to perifocal coordinates,
// a true anomaly, and finally a time inside the first period after t0.
func toContact(el Elements, c skyCandidate, si, ci float64) ContactPoint {
	sw, cw := math.Sincos(el.OmegaPeri)
	e := el.Ecc

	x1 := c.x2*cw + c.v*sw
	y1 := -c.x2*sw + c.v*cw
	f := math.Atan2(y1, x1)

	// f -> E -> M, then M -> time within [t0, t0+P).
	ecc := math.Atan2(math.Sqrt(1-e*e)*math.Sin(f), e+math.Cos(f))
	m := wrapAngle(ecc - e*math.Sin(ecc))
	t := el.TPeri + el.Period*m/(2*math.Pi)

	z := -c.v * si
	return ContactPoint{
		Time:        t,
		TrueAnomaly: f,
		X:           c.x2,
		Y:           c.v * ci,
		Z:           z,
		Transit:     z < 0,
	}
}

// dedupe drops contacts that coincide in the sky plane within tolerance,
// such as tangent contacts reported once per circle branch.
func dedupe(points []ContactPoint, l float64) []ContactPoint {
	out := points[:0]
	for _, p := range points {
		dup := false
		for _, q := range out {
			if math.Abs(p.X-q.X) < 1e-8*l && math.Abs(p.Y-q.Y) < 1e-8*l &&
				math.Abs(p.Z-q.Z) < 1e-8*(1+math.Abs(q.Z)) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}
