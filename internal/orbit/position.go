package orbit

import (
	"fmt"
	"math"

	"github.com/roach88/orbitkit/internal/kepler"
)

// Position is the relative position of the secondary in the observer frame:
// X north, Y east, Z along the line of sight (Z < 0 while transiting).
type Position struct {
	X, Y, Z float64
}

// ElementGradient holds the partial derivatives of one scalar with respect
// to each orbital element.
type ElementGradient struct {
	SemiMajor   float64
	Ecc         float64
	Inclination float64
	OmegaPeri   float64
	OmegaNode   float64
	Period      float64
	TPeri       float64
}

// Jacobian collects the exact element gradients of all three coordinates.
type Jacobian struct {
	X, Y, Z ElementGradient
}

// RelativePosition returns the observer-frame position at time t.
func RelativePosition(el Elements, t float64) (Position, error) {
	if err := el.Validate(); err != nil {
		return Position{}, err
	}
	kr, err := kepler.Solve(el.MeanAnomaly(t), el.Ecc)
	if err != nil {
		return Position{}, err
	}
	pos, _ := assemble(el, kr, false)
	return pos, nil
}

// RelativePositionGrad returns the position together with its exact Jacobian
// with respect to all seven elements, chained through the closed-form kepler
// derivatives.
func RelativePositionGrad(el Elements, t float64) (Position, Jacobian, error) {
	if err := el.Validate(); err != nil {
		return Position{}, Jacobian{}, err
	}
	kr, err := kepler.Solve(el.MeanAnomaly(t), el.Ecc)
	if err != nil {
		return Position{}, Jacobian{}, err
	}
	pos, jac := assemble(el, kr, true)
	return pos, jac, nil
}

// RelativePositions evaluates a whole time array against one element set.
func RelativePositions(el Elements, times []float64) ([]Position, error) {
	if err := el.Validate(); err != nil {
		return nil, err
	}
	out := make([]Position, len(times))
	for i, t := range times {
		kr, err := kepler.Solve(el.MeanAnomaly(t), el.Ecc)
		if err != nil {
			return nil, fmt.Errorf("time index %d: %w", i, err)
		}
		out[i], _ = assemble(el, kr, false)
	}
	return out, nil
}

// SkyAngles converts a position to (separation rho, position angle theta)
// with theta measured east of north.
func (p Position) SkyAngles() (rho, theta float64) {
	return math.Hypot(p.X, p.Y), math.Atan2(p.Y, p.X)
}

// assemble rotates the perifocal position into the observer frame and,
// when withGrad is set, accumulates the exact element Jacobian.
func assemble(el Elements, kr kepler.Result, withGrad bool) (Position, Jacobian) {
	e := el.Ecc
	scale := el.scale()
	a := el.SemiMajor * scale

	// r = a(1-e^2)/(1+e*cos f), perifocal angle u = omega + f.
	den := 1 + e*kr.CosF
	r := a * (1 - e*e) / den

	su, cu := math.Sincos(el.OmegaPeri + kr.F)
	si, ci := math.Sincos(el.Inclination)
	sO, cO := math.Sincos(el.OmegaNode)

	pos := Position{
		X: r * (cu*cO - su*ci*sO),
		Y: r * (cu*sO + su*ci*cO),
		Z: -r * su * si,
	}
	if !withGrad {
		return pos, Jacobian{}
	}

	// Direct partials with respect to the rotation angles.
	dXdu := r * (-su*cO - cu*ci*sO)
	dYdu := r * (-su*sO + cu*ci*cO)
	dZdu := -r * cu * si

	dXdi := r * su * si * sO
	dYdi := -r * su * si * cO
	dZdi := -r * su * ci

	// Radial partials: df enters both through u and through r(f).
	drdf := r * e * kr.SinF / den
	drdeAtF := a * (-2*e*den - (1-e*e)*kr.CosF) / (den * den)

	// Total derivative of each coordinate with respect to f.
	dXdf := dXdu + pos.X/r*drdf
	dYdf := dYdu + pos.Y/r*drdf
	dZdf := dZdu + pos.Z/r*drdf

	kd := kr.Derivatives()
	m := kr.M
	dMdP := -m / el.Period
	dMdT0 := -2 * math.Pi / el.Period

	grad := func(c, dCdu, dCdi, dCdOmega, dCdf float64) ElementGradient {
		return ElementGradient{
			SemiMajor:   c / el.SemiMajor,
			Ecc:         c/r*drdeAtF + dCdf*kd.Fe,
			Inclination: dCdi,
			OmegaPeri:   dCdu,
			OmegaNode:   dCdOmega,
			Period:      dCdf * kd.FM * dMdP,
			TPeri:       dCdf * kd.FM * dMdT0,
		}
	}

	jac := Jacobian{
		X: grad(pos.X, dXdu, dXdi, -pos.Y, dXdf),
		Y: grad(pos.Y, dYdu, dYdi, pos.X, dYdf),
		Z: grad(pos.Z, dZdu, dZdi, 0, dZdf),
	}
	return pos, jac
}
