package orbit

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidElements is returned when orbital elements violate their domain
// constraints (a <= 0, P <= 0, or e outside [0, 1)).
var ErrInvalidElements = errors.New("orbit: invalid orbital elements")

// Elements is the value-type description of a Keplerian orbit.
//
// Angles are in radians and normalized modulo 2*pi on use; omega and Omega
// carry no sign constraint. The convention is fixed to omega = omega_primary.
type Elements struct {
	SemiMajor   float64 // a, same length unit as positions; > 0
	Ecc         float64 // e in [0, 1)
	Inclination float64 // i
	OmegaPeri   float64 // omega, argument of periastron of the primary
	OmegaNode   float64 // Omega, longitude of the ascending node
	Period      float64 // P, same time unit as input times; > 0
	TPeri       float64 // t0, time of periastron passage

	// Parallax optionally converts physical separations to angular ones.
	// Zero means "not set" and leaves positions in physical units.
	Parallax float64
}

// Validate checks the domain constraints. It reports the first violation
// wrapped around ErrInvalidElements.
func (el Elements) Validate() error {
	switch {
	case !(el.SemiMajor > 0):
		return fmt.Errorf("%w: semi-major axis %v must be positive", ErrInvalidElements, el.SemiMajor)
	case !(el.Period > 0):
		return fmt.Errorf("%w: period %v must be positive", ErrInvalidElements, el.Period)
	case el.Ecc < 0 || el.Ecc >= 1 || math.IsNaN(el.Ecc):
		return fmt.Errorf("%w: eccentricity %v outside [0, 1)", ErrInvalidElements, el.Ecc)
	case el.Parallax < 0:
		return fmt.Errorf("%w: parallax %v must be non-negative", ErrInvalidElements, el.Parallax)
	}
	return nil
}

// MeanAnomaly returns M = 2*pi*(t - t0)/P at time t.
func (el Elements) MeanAnomaly(t float64) float64 {
	return 2 * math.Pi * (t - el.TPeri) / el.Period
}

// scale is the unit factor applied to positions: parallax when set,
// otherwise 1 (physical units).
func (el Elements) scale() float64 {
	if el.Parallax > 0 {
		return el.Parallax
	}
	return 1
}

// wrapAngle normalizes an angle into [0, 2*pi).
func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
