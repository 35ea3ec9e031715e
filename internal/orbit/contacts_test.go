package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContacts_EdgeOnCircularSymmetry(t *testing.T) {
	// Circular edge-on orbit with transit centered at periastron
	// (omega = pi/2 puts the periastron direction along the line of
	// sight). The two transit contacts must be symmetric about t0
	// modulo the period.
	el := Elements{
		SemiMajor:   10,
		Ecc:         0,
		Inclination: math.Pi / 2,
		OmegaPeri:   math.Pi / 2,
		Period:      100,
		TPeri:       20,
	}
	const l = 0.1

	times, err := TransitTimes(el, l)
	require.NoError(t, err)
	require.Len(t, times, 2)

	// One contact just after t0, the mirror one just before t0 + P.
	d1 := times[0] - el.TPeri
	d2 := times[1] - el.TPeri
	assert.InDelta(t, el.Period, d1+d2, 1e-6)

	// Half chord: sin(f) = L/a at contact, f small.
	want := el.Period * math.Asin(l/el.SemiMajor) / (2 * math.Pi)
	assert.InDelta(t, want, d1, 1e-6)
}

func TestContacts_EdgeOnHasOccultationPair(t *testing.T) {
	el := Elements{
		SemiMajor:   10,
		Ecc:         0,
		Inclination: math.Pi / 2,
		OmegaPeri:   math.Pi / 2,
		Period:      100,
		TPeri:       0,
	}

	pts, err := Contacts(el, 0.1)
	require.NoError(t, err)
	require.Len(t, pts, 4)

	var transits, occs int
	for _, p := range pts {
		if p.Transit {
			require.Less(t, p.Z, 0.0)
			transits++
		} else {
			require.GreaterOrEqual(t, p.Z, 0.0)
			occs++
		}
	}
	assert.Equal(t, 2, transits)
	assert.Equal(t, 2, occs)
}

func TestContacts_GeneralInclinedEccentric(t *testing.T) {
	el := Elements{
		SemiMajor:   10,
		Ecc:         0.3,
		Inclination: 1.56,
		OmegaPeri:   0.4,
		Period:      100,
		TPeri:       5,
	}
	const l = 0.5

	pts, err := Contacts(el, l)
	require.NoError(t, err)
	require.NotEmpty(t, pts)
	require.LessOrEqual(t, len(pts), 4)

	for _, p := range pts {
		// Contact points sit exactly on the limb circle.
		assert.InDelta(t, l*l, p.X*p.X+p.Y*p.Y, 1e-8*l*l, "contact %+v", p)

		// Re-evaluating the orbit at the contact time must reproduce
		// the contact geometry: projected separation L, same z side.
		pos, err := RelativePosition(el, p.Time)
		require.NoError(t, err)
		rho, _ := pos.SkyAngles()
		assert.InDelta(t, l, rho, 1e-6, "contact %+v", p)
		assert.Equal(t, p.Transit, pos.Z < 0, "contact %+v", p)

		assert.GreaterOrEqual(t, p.Time, el.TPeri)
		assert.Less(t, p.Time, el.TPeri+el.Period)
	}

	// Ordering contract: ascending time.
	for i := 1; i < len(pts); i++ {
		assert.LessOrEqual(t, pts[i-1].Time, pts[i].Time)
	}
}

func TestContacts_TransitDurationShrinksWithImpactParameter(t *testing.T) {
	base := Elements{
		SemiMajor: 10,
		Period:    100,
		OmegaPeri: math.Pi / 2,
		TPeri:     0,
	}
	const l = 0.5

	duration := func(incl float64) float64 {
		el := base
		el.Inclination = incl
		times, err := TransitTimes(el, l)
		require.NoError(t, err)
		require.Len(t, times, 2)
		d := times[0] - el.TPeri
		return 2 * d // symmetric about t0
	}

	grazing := duration(math.Acos(0.045)) // impact parameter 0.45
	central := duration(math.Pi / 2)
	assert.Less(t, grazing, central)
}

func TestContacts_CircularInclinedTransit(t *testing.T) {
	// e = 0 zeroes the cross terms of the contact quadric and collapses
	// the quartic to a perfect square, which must be solved as the
	// underlying quadratic. Impact parameter a*cos(i) = 0.45 < L = 0.5.
	const cosi = 0.045
	el := Elements{
		SemiMajor:   10,
		Ecc:         0,
		Inclination: math.Acos(cosi),
		OmegaPeri:   math.Pi / 2,
		Period:      100,
		TPeri:       0,
	}
	const l = 0.5

	pts, err := Contacts(el, l)
	require.NoError(t, err)
	require.Len(t, pts, 4)

	// Closed form for the circular case: x^2 = (L^2 - b^2)/(1 - cos^2 i)
	// with b = a*cos(i).
	b := el.SemiMajor * cosi
	wantX := math.Sqrt((l*l - b*b) / (1 - cosi*cosi))

	var transits int
	for _, p := range pts {
		assert.InDelta(t, wantX, math.Abs(p.X), 1e-9, "contact %+v", p)
		assert.InDelta(t, l*l, p.X*p.X+p.Y*p.Y, 1e-10*l*l, "contact %+v", p)

		pos, err := RelativePosition(el, p.Time)
		require.NoError(t, err)
		rho, _ := pos.SkyAngles()
		assert.InDelta(t, l, rho, 1e-6, "contact %+v", p)
		if p.Transit {
			transits++
		}
	}
	assert.Equal(t, 2, transits)

	times, err := TransitTimes(el, l)
	require.NoError(t, err)
	assert.Len(t, times, 2)
}

func TestContacts_NearCircularGrazing(t *testing.T) {
	// Small eccentricities keep the quartic close to the circular perfect
	// square: the nearly-double roots must survive polishing and the
	// residual filter at full contact accuracy.
	for _, e := range []float64{1e-4, 0.01, 0.05} {
		el := Elements{
			SemiMajor:   10,
			Ecc:         e,
			Inclination: math.Acos(0.045),
			OmegaPeri:   0.4,
			Period:      100,
			TPeri:       5,
		}
		const l = 0.5

		pts, err := Contacts(el, l)
		require.NoError(t, err)
		require.Len(t, pts, 4, "e=%v", e)

		for _, p := range pts {
			assert.InDelta(t, l*l, p.X*p.X+p.Y*p.Y, 1e-8*l*l, "e=%v contact %+v", e, p)

			pos, err := RelativePosition(el, p.Time)
			require.NoError(t, err)
			rho, _ := pos.SkyAngles()
			assert.InDelta(t, l, rho, 1e-6, "e=%v contact %+v", e, p)
			assert.Equal(t, p.Transit, pos.Z < 0, "e=%v contact %+v", e, p)
		}
	}
}

func TestTransitTimes_NoTransit(t *testing.T) {
	// Face-on circular orbit: projected separation is constant a >> L.
	el := circularFaceOn()
	_, err := TransitTimes(el, 0.1)
	assert.ErrorIs(t, err, ErrNoTransit)

	// Inclined but impact parameter far above L.
	el.Inclination = 1.0
	_, err = TransitTimes(el, 0.1)
	assert.ErrorIs(t, err, ErrNoTransit)
}

func TestContacts_InvalidInputs(t *testing.T) {
	el := circularFaceOn()

	_, err := Contacts(el, 0)
	assert.ErrorIs(t, err, ErrInvalidElements)

	el.Ecc = 1.5
	_, err = Contacts(el, 0.1)
	assert.ErrorIs(t, err, ErrInvalidElements)
}
