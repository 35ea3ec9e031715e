package kepler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eccGrid spans the supported range including the near-parabolic boundary.
var eccGrid = []float64{0, 1e-6, 0.01, 0.05, 0.1, 0.3, 0.5, 0.7, 0.85, 0.9, 0.95, 0.99, 0.999}

// meanGrid covers [0, 2*pi) including region boundaries and the singular
// corner near M = 0.
var meanGrid = []float64{
	0, 1e-10, 1e-6, 1e-3, 0.01, 0.05, 0.1, 0.25, 0.29, 0.31, 0.5,
	1.0, math.Pi / 2, 2.0, 2.85, 2.95, 3.0, math.Pi,
	3.5, 4.0, 4.71, 5.5, 6.0, 6.28,
}

func TestSolve_ResidualWithinTolerance(t *testing.T) {
	for _, e := range eccGrid {
		for _, m := range meanGrid {
			r, err := Solve(m, e)
			require.NoError(t, err)

			res := r.E - e*r.SinE - m
			assert.Less(t, math.Abs(res), 1e-12,
				"residual too large at M=%v e=%v (E=%v)", m, e, r.E)
		}
	}
}

func TestSolve_FixedPoints(t *testing.T) {
	for _, e := range eccGrid {
		r, err := Solve(0, e)
		require.NoError(t, err)
		assert.Zero(t, r.E, "E(0) must be exactly 0 at e=%v", e)

		r, err = Solve(math.Pi, e)
		require.NoError(t, err)
		assert.Equal(t, math.Pi, r.E, "E(pi) must be exactly pi at e=%v", e)
	}
}

func TestSolve_OddSymmetry(t *testing.T) {
	for _, e := range eccGrid {
		for _, m := range meanGrid {
			if m == 0 {
				continue
			}
			pos, err := Solve(m, e)
			require.NoError(t, err)
			neg, err := Solve(-m, e)
			require.NoError(t, err)

			// Bitwise equality: the reduced solve follows the same
			// code path for both signs.
			assert.Equal(t, pos.E, -neg.E, "E(-M) != -E(M) at M=%v e=%v", m, e)
		}
	}
}

func TestSolve_PeriodicBranch(t *testing.T) {
	for _, e := range []float64{0.1, 0.5, 0.9} {
		for _, m := range []float64{0.5, 2.0, 3.0} {
			base, err := Solve(m, e)
			require.NoError(t, err)

			for _, k := range []float64{-2, -1, 1, 3} {
				shifted, err := Solve(m+2*math.Pi*k, e)
				require.NoError(t, err)
				assert.InDelta(t, base.E+2*math.Pi*k, shifted.E, 1e-9,
					"E must track the revolution count at M=%v e=%v k=%v", m, e, k)
			}
		}
	}
}

func TestSolve_RoundTrip(t *testing.T) {
	// Reconstructing M' = E - e*sin(E) must reproduce the input M.
	for _, e := range eccGrid {
		for _, m := range meanGrid {
			r, err := Solve(m, e)
			require.NoError(t, err)
			assert.InDelta(t, m, r.E-e*r.SinE, 1e-12, "round trip at M=%v e=%v", m, e)
		}
	}
}

func TestSolve_TrueAnomalyConsistency(t *testing.T) {
	// f and E must describe the same position: tan(f/2) relation holds and
	// the cached trig values are an actual sine/cosine pair.
	for _, e := range eccGrid {
		for _, m := range meanGrid {
			r, err := Solve(m, e)
			require.NoError(t, err)

			assert.InDelta(t, 1.0, r.SinF*r.SinF+r.CosF*r.CosF, 1e-12)
			assert.InDelta(t, 1.0, r.SinE*r.SinE+r.CosE*r.CosE, 1e-12)

			// cos(f) from the closed form.
			den := 1 - e*r.CosE
			assert.InDelta(t, (r.CosE-e)/den, r.CosF, 1e-12)
		}
	}
}

func TestSolve_CircularOrbit(t *testing.T) {
	// At e = 0 the equation is trivial: E = f = M.
	for _, m := range meanGrid {
		r, err := Solve(m, 0)
		require.NoError(t, err)
		assert.InDelta(t, m, r.E, 1e-15)
		assert.InDelta(t, m, r.F, 1e-12)
	}
}

func TestSolve_InvalidEccentricity(t *testing.T) {
	cases := []float64{-0.1, 1.0, 1.5, math.NaN()}
	for _, e := range cases {
		_, err := Solve(1.0, e)
		assert.ErrorIs(t, err, ErrInvalidEccentricity, "e=%v must be rejected", e)
	}
}

func TestClassify_RegionsDisjoint(t *testing.T) {
	cases := []struct {
		name string
		m, e float64
		want region
	}{
		{"low ecc", 1.0, 0.05, regionSeries},
		{"near pi", 3.0, 0.05, regionNearPi},
		{"near pi high ecc", 3.1, 0.99, regionNearPi},
		{"corner", 0.01, 0.99, regionCorner},
		{"general mid", 1.5, 0.5, regionGeneral},
		{"general high ecc away from corner", 1.0, 0.99, regionGeneral},
		{"corner boundary excluded", 0.31, 0.99, regionGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.m, tc.e))
		})
	}
}

func TestEMinusSin_MatchesDirectEvaluation(t *testing.T) {
	// Where direct subtraction is safe (|x| near 1) the series and the
	// direct form must agree; for tiny x the series must match the
	// leading Taylor term.
	for _, x := range []float64{0.5, 0.9, 0.99} {
		got := eMinusSin(x, math.Sin(x))
		assert.InDelta(t, x-math.Sin(x), got, 1e-16, "x=%v", x)
	}

	x := 1e-4
	got := eMinusSin(x, math.Sin(x))
	want := x * x * x / 6 * (1 - x*x/20)
	assert.InDelta(t, want, got, 1e-27, "leading series term at x=%v", x)
}
