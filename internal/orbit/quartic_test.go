package orbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coeffsFromRoots expands prod_i (x - r_i) into ascending coefficients.
func coeffsFromRoots(roots ...float64) []float64 {
	c := []float64{1}
	for _, r := range roots {
		next := make([]float64, len(c)+1)
		for i, ci := range c {
			next[i] -= r * ci
			next[i+1] += ci
		}
		c = next
	}
	return c
}

func TestRealRoots_SimpleQuartic(t *testing.T) {
	want := []float64{-2, -0.5, 1, 3}
	got := realRoots(coeffsFromRoots(want...))
	require.Len(t, got, 4)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-10)
	}
}

func TestRealRoots_DoubleRoots(t *testing.T) {
	// (x^2 - 1)^2: double roots at +/-1. Companion eigenvalues of a
	// perfect square start a few digits off; the modified Newton polish
	// must pull them back to the O(sqrt(eps)) conditioning limit.
	got := realRoots([]float64{1, 0, -2, 0, 1})
	require.Len(t, got, 4)
	assert.InDelta(t, -1, got[0], 1e-7)
	assert.InDelta(t, -1, got[1], 1e-7)
	assert.InDelta(t, 1, got[2], 1e-7)
	assert.InDelta(t, 1, got[3], 1e-7)
}

func TestRealRoots_NearDoublePairs(t *testing.T) {
	// Two tight pairs: eigenvalue estimates land between the pair members
	// and plain Newton stalls there. The polish must resolve each member.
	want := []float64{-1 - 1e-5, -1 + 1e-5, 1 - 1e-5, 1 + 1e-5}
	got := realRoots(coeffsFromRoots(want...))
	require.Len(t, got, 4)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "root %d", i)
	}
}

func TestQuadraticRoots_DegenerateLeading(t *testing.T) {
	got := quadraticRoots(0, 2, -8)
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0])

	assert.Empty(t, quadraticRoots(0, 0, 3))
}

func TestRealRoots_ComplexPairFiltered(t *testing.T) {
	// (x^2 + 1)(x - 2)(x + 3): only the real pair survives.
	c := []float64{-6, 1, -5, 1, 1}
	// Build explicitly: (x^2+1)*(x^2+x-6) = x^4 + x^3 - 5x^2 + x - 6.
	got := realRoots(c)
	require.Len(t, got, 2)
	assert.InDelta(t, -3, got[0], 1e-10)
	assert.InDelta(t, 2, got[1], 1e-10)
}

func TestRealRoots_DegenerateLeadingCoefficients(t *testing.T) {
	// Leading terms vanish: falls through to the quadratic solver.
	got := realRoots([]float64{-6, 1, 1, 0, 0})
	require.Len(t, got, 2)
	assert.InDelta(t, -3, got[0], 1e-12)
	assert.InDelta(t, 2, got[1], 1e-12)

	// Linear.
	got = realRoots([]float64{-8, 2, 0, 0, 0})
	require.Len(t, got, 1)
	assert.InDelta(t, 4, got[0], 1e-12)

	// Constant: no roots.
	assert.Empty(t, realRoots([]float64{3, 0, 0, 0, 0}))
	assert.Empty(t, realRoots([]float64{0, 0, 0, 0, 0}))
}

func TestQuadraticRoots_Stable(t *testing.T) {
	// Roots of widely different magnitude: the naive formula loses the
	// small root to cancellation, the stable one must not.
	got := quadraticRoots(1, -1e8, 1)
	require.Len(t, got, 2)
	assert.InDelta(t, 1e-8, got[0], 1e-16)
	assert.InDelta(t, 1e8, got[1], 1)

	assert.Empty(t, quadraticRoots(1, 0, 1))
}
