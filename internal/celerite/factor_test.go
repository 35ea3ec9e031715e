package celerite

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/roach88/orbitkit/internal/testutil"
)

// sampleTimes returns n strictly ascending times with irregular spacing.
func sampleTimes(n int, seed int64) []float64 {
	rng := testutil.Rand(seed)
	t := make([]float64, n)
	cur := 0.0
	for i := range t {
		cur += 0.01 + rng.Float64()
		t[i] = cur
	}
	return t
}

func constDiag(n int, v float64) []float64 {
	d := make([]float64, n)
	for i := range d {
		d[i] = v
	}
	return d
}

// denseCovariance assembles the full covariance matrix from the kernel
// value; the reference path the factorization must reproduce.
func denseCovariance(c Coefficients, t, diag []float64) *mat.SymDense {
	n := len(t)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := c.KernelValue(t[j] - t[i])
			if i == j {
				v += diag[i]
			}
			k.SetSym(i, j, v)
		}
	}
	return k
}

func testKernel() Kernel {
	return Kernel{
		RealTerm{A: 1.3, C: 0.7},
		ComplexTerm{A: 0.8, B: 0.2, C: 0.5, D: 2.1},
		SHOTerm{S0: 1.1, W0: 2.7, Q: 3.0},
		SHOTerm{S0: 0.6, W0: 1.9, Q: 0.2},
		RotationTerm{Amp: 0.9, Period: 3.4, Q0: 1.2, DeltaQ: 0.8, Mix: 0.4},
	}
}

func TestFactorize_MatchesDenseCholesky(t *testing.T) {
	k := testKernel()
	ts := sampleTimes(150, 42)
	diag := constDiag(len(ts), 0.3)

	f, err := Factorize(k, ts, diag)
	require.NoError(t, err)
	assert.Equal(t, 1+2+2+2+4, f.Width())

	dense := denseCovariance(k.Coefficients(), ts, diag)
	var chol mat.Cholesky
	require.True(t, chol.Factorize(dense), "dense reference must be positive definite")

	assert.Less(t, testutil.RelativeError(f.LogDet(), chol.LogDet(), 1e-10), 1e-8)
}

func TestSolve_MatchesDenseSolve(t *testing.T) {
	k := testKernel()
	ts := sampleTimes(120, 7)
	diag := constDiag(len(ts), 0.25)
	rng := testutil.Rand(7)
	y := make([]float64, len(ts))
	for i := range y {
		y[i] = rng.NormFloat64()
	}

	f, err := Factorize(k, ts, diag)
	require.NoError(t, err)
	z, err := f.Solve(y)
	require.NoError(t, err)

	dense := denseCovariance(k.Coefficients(), ts, diag)
	var chol mat.Cholesky
	require.True(t, chol.Factorize(dense))
	var want mat.VecDense
	require.NoError(t, chol.SolveVecTo(&want, mat.NewVecDense(len(y), y)))

	for i := range z {
		assert.Less(t, testutil.RelativeError(z[i], want.AtVec(i), 1e-8), 1e-7, "z[%d]", i)
	}
}

func TestDot_InvertsSolve(t *testing.T) {
	k := testKernel()
	ts := sampleTimes(100, 13)
	diag := constDiag(len(ts), 0.4)
	rng := testutil.Rand(13)
	y := make([]float64, len(ts))
	for i := range y {
		y[i] = rng.NormFloat64()
	}

	f, err := Factorize(k, ts, diag)
	require.NoError(t, err)

	z, err := f.Solve(y)
	require.NoError(t, err)
	back, err := f.Dot(z)
	require.NoError(t, err)

	for i := range y {
		assert.InDelta(t, y[i], back[i], 1e-8, "round trip at %d", i)
	}
}

func TestLogLikelihood_MatchesDense(t *testing.T) {
	k := testKernel()
	ts := sampleTimes(80, 99)
	diag := constDiag(len(ts), 0.5)
	rng := testutil.Rand(99)
	y := make([]float64, len(ts))
	for i := range y {
		y[i] = rng.NormFloat64()
	}

	f, err := Factorize(k, ts, diag)
	require.NoError(t, err)
	got, err := f.LogLikelihood(y)
	require.NoError(t, err)

	dense := denseCovariance(k.Coefficients(), ts, diag)
	var chol mat.Cholesky
	require.True(t, chol.Factorize(dense))
	var z mat.VecDense
	require.NoError(t, chol.SolveVecTo(&z, mat.NewVecDense(len(y), y)))
	quad := mat.Dot(mat.NewVecDense(len(y), y), &z)
	want := -0.5 * (quad + chol.LogDet() + float64(len(y))*math.Log(2*math.Pi))

	assert.Less(t, testutil.RelativeError(got, want, 1e-6), 1e-8)
}

func TestApplyInverse_MatchesSolveInPlace(t *testing.T) {
	k := Kernel{SHOTerm{S0: 1, W0: 2, Q: 4}}
	ts := sampleTimes(40, 3)
	diag := constDiag(len(ts), 0.1)
	rng := testutil.Rand(3)
	y := make([]float64, len(ts))
	for i := range y {
		y[i] = rng.NormFloat64()
	}

	f, err := Factorize(k, ts, diag)
	require.NoError(t, err)

	z, err := f.Solve(y)
	require.NoError(t, err)
	require.NoError(t, f.ApplyInverse(y))
	assert.Equal(t, z, y)
}

func TestFactorize_UnsortedTimes(t *testing.T) {
	k := Kernel{RealTerm{A: 1, C: 1}}

	_, err := Factorize(k, []float64{0, 2, 1}, constDiag(3, 0.1))
	assert.ErrorIs(t, err, ErrUnsorted)

	// Duplicates count as unsorted: strictly ascending is the contract.
	_, err = Factorize(k, []float64{0, 1, 1}, constDiag(3, 0.1))
	assert.ErrorIs(t, err, ErrUnsorted)
}

func TestFactorize_DimensionMismatch(t *testing.T) {
	k := Kernel{RealTerm{A: 1, C: 1}}
	_, err := Factorize(k, []float64{0, 1, 2}, constDiag(2, 0.1))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Factorize(k, nil, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFactorize_NotPositiveDefinite(t *testing.T) {
	// A large negative observation variance drives the first pivot below
	// zero; later pivots can fail the same way for adversarial kernels.
	k := Kernel{RealTerm{A: 1, C: 1}}
	_, err := Factorize(k, []float64{0, 1, 2}, []float64{-5, 0.1, 0.1})
	assert.ErrorIs(t, err, ErrFactorizationFailed)
}

func TestFactorize_InvalidKernel(t *testing.T) {
	_, err := Factorize(Kernel{}, []float64{0, 1}, constDiag(2, 0.1))
	assert.ErrorIs(t, err, ErrInvalidTerm)

	_, err = Factorize(Kernel{RealTerm{A: 1, C: -1}}, []float64{0, 1}, constDiag(2, 0.1))
	assert.ErrorIs(t, err, ErrInvalidTerm)
}

func TestSolve_WrongLength(t *testing.T) {
	k := Kernel{RealTerm{A: 1, C: 1}}
	f, err := Factorize(k, []float64{0, 1, 2}, constDiag(3, 0.1))
	require.NoError(t, err)

	_, err = f.Solve([]float64{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = f.Dot([]float64{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = f.LogLikelihood([]float64{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
