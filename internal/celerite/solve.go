package celerite

import (
	"fmt"
	"math"
)

// Solve returns z = K^-1 y.
func (f *Factors) Solve(y []float64) ([]float64, error) {
	z := append([]float64(nil), y...)
	if err := f.ApplyInverse(z); err != nil {
		return nil, err
	}
	return z, nil
}

// ApplyInverse overwrites y with K^-1 y in place.
//
// Three sweeps against K = L*D*L': forward substitution through L, the
// diagonal division, and backward substitution through L'. The
// semiseparable structure collapses each triangular solve to a single pass
// carrying a J-vector accumulator.
func (f *Factors) ApplyInverse(y []float64) error {
	n, j := f.N(), f.width
	if len(y) != n {
		return fmt.Errorf("%w: %d samples, %d values", ErrDimensionMismatch, n, len(y))
	}

	acc := make([]float64, j)

	// L x = y
	for i := 1; i < n; i++ {
		pRow := f.p[(i-1)*j : i*j]
		wPrev := f.w[(i-1)*j : i*j]
		uRow := f.u[i*j : (i+1)*j]
		yi := y[i]
		for k := 0; k < j; k++ {
			acc[k] = pRow[k] * (acc[k] + wPrev[k]*y[i-1])
			yi -= uRow[k] * acc[k]
		}
		y[i] = yi
	}

	// D zeta = x
	for i := 0; i < n; i++ {
		y[i] /= f.d[i]
	}

	// L' z = zeta
	for k := 0; k < j; k++ {
		acc[k] = 0
	}
	for i := n - 2; i >= 0; i-- {
		pRow := f.p[i*j : (i+1)*j]
		uNext := f.u[(i+1)*j : (i+2)*j]
		wRow := f.w[i*j : (i+1)*j]
		yi := y[i]
		for k := 0; k < j; k++ {
			acc[k] = pRow[k] * (acc[k] + uNext[k]*y[i+1])
			yi -= wRow[k] * acc[k]
		}
		y[i] = yi
	}
	return nil
}

// Dot returns K y without assembling K: the diagonal term plus one
// lower-triangular sweep and one upper-triangular sweep, each carrying the
// exponential decay forward through a J-vector.
func (f *Factors) Dot(y []float64) ([]float64, error) {
	n, j := f.N(), f.width
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d samples, %d values", ErrDimensionMismatch, n, len(y))
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = f.mean[i] * y[i]
	}

	acc := make([]float64, j)
	for i := 1; i < n; i++ {
		pRow := f.p[(i-1)*j : i*j]
		vPrev := f.v[(i-1)*j : i*j]
		uRow := f.u[i*j : (i+1)*j]
		for k := 0; k < j; k++ {
			acc[k] = pRow[k] * (acc[k] + vPrev[k]*y[i-1])
			out[i] += uRow[k] * acc[k]
		}
	}

	for k := 0; k < j; k++ {
		acc[k] = 0
	}
	for i := n - 2; i >= 0; i-- {
		pRow := f.p[i*j : (i+1)*j]
		uNext := f.u[(i+1)*j : (i+2)*j]
		vRow := f.v[i*j : (i+1)*j]
		for k := 0; k < j; k++ {
			acc[k] = pRow[k] * (acc[k] + uNext[k]*y[i+1])
			out[i] += vRow[k] * acc[k]
		}
	}
	return out, nil
}

// LogLikelihood returns the Gaussian log-likelihood of residuals y under
// the factored covariance:
//
//	-0.5 * (y' K^-1 y + log det K + N*log(2*pi))
//
// Only the forward substitution is needed: y' K^-1 y = sum x_i^2 / d_i
// with L x = y.
func (f *Factors) LogLikelihood(y []float64) (float64, error) {
	n, j := f.N(), f.width
	if len(y) != n {
		return 0, fmt.Errorf("%w: %d samples, %d values", ErrDimensionMismatch, n, len(y))
	}

	acc := make([]float64, j)
	quad := y[0] * y[0] / f.d[0]
	prev := y[0]
	for i := 1; i < n; i++ {
		pRow := f.p[(i-1)*j : i*j]
		wPrev := f.w[(i-1)*j : i*j]
		uRow := f.u[i*j : (i+1)*j]
		xi := y[i]
		for k := 0; k < j; k++ {
			acc[k] = pRow[k] * (acc[k] + wPrev[k]*prev)
			xi -= uRow[k] * acc[k]
		}
		quad += xi * xi / f.d[i]
		prev = xi
	}

	return -0.5 * (quad + f.logdet + float64(n)*math.Log(2*math.Pi)), nil
}
