package celerite

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrFactorizationFailed signals a non-positive pivot: the kernel sum
	// is not positive definite for these inputs. Fatal for this parameter
	// set, recoverable at the calling optimizer/sampler level.
	ErrFactorizationFailed = errors.New("celerite: factorization failed (kernel not positive definite)")

	// ErrUnsorted is returned when the sample times are not strictly
	// ascending. Sorted input is a hard precondition of the recursions.
	ErrUnsorted = errors.New("celerite: sample times must be strictly ascending")

	// ErrDimensionMismatch is returned when input vector lengths differ.
	ErrDimensionMismatch = errors.New("celerite: dimension mismatch")
)

// Factors is the O(N*J^2) equivalent of the Cholesky factorization of the
// celerite covariance matrix: K = L*D*L' with L unit lower triangular and
// semiseparable.
//
// A Factors is owned by the Factorize call that produced it and is only
// meaningful for the exact (coefficients, t, diag) triple it was built from.
// It carries every intermediate the paired gradient call consumes - in
// particular the per-step S matrices - so forward and backward passes stay
// coupled through an explicit value, not a shared graph.
type Factors struct {
	coeffs Coefficients
	t      []float64 // copy of the (sorted) sample times
	mean   []float64 // diagonal A: per-sample variance plus k(0)

	width int

	u, v, w []float64 // N x J, row-major
	p       []float64 // (N-1) x J decay factors between consecutive samples
	d       []float64 // N diagonal pivots
	s       []float64 // (N-1) x J x J recursion state, kept for the adjoint sweep

	logdet float64
}

// N returns the sample count.
func (f *Factors) N() int { return len(f.d) }

// Width returns the total semiseparable column count J.
func (f *Factors) Width() int { return f.width }

// LogDet returns log det K, accumulated during factorization.
func (f *Factors) LogDet() float64 { return f.logdet }

// Factorize builds the semiseparable factorization for a kernel over
// strictly ascending times t with per-sample observation variance diag.
func Factorize(k Kernel, t, diag []float64) (*Factors, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return FactorizeCoefficients(k.Coefficients(), t, diag)
}

// FactorizeCoefficients is Factorize for pre-reduced coefficients.
func FactorizeCoefficients(c Coefficients, t, diag []float64) (*Factors, error) {
	n := len(t)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty time vector", ErrDimensionMismatch)
	}
	if len(diag) != n {
		return nil, fmt.Errorf("%w: %d times, %d variances", ErrDimensionMismatch, n, len(diag))
	}
	for i := 1; i < n; i++ {
		if !(t[i] > t[i-1]) {
			return nil, fmt.Errorf("%w: t[%d]=%v, t[%d]=%v", ErrUnsorted, i-1, t[i-1], i, t[i])
		}
	}

	j := c.Width()
	if j == 0 {
		return nil, fmt.Errorf("%w: kernel reduces to zero components", ErrInvalidTerm)
	}

	f := &Factors{
		coeffs: c,
		t:      append([]float64(nil), t...),
		mean:   make([]float64, n),
		width:  j,
		u:      make([]float64, n*j),
		v:      make([]float64, n*j),
		w:      make([]float64, n*j),
		p:      make([]float64, (n-1)*j),
		d:      make([]float64, n),
		s:      make([]float64, (n-1)*j*j),
	}

	k0 := 0.0
	for _, a := range c.RealA {
		k0 += a
	}
	for _, a := range c.ComplexA {
		k0 += a
	}
	for i := 0; i < n; i++ {
		f.mean[i] = diag[i] + k0
	}

	f.fillGenerators()
	if err := f.factor(); err != nil {
		return nil, err
	}
	return f, nil
}

// fillGenerators populates the semiseparable generators U, V and the decay
// factors P from the reduced coefficients. For an oscillatory component the
// two columns carry the phase-split trig products so that
// u_n . (decay o v_m) reproduces exp(-c*tau)*(a*cos(d*tau) + b*sin(d*tau))
// for tau = t_n - t_m.
func (f *Factors) fillGenerators() {
	c := f.coeffs
	nReal := len(c.RealA)

	for i := range f.t {
		row := i * f.width
		for r := 0; r < nReal; r++ {
			f.u[row+r] = c.RealA[r]
			f.v[row+r] = 1
		}
		for cc := range c.ComplexA {
			col := row + nReal + 2*cc
			sin, cos := math.Sincos(c.ComplexD[cc] * f.t[i])
			a, b := c.ComplexA[cc], c.ComplexB[cc]
			f.u[col] = a*cos + b*sin
			f.u[col+1] = a*sin - b*cos
			f.v[col] = cos
			f.v[col+1] = sin
		}
	}

	for i := 0; i+1 < len(f.t); i++ {
		dt := f.t[i+1] - f.t[i]
		row := i * f.width
		for r := 0; r < nReal; r++ {
			f.p[row+r] = math.Exp(-c.RealC[r] * dt)
		}
		for cc := range c.ComplexA {
			col := row + nReal + 2*cc
			decay := math.Exp(-c.ComplexC[cc] * dt)
			f.p[col] = decay
			f.p[col+1] = decay
		}
	}
}

// factor runs the O(N*J^2) Cholesky-equivalent recursion:
//
//	S_n  = p_{n-1} p_{n-1}' o (S_{n-1} + d_{n-1} w_{n-1} w_{n-1}')
//	T_n  = S_n u_n
//	d_n  = A_n - u_n . T_n
//	w_n  = (v_n - T_n) / d_n
//
// Every S_n is retained: the gradient pass replays these exact updates in
// reverse.
func (f *Factors) factor() error {
	n, j := f.N(), f.width

	if f.mean[0] <= 0 {
		return fmt.Errorf("%w: pivot 0 is %v", ErrFactorizationFailed, f.mean[0])
	}
	f.d[0] = f.mean[0]
	for k := 0; k < j; k++ {
		f.w[k] = f.v[k] / f.d[0]
	}
	f.logdet = math.Log(f.d[0])

	tmp := make([]float64, j)
	for i := 1; i < n; i++ {
		base := (i - 1) * j * j
		prevBase := (i - 2) * j * j
		pRow := f.p[(i-1)*j : i*j]
		wPrev := f.w[(i-1)*j : i*j]
		dPrev := f.d[i-1]

		for a := 0; a < j; a++ {
			for b := 0; b < j; b++ {
				s := dPrev * wPrev[a] * wPrev[b]
				if i > 1 {
					s += f.s[prevBase+a*j+b]
				}
				f.s[base+a*j+b] = pRow[a] * pRow[b] * s
			}
		}

		uRow := f.u[i*j : (i+1)*j]
		vRow := f.v[i*j : (i+1)*j]

		di := f.mean[i]
		for a := 0; a < j; a++ {
			t := 0.0
			for b := 0; b < j; b++ {
				t += f.s[base+a*j+b] * uRow[b]
			}
			tmp[a] = t
			di -= uRow[a] * t
		}
		if di <= 0 || math.IsNaN(di) {
			return fmt.Errorf("%w: pivot %d is %v", ErrFactorizationFailed, i, di)
		}

		f.d[i] = di
		f.logdet += math.Log(di)
		wRow := f.w[i*j : (i+1)*j]
		for a := 0; a < j; a++ {
			wRow[a] = (vRow[a] - tmp[a]) / di
		}
	}
	return nil
}
