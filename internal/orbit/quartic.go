package orbit

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// imagTol is the relative tolerance for accepting a companion-matrix
// eigenvalue as a real root. Degenerate geometries (for example circular
// orbits, where the quartic is a perfect square) produce double roots whose
// eigenvalues carry small spurious imaginary parts.
const imagTol = 1e-6

// realRoots returns the real roots of the polynomial
// c[0] + c[1]x + ... + c[n]x^n via the eigenvalues of its companion matrix.
// Leading coefficients that are negligible against the coefficient scale are
// deflated first. Roots are polished with modified Newton steps and
// returned in ascending order (duplicates from multiple roots retained).
func realRoots(c []float64) []float64 {
	scale := 0.0
	for _, ci := range c {
		if a := math.Abs(ci); a > scale {
			scale = a
		}
	}
	if scale == 0 {
		return nil
	}

	// Deflate negligible leading coefficients.
	n := len(c) - 1
	for n > 0 && math.Abs(c[n]) < 1e-14*scale {
		n--
	}
	switch n {
	case 0:
		return nil
	case 1:
		return []float64{-c[0] / c[1]}
	case 2:
		return quadraticRoots(c[2], c[1], c[0])
	}

	// Companion matrix: subdiagonal ones, last column -c[i]/c[n].
	comp := mat.NewDense(n, n, nil)
	for i := 1; i < n; i++ {
		comp.Set(i, i-1, 1)
	}
	for i := 0; i < n; i++ {
		comp.Set(i, n-1, -c[i]/c[n])
	}

	var eig mat.Eigen
	if !eig.Factorize(comp, mat.EigenNone) {
		return nil
	}

	var roots []float64
	for _, z := range eig.Values(nil) {
		re, im := real(z), imag(z)
		if math.Abs(im) > imagTol*(1+math.Abs(re)) {
			continue
		}
		roots = append(roots, polish(c[:n+1], re))
	}
	slices.Sort(roots)
	return roots
}

// polish refines an eigenvalue estimate with modified Newton steps: Newton
// applied to p/p', which converges quadratically on multiple roots as well
// as simple ones. Companion eigenvalues of a (near-)double root start
// several digits off, and plain Newton only crawls back linearly there.
func polish(c []float64, x float64) float64 {
	for step := 0; step < 4; step++ {
		p, dp, d2 := 0.0, 0.0, 0.0
		for i := len(c) - 1; i >= 0; i-- {
			d2 = d2*x + dp
			dp = dp*x + p
			p = p*x + c[i]
		}
		if p == 0 {
			break
		}
		// d2 accumulates p''/2. The modified step is m times the plain
		// Newton step for a multiplicity-m root; the multiplicity never
		// exceeds the degree, so a larger ratio means the denominator
		// cancelled to rounding noise and the plain step is safer.
		denom := dp*dp - 2*p*d2
		var dx float64
		switch {
		case denom != 0:
			dx = p * dp / denom
			if dp != 0 && math.Abs(dx) > 4*math.Abs(p/dp) {
				dx = p / dp
			}
		case dp != 0:
			dx = p / dp
		default:
			return x
		}
		x -= dx
	}
	return x
}

// quadraticRoots solves ax^2 + bx + c = 0, using the stable formulation that
// avoids cancellation between -b and the discriminant square root.
// Degenerate leading coefficients fall through to the linear case.
func quadraticRoots(a, b, c float64) []float64 {
	if a == 0 {
		if b == 0 {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	if disc == 0 {
		return []float64{-b / (2 * a)}
	}
	q := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
	r0, r1 := q/a, c/q
	if r0 > r1 {
		r0, r1 = r1, r0
	}
	return []float64{r0, r1}
}
