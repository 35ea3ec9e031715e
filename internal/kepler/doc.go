// Package kepler solves Kepler's transcendental equation M = E - e*sin(E)
// and propagates exact derivatives of the solution.
//
// ARCHITECTURE:
//
// Non-Iterative Solve:
// The solver runs in a fixed number of floating point operations for every
// input. There is no convergence loop - the (M, e) domain is partitioned into
// four starter regions, each with a closed-form initial estimate, followed by
// exactly one region-specific correction and one fourth-order polish. This
// keeps cost flat across the domain and makes every numerical edge case
// independently auditable.
//
// Exact Derivatives:
// Derivatives come from implicit differentiation of the defining equation,
// never from differentiating the solver's control flow. The solve caches
// sin(E) and cos(E) so the gradient evaluation is a handful of arithmetic
// operations on already-computed values.
//
// CRITICAL PATTERNS:
//
// Range Reduction:
// M is reduced modulo 2*pi and folded into [0, pi] using the odd symmetry
// E(-M) = -E(M). The returned E and f live on the same branch as the input M,
// so E - M stays bounded for any revolution count.
//
// Cancellation-Safe Residuals:
// The residual E - e*sin(E) - M is evaluated as (E - sin(E)) + (1-e)*sin(E) - M
// with the leading difference computed by series for small |E|. Direct
// subtraction loses most significant digits exactly where high eccentricity
// orbits need them.
//
// Accuracy degrades gracefully as e approaches 1; that is a documented
// boundary behavior, not an error. Only e outside [0, 1) is rejected.
package kepler
