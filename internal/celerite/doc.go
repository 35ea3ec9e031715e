// Package celerite implements the linear-time factorization of covariance
// matrices built from sums of damped-oscillator kernels, plus exact gradient
// propagation for the resulting Gaussian-process log-likelihood.
//
// ARCHITECTURE:
//
// Semiseparable Representation:
// A kernel that is a sum of J' exponential/oscillator components makes the
// N x N covariance matrix semiseparable: diagonal plus low-rank coupling
// blocks with exponential decay between consecutive samples. The Cholesky
// factorization then runs in O(N*J^2) time and space (J = total column
// width: one column per real component, two per oscillatory component)
// instead of O(N^3)/O(N^2).
//
// Owned Factors:
// Factorize returns a *Factors value owning every intermediate the paired
// solve and gradient calls need, including the per-step J x J S matrices.
// Nothing is cached globally; a Factors is tied to the exact (kernel, t,
// diag) triple that produced it and must not be mixed with other inputs.
//
// Hand-Derived Adjoints:
// The gradient is reverse-mode propagation through the explicit recursive
// update equations - each forward step has a hand-derived adjoint step,
// applied in reverse order over one O(N) sweep. The quadratic-form half of
// the log-likelihood gradient uses the identity
// d(y' K^-1 y)/dtheta = -z' (dK/dtheta) z with z = K^-1 y, so the
// substitution sweeps are never differentiated directly.
//
// The primary correctness property: log-likelihood, solve, and log-
// determinant reproduce a dense Cholesky computation on the explicitly
// assembled matrix to numerical precision.
package celerite
