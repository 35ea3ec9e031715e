package kepler

import (
	"fmt"
	"sync"
)

// SolveMany solves Kepler's equation for every (M[i], e[i]) pair. Inputs
// must have equal length. The first invalid eccentricity aborts the batch.
func SolveMany(m, e []float64) ([]Result, error) {
	if len(m) != len(e) {
		return nil, fmt.Errorf("kepler: length mismatch: %d mean anomalies, %d eccentricities", len(m), len(e))
	}
	out := make([]Result, len(m))
	for i := range m {
		r, err := Solve(m[i], e[i])
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// SolveManyParallel is SolveMany fanned out over workers goroutines. Each
// solve is a pure function over value inputs, so the split is embarrassingly
// parallel; results land at their input index regardless of scheduling.
//
// workers < 1 falls back to the serial path. Eccentricities are validated up
// front so workers never observe a partial batch on failure.
func SolveManyParallel(m, e []float64, workers int) ([]Result, error) {
	if workers < 2 || len(m) < workers {
		return SolveMany(m, e)
	}
	if len(m) != len(e) {
		return nil, fmt.Errorf("kepler: length mismatch: %d mean anomalies, %d eccentricities", len(m), len(e))
	}
	for i, ei := range e {
		if ei < 0 || ei >= 1 {
			return nil, fmt.Errorf("index %d: %w: e=%v", i, ErrInvalidEccentricity, ei)
		}
	}

	out := make([]Result, len(m))
	chunk := (len(m) + workers - 1) / workers

	var wg sync.WaitGroup
	for lo := 0; lo < len(m); lo += chunk {
		hi := lo + chunk
		if hi > len(m) {
			hi = len(m)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				// Validation already ran; Solve cannot fail here.
				out[i], _ = Solve(m[i], e[i])
			}
		}(lo, hi)
	}
	wg.Wait()

	return out, nil
}
