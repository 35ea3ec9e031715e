package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/orbitkit/internal/store"
)

// writeModel drops a model document into a temp dir and returns its path.
func writeModel(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// listLedger returns all recorded runs from a ledger file.
func listLedger(t *testing.T, db string) []store.Run {
	t.Helper()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	return runs
}

const orbitModel = `
elements:
  semi_major: 100.0
  ecc: 0.05
  inclination: 1.5
  omega_peri: 1.5707963267948966
  omega_node: 0.0
  period: 10.0
  t_peri: 0.0
exposure:
  duration: 0.02
  tol: 1.0e-10
`

const gpModel = `
elements:
  semi_major: 100.0
  ecc: 0.05
  inclination: 1.5
  omega_peri: 1.5707963267948966
  omega_node: 0.0
  period: 10.0
  t_peri: 0.0
kernel:
  - type: sho
    s0: 1.1
    w0: 2.4
    q: 3.0
  - type: real
    a: 0.5
    c: 1.3
observations:
  times: [0.0, 0.7, 1.9, 3.2, 4.1]
  values: [0.12, -0.31, 0.05, 0.44, -0.2]
  variances: [0.04, 0.04, 0.04, 0.04, 0.04]
`
