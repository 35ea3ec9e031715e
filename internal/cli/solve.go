package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orbitkit/internal/kepler"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	Ecc     float64
	Anomaly string
	Grad    bool
	Workers int
	Ledger  ledger
}

// SolveRow is one solved anomaly in the output payload.
type SolveRow struct {
	MeanAnomaly      float64  `json:"mean_anomaly"`
	EccentricAnomaly float64  `json:"eccentric_anomaly"`
	TrueAnomaly      float64  `json:"true_anomaly"`
	Gradient         *KepGrad `json:"gradient,omitempty"`
}

// KepGrad carries the exact solver derivatives.
type KepGrad struct {
	DEdM float64 `json:"dE_dM"`
	DEdE float64 `json:"dE_de"`
	DFdM float64 `json:"df_dM"`
	DFdE float64 `json:"df_de"`
}

// SolveResult is the full payload for one solve invocation.
type SolveResult struct {
	Ecc  float64    `json:"ecc"`
	Rows []SolveRow `json:"rows"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve Kepler's equation for a batch of mean anomalies",
		Long: `Solve Kepler's equation E - e*sin(E) = M for each supplied mean anomaly.

Outputs the eccentric and true anomalies, optionally with the exact
derivatives with respect to (M, e).

Example:
  orbitkit solve --ecc 0.3 --anomaly 0.1,1.2,3.0
  orbitkit solve --ecc 0.95 --anomaly 0.01 --grad --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Ecc, "ecc", 0, "eccentricity in [0, 1) (required)")
	cmd.Flags().StringVar(&opts.Anomaly, "anomaly", "", "comma-separated mean anomalies in radians (required)")
	cmd.Flags().BoolVar(&opts.Grad, "grad", false, "include exact derivatives")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel workers for large batches (0 = sequential)")
	cmd.Flags().StringVar(&opts.Ledger.Database, "db", "", "record the run in this SQLite ledger")
	_ = cmd.MarkFlagRequired("ecc")
	_ = cmd.MarkFlagRequired("anomaly")

	return cmd
}

func runSolve(opts *SolveOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := formatter(opts.RootOptions, cmd)

	ms, err := parseFloats(opts.Anomaly)
	if err != nil {
		_ = out.Error(ErrCodeInvalidInput, fmt.Sprintf("parsing --anomaly: %v", err), nil)
		return WrapExitError(ExitCommandError, "invalid anomaly list", err)
	}

	ecc := make([]float64, len(ms))
	for i := range ecc {
		ecc[i] = opts.Ecc
	}

	slog.Debug("solving", "count", len(ms), "ecc", opts.Ecc, "workers", opts.Workers)
	var results []kepler.Result
	if opts.Workers > 1 {
		results, err = kepler.SolveManyParallel(ms, ecc, opts.Workers)
	} else {
		results, err = kepler.SolveMany(ms, ecc)
	}
	if err != nil {
		_ = out.Error(ErrCodeCompute, err.Error(), nil)
		return WrapExitError(ExitCommandError, "solve failed", err)
	}

	payload := SolveResult{Ecc: opts.Ecc, Rows: make([]SolveRow, len(results))}
	for i, r := range results {
		row := SolveRow{
			MeanAnomaly:      r.M,
			EccentricAnomaly: r.E,
			TrueAnomaly:      r.F,
		}
		if opts.Grad {
			d := r.Derivatives()
			row.Gradient = &KepGrad{DEdM: d.EM, DEdE: d.Ee, DFdM: d.FM, DFdE: d.Fe}
		}
		payload.Rows[i] = row
	}

	runID, err := opts.Ledger.record(cmd.Context(), "solve", solveParams(opts, ms), payload)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "recording run", err)
	}

	return out.Success(payload, renderSolveText(payload, opts.Grad), runID)
}

// solveParams is the digest identity of a solve run.
func solveParams(opts *SolveOptions, ms []float64) any {
	return struct {
		Ecc     float64   `json:"ecc"`
		Anomaly []float64 `json:"anomaly"`
		Grad    bool      `json:"grad"`
	}{opts.Ecc, ms, opts.Grad}
}

func renderSolveText(res SolveResult, grad bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "e = %g, %d anomalies\n", res.Ecc, len(res.Rows))
	for _, r := range res.Rows {
		fmt.Fprintf(&sb, "M = %+.9f  E = %+.9f  f = %+.9f", r.MeanAnomaly, r.EccentricAnomaly, r.TrueAnomaly)
		if grad && r.Gradient != nil {
			fmt.Fprintf(&sb, "  dE/dM = %+.6e  dE/de = %+.6e  df/dM = %+.6e  df/de = %+.6e",
				r.Gradient.DEdM, r.Gradient.DEdE, r.Gradient.DFdM, r.Gradient.DFdE)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
