package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orbitkit/internal/celerite"
	"github.com/roach88/orbitkit/internal/config"
)

// LoglikeOptions holds flags for the loglike command.
type LoglikeOptions struct {
	*RootOptions
	Grad    bool
	NoCache bool
	Ledger  ledger
}

// LoglikeResult is the payload for one loglike invocation.
type LoglikeResult struct {
	LogLikelihood float64 `json:"log_likelihood"`
	Samples       int     `json:"samples"`

	// TermGradients holds per-term native parameter gradients, in term
	// order, when requested.
	TermGradients [][]float64 `json:"term_gradients,omitempty"`
}

// NewLoglikeCommand creates the loglike command.
func NewLoglikeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoglikeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "loglike <model.yaml>",
		Short: "Evaluate the Gaussian-process log-likelihood of a model",
		Long: `Evaluate the GP log-likelihood of the model's observations under its
noise kernel, in linear time via the semiseparable factorization.

With --db, identical evaluations are memoized: a request whose inputs
digest to a recorded run returns the stored result without recomputing.

Example:
  orbitkit loglike model.yaml
  orbitkit loglike model.yaml --grad --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoglike(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Grad, "grad", false, "include native kernel parameter gradients")
	cmd.Flags().StringVar(&opts.Ledger.Database, "db", "", "memoize runs in this SQLite ledger")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "recompute even when a recorded run matches")

	return cmd
}

func runLoglike(opts *LoglikeOptions, modelPath string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := formatter(opts.RootOptions, cmd)

	model, err := config.Load(modelPath)
	if err != nil {
		_ = out.Error(ErrCodeInvalidModel, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading model", err)
	}

	kernel, err := model.CeleriteKernel()
	if err != nil {
		_ = out.Error(ErrCodeInvalidModel, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid kernel", err)
	}
	times, values, variances, err := model.ObservationSeries()
	if err != nil {
		_ = out.Error(ErrCodeInvalidModel, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid observations", err)
	}

	params := loglikeParams(model, opts.Grad)

	if !opts.NoCache {
		var cached LoglikeResult
		runID, ok, err := opts.Ledger.lookup(cmd.Context(), "loglike", params, &cached)
		if err != nil {
			_ = out.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "ledger lookup", err)
		}
		if ok {
			out.VerboseLog("reusing recorded run %s", runID)
			return out.Success(cached, renderLoglikeText(cached), runID)
		}
	}

	slog.Debug("factorizing", "samples", len(times), "terms", len(kernel))
	factors, err := celerite.Factorize(kernel, times, variances)
	if err != nil {
		_ = out.Error(ErrCodeCompute, err.Error(), nil)
		return WrapExitError(ExitFailure, "factorization failed", err)
	}

	payload := LoglikeResult{Samples: len(times)}
	if opts.Grad {
		ll, coeffGrad, _, err := celerite.GradLogLikelihood(factors, values)
		if err != nil {
			_ = out.Error(ErrCodeCompute, err.Error(), nil)
			return WrapExitError(ExitFailure, "gradient evaluation failed", err)
		}
		payload.LogLikelihood = ll
		payload.TermGradients = kernel.ParamGradients(coeffGrad)
	} else {
		ll, err := factors.LogLikelihood(values)
		if err != nil {
			_ = out.Error(ErrCodeCompute, err.Error(), nil)
			return WrapExitError(ExitFailure, "likelihood evaluation failed", err)
		}
		payload.LogLikelihood = ll
	}

	runID, err := opts.Ledger.record(cmd.Context(), "loglike", params, payload)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "recording run", err)
	}

	return out.Success(payload, renderLoglikeText(payload), runID)
}

// loglikeParams is the digest identity of a loglike run: kernel terms and
// observations, not the file path they came from.
func loglikeParams(model *config.Model, grad bool) any {
	return struct {
		Kernel       []config.TermConfig        `json:"kernel"`
		Observations *config.ObservationsConfig `json:"observations"`
		Grad         bool                       `json:"grad"`
	}{model.Kernel, model.Observations, grad}
}

func renderLoglikeText(res LoglikeResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "log-likelihood = %.12f (%d samples)", res.LogLikelihood, res.Samples)
	for i, g := range res.TermGradients {
		fmt.Fprintf(&sb, "\nterm %d gradient:", i)
		for _, v := range g {
			fmt.Fprintf(&sb, " %+.6e", v)
		}
	}
	return sb.String()
}
