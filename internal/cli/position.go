package cli

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orbitkit/internal/config"
	"github.com/roach88/orbitkit/internal/exposure"
	"github.com/roach88/orbitkit/internal/orbit"
)

// PositionOptions holds flags for the position command.
type PositionOptions struct {
	*RootOptions
	Times    string
	Grad     bool
	Averaged bool
	Ledger   ledger
}

// PositionRow is the observer-frame position at one epoch.
type PositionRow struct {
	Time float64 `json:"time"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Rho  float64 `json:"rho"`

	// Gradient holds d{x,y,z}/d{elements} rows when requested.
	Gradient map[string][]float64 `json:"gradient,omitempty"`

	// AveragedRho is the exposure-averaged projected separation; set only
	// in averaged mode. Degraded reports a hit recursion budget.
	AveragedRho *float64 `json:"averaged_rho,omitempty"`
	Degraded    bool     `json:"degraded,omitempty"`
}

// PositionResult is the payload for one position invocation.
type PositionResult struct {
	Rows []PositionRow `json:"rows"`
}

// elementOrder is the fixed gradient component order in CLI payloads.
var elementOrder = []string{"semi_major", "ecc", "inclination", "omega_peri", "omega_node", "period", "t_peri"}

func gradientSlice(g orbit.ElementGradient) []float64 {
	return []float64{g.SemiMajor, g.Ecc, g.Inclination, g.OmegaPeri, g.OmegaNode, g.Period, g.TPeri}
}

// NewPositionCommand creates the position command.
func NewPositionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PositionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "position <model.yaml>",
		Short: "Evaluate observer-frame positions for a model",
		Long: `Evaluate the observer-frame relative position at each epoch.

With --grad, the exact element gradients of every coordinate are included.
With --averaged, the projected separation is additionally integrated over
the model's exposure window.

Example:
  orbitkit position model.yaml --times 0.0,1.5,3.2
  orbitkit position model.yaml --times 1.0 --grad --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPosition(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Times, "times", "", "comma-separated epochs (required)")
	cmd.Flags().BoolVar(&opts.Grad, "grad", false, "include exact element gradients")
	cmd.Flags().BoolVar(&opts.Averaged, "averaged", false, "average the separation over the exposure window")
	cmd.Flags().StringVar(&opts.Ledger.Database, "db", "", "record the run in this SQLite ledger")
	_ = cmd.MarkFlagRequired("times")

	return cmd
}

func runPosition(opts *PositionOptions, modelPath string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := formatter(opts.RootOptions, cmd)

	times, err := parseFloats(opts.Times)
	if err != nil {
		_ = out.Error(ErrCodeInvalidInput, fmt.Sprintf("parsing --times: %v", err), nil)
		return WrapExitError(ExitCommandError, "invalid times list", err)
	}

	model, err := config.Load(modelPath)
	if err != nil {
		_ = out.Error(ErrCodeInvalidModel, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading model", err)
	}
	el, err := model.OrbitElements()
	if err != nil {
		_ = out.Error(ErrCodeInvalidModel, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid elements", err)
	}

	slog.Debug("evaluating positions", "model", modelPath, "epochs", len(times))
	payload := PositionResult{Rows: make([]PositionRow, len(times))}
	for i, t := range times {
		row, err := positionRow(model, el, t, opts)
		if err != nil {
			_ = out.Error(ErrCodeCompute, err.Error(), nil)
			return WrapExitError(ExitFailure, "position evaluation failed", err)
		}
		payload.Rows[i] = row
	}

	runID, err := opts.Ledger.record(cmd.Context(), "position", positionParams(opts, times, el), payload)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "recording run", err)
	}

	return out.Success(payload, renderPositionText(payload, opts.Grad), runID)
}

func positionRow(model *config.Model, el orbit.Elements, t float64, opts *PositionOptions) (PositionRow, error) {
	pos, jac, err := orbit.RelativePositionGrad(el, t)
	if err != nil {
		return PositionRow{}, err
	}

	row := PositionRow{
		Time: t,
		X:    pos.X, Y: pos.Y, Z: pos.Z,
		Rho: math.Hypot(pos.X, pos.Y),
	}
	if opts.Grad {
		row.Gradient = map[string][]float64{
			"x": gradientSlice(jac.X),
			"y": gradientSlice(jac.Y),
			"z": gradientSlice(jac.Z),
		}
	}

	if opts.Averaged {
		res, err := exposure.Integrate(separationEvaluator(el), model.ExposureWindow(t))
		if err != nil {
			return PositionRow{}, err
		}
		row.AveragedRho = &res.Value
		row.Degraded = res.Degraded
	}
	return row, nil
}

// separationEvaluator exposes the projected separation (and its element
// gradient) as an integrable signal.
func separationEvaluator(el orbit.Elements) exposure.Evaluator {
	return exposure.EvaluatorFunc(func(t float64) (exposure.Sample, error) {
		pos, jac, err := orbit.RelativePositionGrad(el, t)
		if err != nil {
			return exposure.Sample{}, err
		}
		rho := math.Hypot(pos.X, pos.Y)

		// d rho = (x dx + y dy)/rho; at rho = 0 the separation is not
		// differentiable and the subgradient 0 is used.
		gx, gy := gradientSlice(jac.X), gradientSlice(jac.Y)
		grad := make([]float64, len(gx))
		if rho > 0 {
			for i := range grad {
				grad[i] = (pos.X*gx[i] + pos.Y*gy[i]) / rho
			}
		}
		return exposure.Sample{Value: rho, Grad: grad}, nil
	})
}

// positionParams is the digest identity of a position run.
func positionParams(opts *PositionOptions, times []float64, el orbit.Elements) any {
	return struct {
		Elements orbit.Elements `json:"elements"`
		Times    []float64      `json:"times"`
		Grad     bool           `json:"grad"`
		Averaged bool           `json:"averaged"`
	}{el, times, opts.Grad, opts.Averaged}
}

func renderPositionText(res PositionResult, grad bool) string {
	var sb strings.Builder
	for _, r := range res.Rows {
		fmt.Fprintf(&sb, "t = %-12g x = %+.9e  y = %+.9e  z = %+.9e  rho = %.9e", r.Time, r.X, r.Y, r.Z, r.Rho)
		if r.AveragedRho != nil {
			fmt.Fprintf(&sb, "  <rho> = %.9e", *r.AveragedRho)
			if r.Degraded {
				sb.WriteString(" (degraded)")
			}
		}
		sb.WriteByte('\n')
		if grad && r.Gradient != nil {
			for _, coord := range []string{"x", "y", "z"} {
				fmt.Fprintf(&sb, "  d%s/d(%s) =", coord, strings.Join(elementOrder, ","))
				for _, v := range r.Gradient[coord] {
					fmt.Fprintf(&sb, " %+.6e", v)
				}
				sb.WriteByte('\n')
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
