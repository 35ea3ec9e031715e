package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orbitkit/internal/config"
	"github.com/roach88/orbitkit/internal/orbit"
)

// ContactsOptions holds flags for the contacts command.
type ContactsOptions struct {
	*RootOptions
	Radius float64
	Side   string // "transit" | "occultation" | "both"
	Ledger ledger
}

// ContactRow is one contact point in the output payload.
type ContactRow struct {
	Time        float64 `json:"time"`
	TrueAnomaly float64 `json:"true_anomaly"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Transit     bool    `json:"transit"`
}

// ContactsResult is the payload for one contacts invocation.
type ContactsResult struct {
	Radius   float64      `json:"radius"`
	Contacts []ContactRow `json:"contacts"`
}

// NewContactsCommand creates the contacts command.
func NewContactsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ContactsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "contacts <model.yaml>",
		Short: "Compute limb contact points for a model",
		Long: `Compute the instants at which the projected separation equals the limb
radius L. A geometry that never reaches the limb is a normal outcome and
reports an empty contact list.

Example:
  orbitkit contacts model.yaml --radius 1.05
  orbitkit contacts model.yaml --radius 1.05 --side transit --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContacts(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Radius, "radius", 0, "limb radius L in position units (required)")
	cmd.Flags().StringVar(&opts.Side, "side", "both", "which hemisphere: transit|occultation|both")
	cmd.Flags().StringVar(&opts.Ledger.Database, "db", "", "record the run in this SQLite ledger")
	_ = cmd.MarkFlagRequired("radius")

	return cmd
}

func runContacts(opts *ContactsOptions, modelPath string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := formatter(opts.RootOptions, cmd)

	switch opts.Side {
	case "transit", "occultation", "both":
	default:
		err := fmt.Errorf("invalid --side %q: must be transit, occultation or both", opts.Side)
		_ = out.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid side", err)
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

	slog.Debug("computing contacts", "model", modelPath, "radius", opts.Radius, "side", opts.Side)
	points, err := orbit.Contacts(el, opts.Radius)
	if err != nil && !errors.Is(err, orbit.ErrNoTransit) {
		_ = out.Error(ErrCodeCompute, err.Error(), nil)
		return WrapExitError(ExitFailure, "contact computation failed", err)
	}

	payload := ContactsResult{Radius: opts.Radius, Contacts: []ContactRow{}}
	for _, p := range points {
		if opts.Side == "transit" && !p.Transit {
			continue
		}
		if opts.Side == "occultation" && p.Transit {
			continue
		}
		payload.Contacts = append(payload.Contacts, ContactRow{
			Time: p.Time, TrueAnomaly: p.TrueAnomaly,
			X: p.X, Y: p.Y, Z: p.Z, Transit: p.Transit,
		})
	}

	runID, err := opts.Ledger.record(cmd.Context(), "contacts", contactsParams(opts, el), payload)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "recording run", err)
	}

	return out.Success(payload, renderContactsText(payload), runID)
}

// contactsParams is the digest identity of a contacts run.
func contactsParams(opts *ContactsOptions, el orbit.Elements) any {
	return struct {
		Elements orbit.Elements `json:"elements"`
		Radius   float64        `json:"radius"`
		Side     string         `json:"side"`
	}{el, opts.Radius, opts.Side}
}

func renderContactsText(res ContactsResult) string {
	if len(res.Contacts) == 0 {
		return fmt.Sprintf("no contacts at L = %g", res.Radius)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d contacts at L = %g\n", len(res.Contacts), res.Radius)
	for _, c := range res.Contacts {
		side := "occultation"
		if c.Transit {
			side = "transit"
		}
		fmt.Fprintf(&sb, "t = %-14.9f f = %+.9f  x = %+.6e  y = %+.6e  %s\n",
			c.Time, c.TrueAnomaly, c.X, c.Y, side)
	}
	return strings.TrimRight(sb.String(), "\n")
}
