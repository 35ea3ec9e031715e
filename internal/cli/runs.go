package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/orbitkit/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Command  string
	Since    string
	Limit    int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs from a ledger",
		Long: `List recorded evaluation runs, newest first.

Example:
  orbitkit runs --db runs.db
  orbitkit runs --db runs.db --command loglike --since 2026-03-01T00:00:00Z --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite ledger (required)")
	cmd.Flags().StringVar(&opts.Command, "command", "", "only runs of this command")
	cmd.Flags().StringVar(&opts.Since, "since", "", "only runs at or after this RFC 3339 instant")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := formatter(opts.RootOptions, cmd)

	filter := store.RunFilter{Command: opts.Command, Limit: opts.Limit}
	if opts.Since != "" {
		since, err := time.Parse(time.RFC3339, opts.Since)
		if err != nil {
			_ = out.Error(ErrCodeInvalidInput, fmt.Sprintf("parsing --since: %v", err), nil)
			return WrapExitError(ExitCommandError, "invalid since", err)
		}
		filter.Since = since
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening ledger", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), filter)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	return out.Success(runs, renderRunsText(runs), "")
}

func renderRunsText(runs []store.Run) string {
	if len(runs) == 0 {
		return "no runs recorded"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d runs\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(&sb, "%s  %-10s  %s  %s\n",
			r.CreatedAt.UTC().Format(time.RFC3339), r.Command, r.ID, r.ParamsDigest[:12])
	}
	return strings.TrimRight(sb.String(), "\n")
}
