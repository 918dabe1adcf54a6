package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AppSecureAI/automation-action/internal/output"
	"github.com/AppSecureAI/automation-action/internal/runner"
	"github.com/AppSecureAI/automation-action/internal/store"
)

// NewSummaryCmd creates the summary command: re-run finalization for an
// existing run and refresh the stored summary.
func NewSummaryCmd() *cobra.Command {
	var (
		expectedPRs int
		retries     int
		retryDelay  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "summary <run-id>",
		Short: "Recompute and fetch the summary for a past run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			client, _, err := newClient(cmd)
			if err != nil {
				return cmdErr(err)
			}

			r := runner.New(client, slog.Default())
			opts := runner.FinalizeOptions{MaxRetries: retries, RetryDelay: retryDelay}
			if cmd.Flags().Changed("expected-prs") {
				opts.ExpectedPRCount = &expectedPRs
			}

			summary := r.Finalize(cmd.Context(), runID, opts)
			if summary == nil {
				return cmdErr(fmt.Errorf("no summary could be retrieved for run %s", runID))
			}

			return withDB(func(db *DB) error {
				if err := store.SaveSummary(db, runID, summary); err != nil {
					// The run may not be in this machine's history; the fetch
					// still succeeded.
					slog.Warn("could not store summary", "run_id", runID, "error", err)
				}
				return output.PrintSuccess(summary)
			})
		},
	}

	cmd.Flags().IntVar(&expectedPRs, "expected-prs", 0, "Re-request until the summary reports at least this many PRs")
	cmd.Flags().IntVar(&retries, "retries", 3, "Total summary requests before giving up")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", 2*time.Second, "Delay between summary requests")
	return cmd
}
