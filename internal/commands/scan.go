package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AppSecureAI/automation-action/internal/api"
	"github.com/AppSecureAI/automation-action/internal/output"
	"github.com/AppSecureAI/automation-action/internal/runner"
	"github.com/AppSecureAI/automation-action/internal/store"
)

// NewScanCmd creates the scan command: submit an archive, monitor the run to
// completion, retrieve the summary, and record everything in the history DB.
func NewScanCmd() *cobra.Command {
	var (
		file            string
		mode            string
		findMethod      string
		triageMethod    string
		remediateMethod string
		validateMethod  string
		push            bool
		dryRun          bool
		groupBy         string
		maxOpenPRs      int

		pollRetries  int
		pollInterval time.Duration
		expectedPRs  int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Submit an archive for analysis and wait for the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return cmdErr(fmt.Errorf("read archive: %w", err))
			}

			client, settings, err := newClient(cmd)
			if err != nil {
				return cmdErr(err)
			}

			cfg := api.ScanConfig{
				Mode:            mode,
				FindMethod:      findMethod,
				TriageMethod:    triageMethod,
				RemediateMethod: remediateMethod,
				ValidateMethod:  validateMethod,
				EnablePush:      push,
				DryRun:          dryRun,
				GroupBy:         groupBy,
				MaxOpenPRs:      maxOpenPRs,
			}

			r := runner.New(client, slog.Default())
			if settings.PollMaxRetries > 0 {
				r.PollMaxRetries = settings.PollMaxRetries
			}
			if settings.PollIntervalSeconds > 0 {
				r.PollInterval = time.Duration(settings.PollIntervalSeconds) * time.Second
			}
			if settings.FinalizeMaxRetries > 0 {
				r.FinalizeDefaults.MaxRetries = settings.FinalizeMaxRetries
			}
			if cmd.Flags().Changed("poll-retries") {
				r.PollMaxRetries = pollRetries
			}
			if cmd.Flags().Changed("poll-interval") {
				r.PollInterval = pollInterval
			}

			var expected *int
			if cmd.Flags().Changed("expected-prs") {
				expected = &expectedPRs
			}

			return withDB(func(db *DB) error {
				r.OnSubmitted = func(runID string) {
					if err := store.RecordSubmission(db, runID, filepath.Base(file), mode); err != nil {
						slog.Warn("could not record submission", "run_id", runID, "error", err)
					}
				}

				report, err := r.Execute(cmd.Context(), data, filepath.Base(file), cfg, expected)
				if err != nil {
					return err
				}

				if report.RunID != "" {
					if err := store.UpdateRunStatus(db, report.RunID, report.Status, report.Message); err != nil {
						slog.Warn("could not record run status", "run_id", report.RunID, "error", err)
					}
					if err := store.SaveSummary(db, report.RunID, report.Summary); err != nil {
						slog.Warn("could not record summary", "run_id", report.RunID, "error", err)
					}
				}

				if report.Summary != nil {
					fmt.Fprintln(os.Stderr, renderSummary(report.Summary))
				}
				return output.PrintSuccess(report)
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Archive to submit (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&mode, "mode", "full", "Scan mode (full|diff)")
	cmd.Flags().StringVar(&findMethod, "find-method", "", "Override the find stage method")
	cmd.Flags().StringVar(&triageMethod, "triage-method", "", "Override the triage stage method")
	cmd.Flags().StringVar(&remediateMethod, "remediate-method", "", "Override the remediate stage method")
	cmd.Flags().StringVar(&validateMethod, "validate-method", "", "Override the validate stage method")
	cmd.Flags().BoolVar(&push, "push", true, "Open pull requests for validated fixes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Analyze without remediating")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Group findings into PRs by this key")
	cmd.Flags().IntVar(&maxOpenPRs, "max-open-prs", 0, "Cap on simultaneously open PRs (0 = server default)")

	cmd.Flags().IntVar(&pollRetries, "poll-retries", runner.DefaultPollMaxRetries, "Max status checks before giving up")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", runner.DefaultPollInterval, "Delay between status checks")
	cmd.Flags().IntVar(&expectedPRs, "expected-prs", 0, "Re-request the summary until it reports at least this many PRs")

	return cmd
}

// renderSummary is thin string templating over the summary for humans; the
// JSON envelope on stdout is the machine interface.
func renderSummary(s *api.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vulnerabilities: %d found, %d confirmed\n", s.VulnerabilitiesFound, s.VulnerabilitiesConfirmed)
	fmt.Fprintf(&b, "Remediations:    %d succeeded, %d failed\n", s.RemediationsSucceeded, s.RemediationsFailed)
	fmt.Fprintf(&b, "Validations:     %d passed, %d failed\n", s.ValidationsPassed, s.ValidationsFailed)
	fmt.Fprintf(&b, "Pull requests:   %d", s.PRCount)
	for _, u := range s.PRURLs {
		fmt.Fprintf(&b, "\n  %s", u)
	}
	return b.String()
}
