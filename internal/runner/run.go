package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AppSecureAI/automation-action/internal/api"
)

// Default polling cadence: 50 checks 30s apart gives the server up to ~25
// minutes to finish a run.
const (
	DefaultPollMaxRetries = 50
	DefaultPollInterval   = 30 * time.Second
)

const submitPrefix = "Scan submission failed"

// ErrSubmitTimeout is returned when the submission request got no response in
// time. Distinguished from other network failures because the server may
// still be ingesting the archive.
var ErrSubmitTimeout = errors.New("scan submission timed out waiting for the service; the upload may still be processing")

// Runner drives one scan end to end: submit, poll, finalize. It holds only
// read-only configuration; per-run bookkeeping lives in RunState, so a Runner
// may be reused across sequential runs.
type Runner struct {
	client *api.Client
	log    *slog.Logger

	PollMaxRetries   int
	PollInterval     time.Duration
	FinalizeDefaults FinalizeOptions

	// OnSubmitted, when set, is called as soon as a run id is known, before
	// monitoring starts. Callers use it to record the submission durably.
	OnSubmitted func(runID string)
}

// New builds a Runner with the default polling configuration.
func New(client *api.Client, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		client:         client,
		log:            log,
		PollMaxRetries: DefaultPollMaxRetries,
		PollInterval:   DefaultPollInterval,
	}
}

// RunReport is the end state of one scan.
type RunReport struct {
	RunID   string       `json:"run_id,omitempty"`
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Summary *api.Summary `json:"summary,omitempty"`
}

// Run outcome statuses recorded in the report and the history store.
const (
	ReportCompleted = "completed"
	ReportFailed    = "failed"
	ReportSubmitted = "submitted"
)

// Submit sends the archive once and interprets the outcome. Network and HTTP
// failures are classified and come back as formatted, actionable errors;
// schema failures are hard errors of their own; a timeout is reported
// distinctly. Submission is deliberately not retried: the server performs
// expensive, non-idempotent work on ingestion.
func (r *Runner) Submit(ctx context.Context, file []byte, fileName string, cfg api.ScanConfig) (*api.SubmitResponse, error) {
	resp, err := r.client.Submit(ctx, file, fileName, cfg)
	if err == nil {
		return resp, nil
	}

	var schemaErr *api.SchemaError
	if errors.As(err, &schemaErr) {
		return nil, fmt.Errorf("submission succeeded but the response is unusable: %w", err)
	}
	if api.IsTimeout(err) {
		return nil, ErrSubmitTimeout
	}
	if re := api.Classify(err); re != nil {
		return nil, errors.New(api.FormatRemoteError(submitPrefix, re))
	}
	return nil, err
}

// Execute runs one scan end to end. Submission failures abort with an error;
// monitoring and finalization failures degrade to a best-effort report, since
// the job was already handed to the server.
func (r *Runner) Execute(ctx context.Context, file []byte, fileName string, cfg api.ScanConfig, expectedPRs *int) (*RunReport, error) {
	resp, err := r.Submit(ctx, file, fileName, cfg)
	if err != nil {
		return nil, err
	}
	r.log.Info("scan submitted", "file", fileName, "message", resp.Message)

	if resp.RunID == nil || *resp.RunID == "" {
		// The server finished synchronously; whatever summary it embedded is
		// all there will ever be.
		return &RunReport{
			Status:  ReportCompleted,
			Message: resp.Message,
			Summary: resp.Summary,
		}, nil
	}

	state := NewRunState(*resp.RunID)
	if r.OnSubmitted != nil {
		r.OnSubmitted(state.RunID)
	}
	r.log.Info("monitoring run", "run_id", state.RunID)

	res := r.PollUntilComplete(ctx, state, r.statusCheckFor(state.RunID), r.PollMaxRetries, r.PollInterval)

	report := &RunReport{RunID: state.RunID}
	switch {
	case res != nil:
		report.Status = ReportCompleted
	case state.FailureReason != "":
		report.Status = ReportFailed
		report.Message = state.FailureReason
	default:
		// Monitoring gave up but the run may still finish server-side; the
		// submission itself remains a success.
		report.Status = ReportSubmitted
		report.Message = "monitoring ended before the run reached a terminal state"
	}

	opts := r.FinalizeDefaults
	if report.Status == ReportCompleted {
		opts.ExpectedPRCount = expectedPRs
	} else {
		opts.ExpectedPRCount = nil
	}
	if summary := r.Finalize(ctx, state.RunID, opts); summary != nil {
		report.Summary = summary
	} else if state.LastSummary != nil {
		report.Summary = state.LastSummary
	} else if res != nil && res.Summary != nil {
		report.Summary = res.Summary
	}
	if report.Summary == nil {
		r.log.Warn("no summary could be retrieved for run", "run_id", state.RunID)
	}

	return report, nil
}
