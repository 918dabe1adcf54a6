package runner

import (
	"context"
	"time"

	"github.com/AppSecureAI/automation-action/internal/api"
)

// FinalizeOptions tunes the finalization loop.
type FinalizeOptions struct {
	// ExpectedPRCount, when set, makes the loop re-request the summary until
	// it reports at least this many pull requests. The server may compute a
	// summary before all created PRs are durably recorded, so the first
	// answer can undercount.
	ExpectedPRCount *int

	// MaxRetries is the total number of summary requests. Defaults to 3.
	MaxRetries int

	// RetryDelay is the wait between requests. Defaults to 2s.
	RetryDelay time.Duration
}

func (o *FinalizeOptions) applyDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
}

// Finalize requests the computed summary until it satisfies ExpectedPRCount
// or the budget runs out, returning the best summary observed. It never
// fails: a run that was submitted successfully stays successful even when the
// summary cannot be retrieved, so the worst case is nil. A previously
// obtained valid summary is never discarded in favor of nil.
func (r *Runner) Finalize(ctx context.Context, runID string, opts FinalizeOptions) *api.Summary {
	opts.applyDefaults()

	var best *api.Summary
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		last := attempt == opts.MaxRetries-1

		summary, err := r.client.ComputeSummary(ctx, runID)
		if err != nil {
			switch {
			case api.IsNotFound(err):
				// The run is gone; asking again cannot help.
				r.log.Warn("summary not found", "run_id", runID)
				return best
			case api.IsTimeout(err):
				r.log.Warn("summary request timed out", "run_id", runID, "attempt", attempt+1)
			default:
				r.log.Warn("summary request failed", "run_id", runID, "attempt", attempt+1, "error", err)
			}
			if last || sleepCtx(ctx, opts.RetryDelay) != nil {
				return best
			}
			continue
		}

		if opts.ExpectedPRCount == nil {
			return summary
		}
		if summary.PRCount >= *opts.ExpectedPRCount {
			return summary
		}

		// Partial data beats none: keep it even if the count never catches up.
		best = summary
		if last {
			r.log.Warn("summary never reached expected PR count, keeping best observed",
				"run_id", runID, "expected", *opts.ExpectedPRCount, "observed", summary.PRCount)
			return best
		}
		r.log.Info("summary below expected PR count, retrying",
			"run_id", runID, "expected", *opts.ExpectedPRCount, "observed", summary.PRCount)
		if sleepCtx(ctx, opts.RetryDelay) != nil {
			return best
		}
	}
	return best
}

// sleepCtx waits out d, cut short by cancellation. Returns the context error
// so callers can stop retrying against a dead context.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
