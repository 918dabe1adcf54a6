package runner

import (
	"context"
	"time"
)

// maxConsecutiveNetworkErrors bounds how long the loop keeps waiting when the
// service stops answering entirely. Isolated blips are expected behind the
// load balancer and must not abandon a run that is still executing; a streak
// of misses means the service is genuinely unreachable.
const maxConsecutiveNetworkErrors = 3

// PollUntilComplete polls check every delay until the run reaches a terminal
// state or the budget runs out. It returns the terminal StatusResult on
// completion, and nil when the run failed, the service was unreachable for
// maxConsecutiveNetworkErrors consecutive checks, or maxRetries iterations
// passed without a terminal state.
//
// The cadence is fixed on purpose: this loop watches a batch job for up to
// tens of minutes, and backing off would only delay noticing completion.
func (r *Runner) PollUntilComplete(ctx context.Context, state *RunState, check StatusCheck, maxRetries int, delay time.Duration) *StatusResult {
	networkErrors := 0

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := check(ctx)
		if err != nil {
			// A broken check call is a hiccup, not a verdict on the run.
			r.log.Warn("status check failed, continuing", "run_id", state.RunID, "attempt", attempt+1, "error", err)
		} else {
			state.observe(res)

			switch res.Status {
			case StatusCompleted:
				r.logStageTransitions(state, res)
				r.log.Info("run completed", "run_id", state.RunID)
				return res
			case StatusFailed:
				// A failed status from the server is authoritative; retrying
				// cannot change it.
				state.FailureReason = res.Error
				r.log.Error("run failed", "run_id", state.RunID, "reason", res.Error)
				return nil
			case StatusNetworkError:
				networkErrors++
				r.log.Warn("status check unreachable", "run_id", state.RunID, "consecutive", networkErrors, "error", res.Error)
				if networkErrors >= maxConsecutiveNetworkErrors {
					r.log.Error("giving up on status polling, service unreachable", "run_id", state.RunID)
					return nil
				}
			case StatusProgress:
				networkErrors = 0
				r.logStageTransitions(state, res)
			}
		}

		// No point waiting out the cadence when there is no next check.
		if attempt == maxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			r.log.Warn("status polling cancelled", "run_id", state.RunID)
			return nil
		case <-time.After(delay):
		}
	}

	r.log.Warn("status polling exhausted its budget", "run_id", state.RunID, "attempts", maxRetries)
	return nil
}

func (r *Runner) logStageTransitions(state *RunState, res *StatusResult) {
	for _, stage := range state.completedStages(res.Stages) {
		r.log.Info("stage finished", "run_id", state.RunID, "stage", stage, "status", res.Stages[stage+"_status"])
	}
}
