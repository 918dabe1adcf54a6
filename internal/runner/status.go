package runner

import (
	"context"
	"errors"

	"github.com/AppSecureAI/automation-action/internal/api"
)

// deriveRunStatus is the single place run state is derived from a status
// response. Precedence is load-bearing and must not be reordered:
//
//  1. explicit run-level status (run_status)
//  2. overall_status inside process_tracking
//  3. per-stage terminal check, for servers that predate both fields
//
// Older servers only ever populate process_tracking, and some mid-vintage
// ones populate overall_status but not run_status.
func deriveRunStatus(resp *api.StatusResponse) StatusKind {
	if resp.RunStatus != "" {
		return kindFromServerStatus(resp.RunStatus)
	}
	if overall := resp.ProcessTracking["overall_status"]; overall != "" {
		if k := kindFromServerStatus(overall); k.Terminal() {
			return k
		}
		return StatusProgress
	}
	return kindFromStages(resp.ProcessTracking)
}

func kindFromServerStatus(status string) StatusKind {
	switch status {
	case "completed", "success":
		return StatusCompleted
	case "failed", "error":
		return StatusFailed
	default:
		return StatusProgress
	}
}

// kindFromStages infers completion from per-stage statuses: the run is
// terminal only once every stage has reached a terminal status, and failed
// if any stage failed.
func kindFromStages(tracking api.ProcessTracking) StatusKind {
	if len(tracking) == 0 {
		return StatusProgress
	}
	failed := false
	for _, stage := range api.Stages {
		status := tracking[stage+"_status"]
		if !terminalStageStatus(status) {
			return StatusProgress
		}
		if status == api.StageStatusFailed {
			failed = true
		}
	}
	if failed {
		return StatusFailed
	}
	return StatusCompleted
}

// StatusCheck is one poll iteration: it either produces a StatusResult
// (possibly network_error) or fails in a way the loop logs and moves past.
type StatusCheck func(ctx context.Context) (*StatusResult, error)

// statusCheckFor adapts the API client's status call to the polling loop's
// contract: transport and HTTP failures become a network_error result, a
// schema problem is surfaced as an error for the loop to log and skip.
func (r *Runner) statusCheckFor(runID string) StatusCheck {
	return func(ctx context.Context) (*StatusResult, error) {
		resp, err := r.client.CheckStatus(ctx, runID)
		if err != nil {
			var req *api.RequestError
			if errors.As(err, &req) {
				return &StatusResult{Status: StatusNetworkError, Error: err.Error()}, nil
			}
			return nil, err
		}

		res := &StatusResult{
			Status:  deriveRunStatus(resp),
			Stages:  resp.ProcessTracking,
			Summary: resp.Summary,
		}
		if res.Status == StatusFailed {
			res.Error = resp.Message
			if resp.Description != nil && *resp.Description != "" {
				res.Error = *resp.Description
			}
		}
		return res, nil
	}
}
