package runner

import (
	"github.com/AppSecureAI/automation-action/internal/api"
)

// StatusKind is the polling loop's view of a run. Completed and failed are
// terminal; progress and network_error are not.
type StatusKind string

const (
	StatusCompleted    StatusKind = "completed"
	StatusFailed       StatusKind = "failed"
	StatusProgress     StatusKind = "progress"
	StatusNetworkError StatusKind = "network_error"
)

// Terminal reports whether the kind ends the polling loop.
func (k StatusKind) Terminal() bool {
	return k == StatusCompleted || k == StatusFailed
}

// StatusResult is what one poll iteration produced. Each result supersedes
// the previous one; the loop keeps only the last stage tracking and summary
// it has seen, via RunState.
type StatusResult struct {
	Status  StatusKind
	Error   string
	Stages  api.ProcessTracking
	Summary *api.Summary
}

// RunState is the per-run bookkeeping for one submitted job. Each run gets
// its own instance; nothing here is shared across runs, so concurrent runs
// cannot corrupt each other's logging or last-seen data.
type RunState struct {
	RunID string

	// LastStages and LastSummary hold the most recent non-empty values any
	// poll iteration reported, kept as best-effort data for when the run
	// ends without a clean terminal status.
	LastStages  api.ProcessTracking
	LastSummary *api.Summary

	// FailureReason is set when a poll iteration observed a terminal failed
	// status.
	FailureReason string

	loggedStages map[string]bool
}

// NewRunState creates state for a freshly submitted run.
func NewRunState(runID string) *RunState {
	return &RunState{
		RunID:        runID,
		loggedStages: make(map[string]bool),
	}
}

func (s *RunState) observe(res *StatusResult) {
	if len(res.Stages) > 0 {
		s.LastStages = res.Stages
	}
	if res.Summary != nil {
		s.LastSummary = res.Summary
	}
}

// completedStages returns stages that newly reached a terminal status since
// the last call, so the loop logs each stage transition exactly once per run.
func (s *RunState) completedStages(tracking api.ProcessTracking) []string {
	var done []string
	for _, stage := range api.Stages {
		status := tracking[stage+"_status"]
		if !terminalStageStatus(status) || s.loggedStages[stage] {
			continue
		}
		s.loggedStages[stage] = true
		done = append(done, stage)
	}
	return done
}

func terminalStageStatus(status string) bool {
	switch status {
	case api.StageStatusCompleted, api.StageStatusFailed, api.StageStatusSkipped:
		return true
	}
	return false
}
