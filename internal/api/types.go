package api

import (
	"encoding/json"
	"fmt"
)

// Stage names, in pipeline order. The server reports per-stage progress and
// per-stage result counts keyed by these names.
const (
	StageFind      = "find"
	StageTriage    = "triage"
	StageRemediate = "remediate"
	StageValidate  = "validate"
	StagePush      = "push"
)

// Stages lists the pipeline stages in execution order.
var Stages = []string{StageFind, StageTriage, StageRemediate, StageValidate, StagePush}

// Terminal per-stage statuses as reported in process_tracking.
const (
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
	StageStatusSkipped   = "skipped"
)

// ScanConfig holds the flat processing-configuration fields sent alongside the
// uploaded archive. Values are passed through to the server unchanged.
type ScanConfig struct {
	Mode            string
	FindMethod      string
	TriageMethod    string
	RemediateMethod string
	ValidateMethod  string
	EnablePush      bool
	DryRun          bool
	GroupBy         string
	MaxOpenPRs      int
}

// FormFields returns the multipart form fields for this config.
func (c ScanConfig) FormFields() map[string]string {
	return map[string]string{
		"mode":             c.Mode,
		"find_method":      c.FindMethod,
		"triage_method":    c.TriageMethod,
		"remediate_method": c.RemediateMethod,
		"validate_method":  c.ValidateMethod,
		"enable_push":      fmt.Sprintf("%t", c.EnablePush),
		"dry_run":          fmt.Sprintf("%t", c.DryRun),
		"group_by":         c.GroupBy,
		"max_open_prs":     fmt.Sprintf("%d", c.MaxOpenPRs),
	}
}

// SubmitStep is one server-side ingestion step echoed back on submission.
type SubmitStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// SubmitResponse is the body returned by a successful submission. RunID is
// nullable: the server may accept a file without starting a run (for example
// when the scan completes synchronously and only Summary is populated).
type SubmitResponse struct {
	Message     string       `json:"message"`
	Description *string      `json:"description,omitempty"`
	Steps       []SubmitStep `json:"steps"`
	RunID       *string      `json:"run_id"`
	Summary     *Summary     `json:"summary,omitempty"`
}

// StageResult carries the artifact count one stage produced, plus
// server-defined extras this client does not interpret.
type StageResult struct {
	Count  int            `json:"count"`
	Extras map[string]any `json:"extras"`
}

// StageResults holds per-stage results. A nil stage has not reported yet.
type StageResults struct {
	Find      *StageResult `json:"find"`
	Triage    *StageResult `json:"triage"`
	Remediate *StageResult `json:"remediate"`
	Validate  *StageResult `json:"validate"`
	Push      *StageResult `json:"push"`
}

// ProcessTracking maps "<stage>_status" (and, on newer servers,
// "overall_status") to a stage status string.
type ProcessTracking map[string]string

// StatusResponse is the body returned by a status check. All fields except
// Message are optional; older servers omit run_status and report progress only
// through process_tracking.
type StatusResponse struct {
	Message         string          `json:"message"`
	Description     *string         `json:"description,omitempty"`
	RunStatus       string          `json:"run_status,omitempty"`
	Results         *StageResults   `json:"results,omitempty"`
	ProcessTracking ProcessTracking `json:"process_tracking,omitempty"`
	Summary         *Summary        `json:"summary,omitempty"`
}

// Summary aggregates the outcome of a run. Every numeric field defaults to 0
// and every collection to empty when the server omits it; see ParseSummary.
type Summary struct {
	VulnerabilitiesFound     int                `json:"vulnerabilities_found"`
	VulnerabilitiesConfirmed int                `json:"vulnerabilities_confirmed"`
	RemediationsSucceeded    int                `json:"remediations_succeeded"`
	RemediationsFailed       int                `json:"remediations_failed"`
	ValidationsPassed        int                `json:"validations_passed"`
	ValidationsFailed        int                `json:"validations_failed"`
	PRCount                  int                `json:"pr_count"`
	PRURLs                   []string           `json:"pr_urls"`
	StageDurations           map[string]float64 `json:"stage_durations"`
	Warnings                 []string           `json:"warnings"`
}

// SchemaError reports a response that arrived transport-clean but does not
// match the shape this client expects. Submission treats it as a hard error;
// finalization treats it as retriable.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: response failed schema validation: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ParseSubmitResponse parses a submission response strictly: message must be
// present, run_id may be null but the key's absence is tolerated as null.
func ParseSubmitResponse(body []byte) (*SubmitResponse, error) {
	var probe struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &SchemaError{Op: "submit", Err: err}
	}
	if probe.Message == nil {
		return nil, &SchemaError{Op: "submit", Err: fmt.Errorf("missing required field %q", "message")}
	}
	var resp SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SchemaError{Op: "submit", Err: err}
	}
	if resp.Summary != nil {
		resp.Summary.applyDefaults()
	}
	return &resp, nil
}

// ParseStatusResponse parses a status-check response.
func ParseStatusResponse(body []byte) (*StatusResponse, error) {
	var resp StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SchemaError{Op: "status", Err: err}
	}
	return &resp, nil
}

// ParseSummary parses a summary with field-level defaults: absent numeric
// fields become 0 and absent collections become empty rather than nil. Type
// mismatches still fail validation.
func ParseSummary(body []byte) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, &SchemaError{Op: "summary", Err: err}
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Summary) applyDefaults() {
	if s.PRURLs == nil {
		s.PRURLs = []string{}
	}
	if s.StageDurations == nil {
		s.StageDurations = map[string]float64{}
	}
	if s.Warnings == nil {
		s.Warnings = []string{}
	}
}
