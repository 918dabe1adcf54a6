package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
)

// Machine-readable error categories assigned by the classifier.
const (
	CodeQuotaExceeded   = "QUOTA_EXCEEDED"
	CodePaymentRequired = "PAYMENT_REQUIRED"
	CodeServerError     = "SERVER_ERROR"
)

// RequestError is the single error type produced at the HTTP boundary for a
// failed remote call. StatusCode 0 means no response was received at all
// (connection refused, DNS failure, timeout); otherwise Body holds the raw
// response body, which may be empty.
type RequestError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed with no response: %v", e.Err)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout rather than some other
// transport fault.
func (e *RequestError) Timeout() bool {
	if e.Err == nil {
		return false
	}
	if errors.Is(e.Err, os.ErrDeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	if errors.As(e.Err, &uerr) && uerr.Timeout() {
		return true
	}
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

// QuotaDetails mirrors the quota fields of a 429 response body.
type QuotaDetails struct {
	Used        int    `json:"quota_used"`
	Limit       int    `json:"quota_limit"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// ErrorDetail is the structured detail object the server may attach to any
// error status.
type ErrorDetail struct {
	Code           string         `json:"code,omitempty"`
	Description    string         `json:"description,omitempty"`
	OrganizationID string         `json:"organization_id,omitempty"`
	ExpiresAt      string         `json:"expires_at,omitempty"`
	PeriodEnd      string         `json:"period_end,omitempty"`
	Status         string         `json:"status,omitempty"`
	Steps          []string       `json:"steps,omitempty"`
	Owner          string         `json:"owner,omitempty"`
	OwnerType      string         `json:"owner_type,omitempty"`
	QuotaInfo      map[string]any `json:"quota_info,omitempty"`
}

// RemoteError is the classified form of a failed remote call. It is built
// fresh for every failure and consumed immediately to decide retry, format a
// message, or abort.
type RemoteError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Quota      *QuotaDetails
	Details    *ErrorDetail
}

func (e *RemoteError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("[%s] %s", e.ErrorCode, e.Message)
	}
	return e.Message
}

// errorBody is the superset of shapes the server uses for error responses.
type errorBody struct {
	Error       string          `json:"error"`
	Message     string          `json:"message"`
	Detail      json.RawMessage `json:"detail"`
	QuotaUsed   *int            `json:"quota_used"`
	QuotaLimit  *int            `json:"quota_limit"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
}

// Classify inspects a failed remote call and returns a structured description
// of it, or nil if err is not a remote-call failure (for example a schema
// error or a programming bug), in which case the caller should not treat it
// as an API condition.
func Classify(err error) *RemoteError {
	var req *RequestError
	if !errors.As(err, &req) {
		return nil
	}

	re := &RemoteError{
		StatusCode: req.StatusCode,
		Message:    req.Error(),
	}
	if len(req.Body) == 0 {
		return re
	}

	var body errorBody
	if jsonErr := json.Unmarshal(req.Body, &body); jsonErr != nil {
		return re
	}

	switch req.StatusCode {
	case 429:
		re.ErrorCode = CodeQuotaExceeded
		if body.QuotaUsed != nil && body.QuotaLimit != nil {
			re.Quota = &QuotaDetails{
				Used:        *body.QuotaUsed,
				Limit:       *body.QuotaLimit,
				PeriodStart: body.PeriodStart,
				PeriodEnd:   body.PeriodEnd,
			}
		}
		if body.Message != "" {
			re.Message = body.Message
		} else if body.Error != "" {
			re.Message = body.Error
		}
	case 402:
		re.ErrorCode = CodePaymentRequired
		switch {
		case body.Message != "":
			re.Message = body.Message
		case len(body.Detail) > 0:
			if msg := detailMessage(body.Detail); msg != "" {
				re.Message = msg
			}
		default:
			re.Message = "Payment is required to continue using the service."
		}
	case 500:
		re.ErrorCode = CodeServerError
		if msg := detailMessage(body.Detail); msg != "" {
			re.Message = msg
		} else if body.Message != "" {
			re.Message = body.Message
		}
	}

	applyDetail(re, body.Detail)
	return re
}

// applyDetail folds the detail field into the error: a structured detail
// object is attached and its code/description take precedence; a plain string
// detail becomes the message.
func applyDetail(re *RemoteError, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s != "" {
			re.Message = s
		}
		return
	}

	var detail ErrorDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return
	}
	re.Details = &detail
	if detail.Code != "" {
		re.ErrorCode = detail.Code
	}
	if detail.Description != "" {
		re.Message = detail.Description
	}
}

// detailMessage extracts a human message from a detail that is either a plain
// string or an object carrying a description.
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Description
	}
	return ""
}

// IsRetriable reports whether a failed call is worth retrying: network
// failures with no response and server-side (>= 500) statuses are, client
// errors and non-remote errors are not.
func IsRetriable(err error) bool {
	var req *RequestError
	if !errors.As(err, &req) {
		return false
	}
	return req.StatusCode == 0 || req.StatusCode >= 500
}

// IsNotFound reports whether the call failed with a 404.
func IsNotFound(err error) bool {
	var req *RequestError
	return errors.As(err, &req) && req.StatusCode == 404
}

// IsTimeout reports whether the call failed with a transport-level timeout.
func IsTimeout(err error) bool {
	var req *RequestError
	return errors.As(err, &req) && req.Timeout()
}
