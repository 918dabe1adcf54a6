package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatQuotaError(t *testing.T) {
	msg := FormatRemoteError("Scan submission failed", &RemoteError{
		StatusCode: 429,
		ErrorCode:  CodeQuotaExceeded,
		Message:    "Monthly scan quota exceeded",
		Quota:      &QuotaDetails{Used: 100, Limit: 100, PeriodStart: "2026-08-01", PeriodEnd: "2026-08-31"},
	})
	require.Contains(t, msg, "[Scan submission failed] Monthly scan quota exceeded")
	require.Contains(t, msg, "Quota used: 100 of 100")
	require.Contains(t, msg, "2026-08-01")
	require.Contains(t, msg, billingURL)
}

func TestFormatPaymentError(t *testing.T) {
	msg := FormatRemoteError("Scan submission failed", &RemoteError{
		ErrorCode: CodePaymentRequired,
		Message:   "Trial expired",
	})
	require.Contains(t, msg, "Trial expired")
	require.Contains(t, msg, billingURL)
}

func TestFormatServerError(t *testing.T) {
	msg := FormatRemoteError("Scan submission failed", &RemoteError{
		ErrorCode: CodeServerError,
		Message:   "db unavailable",
	})
	require.Contains(t, msg, "db unavailable")
	require.Contains(t, msg, statusURL)
}

func TestFormatStructuredCode(t *testing.T) {
	msg := FormatRemoteError("Scan submission failed", &RemoteError{
		ErrorCode: "PLAN_LIMIT",
		Message:   "Your plan does not include the validate stage",
	})
	require.Equal(t, "[Scan submission failed] [PLAN_LIMIT] Your plan does not include the validate stage", msg)
}

func TestFormatFallback(t *testing.T) {
	msg := FormatRemoteError("Scan submission failed", &RemoteError{Message: "request failed with status 418"})
	require.Equal(t, "[Scan submission failed] request failed with status 418", msg)
}
