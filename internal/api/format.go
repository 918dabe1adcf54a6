package api

import (
	"fmt"
	"strings"
)

const (
	billingURL = "https://app.appsecure.ai/settings/billing"
	statusURL  = "https://status.appsecure.ai"
)

// FormatRemoteError renders a classified error as a multi-line, user-facing
// message. prefix labels the operation that failed, e.g. "Scan submission
// failed". Pure function; callers pass the result to the logger.
func FormatRemoteError(prefix string, e *RemoteError) string {
	if e == nil {
		return prefix
	}

	switch e.ErrorCode {
	case CodeQuotaExceeded:
		return formatQuota(prefix, e)
	case CodePaymentRequired:
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %s\n", prefix, e.Message)
		fmt.Fprintf(&b, "Update your billing details at %s to continue.", billingURL)
		return b.String()
	case CodeServerError:
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] The service hit an internal error: %s\n", prefix, e.Message)
		fmt.Fprintf(&b, "Check %s for incident updates, then retry.", statusURL)
		return b.String()
	case "":
		return fmt.Sprintf("[%s] %s", prefix, e.Message)
	default:
		return fmt.Sprintf("[%s] [%s] %s", prefix, e.ErrorCode, e.Message)
	}
}

func formatQuota(prefix string, e *RemoteError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", prefix, e.Message)
	if q := e.Quota; q != nil {
		fmt.Fprintf(&b, "Quota used: %d of %d", q.Used, q.Limit)
		if q.PeriodStart != "" || q.PeriodEnd != "" {
			fmt.Fprintf(&b, " (billing period %s to %s)", q.PeriodStart, q.PeriodEnd)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Upgrade your plan at %s to raise the limit.", billingURL)
	return b.String()
}
