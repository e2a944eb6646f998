package providers

import "strings"

type ErrorType string

const (
	ErrorAuth      ErrorType = "auth"
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// ClassifyError buckets a provider error so the workflow layer can decide
// whether a retry is worthwhile. Auth failures are terminal for a run;
// rate and transient errors are retried with backoff.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "401"), strings.Contains(e, "403"), strings.Contains(e, "unauthorized"), strings.Contains(e, "invalid api key"), strings.Contains(e, "key missing"):
		return ErrorAuth
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"), strings.Contains(e, "connection refused"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// Retryable reports whether the error class is worth another attempt.
func Retryable(t ErrorType) bool {
	switch t {
	case ErrorRate, ErrorTransient:
		return true
	default:
		return false
	}
}
