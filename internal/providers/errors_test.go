package providers

import (
	"errors"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"openai key missing":           ErrorAuth,
		"401 unauthorized":             ErrorAuth,
		"insufficient_quota":           ErrorQuota,
		"429 too many requests":        ErrorRate,
		"prompt context too long":      ErrorContext,
		"dial tcp: connection refused": ErrorTransient,
		"request timeout":              ErrorTransient,
		"bad request":                  ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
	if ClassifyError(nil) != "" {
		t.Fatalf("nil error must classify to empty")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(ErrorRate) || !Retryable(ErrorTransient) {
		t.Fatalf("rate and transient errors are retryable")
	}
	for _, typ := range []ErrorType{ErrorAuth, ErrorQuota, ErrorContext, ErrorPermanent} {
		if Retryable(typ) {
			t.Fatalf("%s must not be retryable", typ)
		}
	}
}
