// Package apierr provides shared error sentinels and retry infrastructure
// for remote oracle clients. Provider-specific failures are classified into
// these sentinels at the adapter boundary; callers check them with
// errors.Is and decide retry behavior through Retryable.
package apierr

import (
	"context"
	"errors"
)

// Sentinel errors for oracle interaction failures.
//
// Wrap with context at the call site:
//
//	return fmt.Errorf("%s: %w", apiMsg, apierr.ErrRateLimit)
var (
	// ErrRateLimit indicates the oracle rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the account quota was exhausted (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrServer indicates a transient provider-side failure (5xx).
	ErrServer = errors.New("server error")
)

// Retryable reports whether an already-classified error is worth retrying.
// Rate limits, timeouts, and server errors are transient; everything else,
// including context cancellation and auth failures, is terminal.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer)
}
