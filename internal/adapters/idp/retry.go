package idp

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
)

// transportError wraps network-level failures (timeouts, connection resets,
// unreadable 5xx responses). It is always considered transient.
type transportError struct {
	cause error
}

func (e *transportError) Error() string { return "identity provider transport: " + e.cause.Error() }
func (e *transportError) Unwrap() error { return e.cause }

// retryPolicy controls bounded exponential backoff and which failures are
// eligible for another attempt.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	retryable func(error) bool
	onRetry   func(error)
}

// withRetryHook returns a copy of the policy that invokes hook each time an
// attempt is scheduled for retry.
func (p retryPolicy) withRetryHook(hook func(error)) retryPolicy {
	p.onRetry = hook
	return p
}

// defaultRetryPolicy covers idempotent reads: transport failures and 5xx
// responses retry, provider-reported errors do not.
var defaultRetryPolicy = retryPolicy{
	attempts:  3,
	baseDelay: 200 * time.Millisecond,
	retryable: func(err error) bool {
		var te *transportError
		return errors.As(err, &te)
	},
}

// throttleOnlyRetryPolicy covers mutating calls: only provider-flagged
// throttling retries, never transport failures, since the mutation may have
// been applied before the connection dropped.
var throttleOnlyRetryPolicy = retryPolicy{
	attempts:  3,
	baseDelay: 200 * time.Millisecond,
	retryable: func(err error) bool {
		pe, ok := domainauth.AsProviderError(err)
		return ok && pe.Retryable
	},
}

// withRetry runs fn up to policy.attempts times with exponential backoff.
// Context cancellation stops scheduling further attempts; whether an in-flight
// attempt observes cancellation is up to fn.
func withRetry(ctx context.Context, policy retryPolicy, fn func() error) error {
	var lastErr error
	delay := policy.baseDelay
	for attempt := 0; attempt < policy.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			}
			delay *= 2
		}
		lastErr = fn()
		if lastErr == nil || !policy.retryable(lastErr) {
			return lastErr
		}
		if policy.onRetry != nil && attempt < policy.attempts-1 {
			policy.onRetry(lastErr)
		}
	}
	return lastErr
}
