package api

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WithRetry runs op up to maxRetries+1 times, sleeping baseDelay * 2^attempt
// between failed attempts. Only errors IsRetriable accepts are retried; a
// non-retriable failure, or the last allowed attempt's failure, is returned
// to the caller as-is so it can still be classified.
//
// Backoff is deterministic (no jitter): submission-side callers depend on the
// exact call count, and jitter would not buy anything at this call volume.
func WithRetry[T any](op func() (T, error), maxRetries uint64, baseDelay time.Duration) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0

	return backoff.RetryWithData(func() (T, error) {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if IsRetriable(err) {
			return v, err
		}
		return v, backoff.Permanent(err)
	}, backoff.WithMaxRetries(b, maxRetries))
}
