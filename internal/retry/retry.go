// Package retry provides a minimal bounded-retry helper for transient
// provider failures. Parse errors and context cancellation are never
// retried.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Do runs fn up to attempts times, sleeping backoff between tries.
// It stops early on success, context cancellation, malformed LLM output
// or budget rejection. attempts < 1 is treated as 1.
func Do(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
	}
	return err
}

// Retryable reports whether err is worth another attempt. Malformed
// model output and budget rejections are deterministic and are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrLLMMalformedOutput) {
		return false
	}
	if errors.Is(err, domain.ErrTokenBudgetExceeded) {
		return false
	}
	return true
}
