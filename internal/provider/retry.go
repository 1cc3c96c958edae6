package provider

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

// retryDecision is returned by the retry loop and reports how many attempts
// it made.
type retryDecision struct {
	attempts int
}

// withRetry runs fn up to maxRetries+1 times, backing off exponentially
// with bounded jitter between attempts, and stops early when the error is
// not retryable (§4.2, §7, §8's "retry attempt bounds" testable property).
func withRetry(ctx context.Context, maxRetries int, base, max time.Duration, jitterFactor float64, fn func() error) (retryDecision, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return retryDecision{attempts: attempt}, err
		}

		lastErr = fn()
		if lastErr == nil {
			return retryDecision{attempts: attempt + 1}, nil
		}

		var fortErr *models.Error
		if errors.As(lastErr, &fortErr) && !fortErr.Retryable() {
			return retryDecision{attempts: attempt + 1}, lastErr
		}

		if attempt == maxRetries {
			break
		}

		delay := backoffDelay(attempt, base, max, jitterFactor)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return retryDecision{attempts: attempt + 1}, ctx.Err()
		case <-timer.C:
		}
	}
	return retryDecision{attempts: maxRetries + 1}, lastErr
}

// backoffDelay computes an exponential backoff with bounded jitter:
// delay = clamp(base * 2^attempt * (1 ± jitterFactor*rand)), per §4.2's
// delay_k = clamp(initial·multiplier^k·(1 ± jitter_factor·rand)). With
// jitterFactor=0 the delay is fully deterministic, which §8 scenario 5
// relies on for its elapsed-time lower bound.
func backoffDelay(attempt int, base, max time.Duration, jitterFactor float64) time.Duration {
	nominal := base << attempt
	if nominal <= 0 || nominal > max { // overflow or exceeds ceiling
		nominal = max
	}
	if nominal <= 0 {
		return 0
	}

	if jitterFactor <= 0 {
		return nominal
	}
	if jitterFactor > 1 {
		jitterFactor = 1
	}

	spread := 1 + jitterFactor*(2*rand.Float64()-1)
	delay := time.Duration(float64(nominal) * spread)
	if delay < 0 {
		delay = 0
	}
	if delay > max {
		delay = max
	}
	return delay
}
