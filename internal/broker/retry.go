package broker

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
)

// retrier applies jittered exponential backoff to broker calls. A streak of
// consecutive failures across calls trips a circuit breaker that cools the
// whole client down before anything is retried again.
type retrier struct {
	log              *zap.SugaredLogger
	maxAttempts      int
	baseDelay        time.Duration
	breakerThreshold int
	breakerCooldown  time.Duration
	streak           int
}

func (r *retrier) do(ctx context.Context, name string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			r.streak = 0
			return nil
		}
		lastErr = err

		if isNoPosition(err) {
			return ErrNoPosition
		}
		if isNonRetryable(err) {
			r.log.Errorw("broker call not retryable", "call", name, "error", err)
			return err
		}

		r.streak++
		if r.breakerThreshold > 0 && r.streak >= r.breakerThreshold {
			r.log.Errorw("circuit breaker tripped", "call", name, "streak", r.streak, "cooldown", r.breakerCooldown)
			if waitErr := WaitForContext(ctx, r.breakerCooldown); waitErr != nil {
				return waitErr
			}
			r.streak = 0
			return err
		}

		wait := backoff(r.baseDelay, attempt)
		r.log.Warnw("broker call failed, retrying", "call", name, "attempt", attempt+1, "wait", wait, "error", err)
		if waitErr := WaitForContext(ctx, wait); waitErr != nil {
			return waitErr
		}
	}
	r.log.Errorw("broker call failed after retries", "call", name, "attempts", r.maxAttempts, "error", lastErr)
	return lastErr
}

func backoff(base time.Duration, attempt int) time.Duration {
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(base) * float64(int(1)<<attempt) * jitter)
}

// Pattern-day-trade protection means the order was refused outright; retrying
// the same order would only be refused again.
func isNonRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "pattern day trading protection")
}

func isNoPosition(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "position does not exist") || strings.Contains(msg, "symbol not found")
}
