// retry.go - Retry, backoff and per-attempt timeout for provider calls

package ai

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

// RetryConfig defines retry behavior for provider calls
type RetryConfig struct {
	// MaxRetries is the total number of attempts, first one included.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// MaxJitter bounds the random delay added to every backoff.
	MaxJitter time.Duration
	// Timeout bounds each attempt. Zero disables it.
	Timeout time.Duration
}

// DefaultRetryConfig provides the defaults for retry behavior
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
	MaxJitter:  500 * time.Millisecond,
}

// Attempt statuses reported to the AttemptHook.
const (
	AttemptSuccess = "success"
	AttemptFailure = "failure"
)

// AttemptRecord describes one finished attempt.
type AttemptRecord struct {
	Provider string
	Model    string
	Endpoint string
	Attempt  int
	Duration time.Duration
	Status   string
	Err      error
}

// AttemptHook observes every attempt. It must not influence control flow.
type AttemptHook func(ctx context.Context, rec AttemptRecord)

// LogAttempt is the AttemptHook writing one structured log line per attempt.
func LogAttempt(ctx context.Context, rec AttemptRecord) {
	logger := common.LoggerFromContext(ctx)
	attrs := []any{
		"provider", rec.Provider,
		"model", rec.Model,
		"endpoint", rec.Endpoint,
		"attempt", rec.Attempt,
		"duration_ms", rec.Duration.Milliseconds(),
		"status", rec.Status,
	}
	if rec.Err != nil {
		logger.Warn("provider attempt", append(attrs, "error", rec.Err.Error(), "retryable", IsRetryable(rec.Err))...)
		return
	}
	logger.Info("provider attempt", attrs...)
}

// WithRetry runs operation until it succeeds, fails with a non-retryable error,
// or runs out of attempts. The last error is returned unwrapped.
func WithRetry[T any](ctx context.Context, id ProviderIdentity, config RetryConfig, hook AttemptHook, operation func(context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := config.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt-1, config)
			common.LoggerFromContext(ctx).Debug("waiting before retry",
				"provider", id.Name, "attempt", attempt+1, "delay_ms", delay.Milliseconds())

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		start := time.Now()
		result, err := runAttempt(ctx, id, config.Timeout, operation)

		rec := AttemptRecord{
			Provider: id.Name,
			Model:    id.Model,
			Endpoint: id.Endpoint,
			Attempt:  attempt + 1,
			Duration: time.Since(start),
			Status:   AttemptSuccess,
			Err:      err,
		}
		if err != nil {
			rec.Status = AttemptFailure
		}
		if hook != nil {
			hook(ctx, rec)
		}

		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsRetryable(err) {
			return zero, err
		}
	}

	return zero, lastErr
}

// runAttempt executes operation once, racing it against the timeout when one is set.
func runAttempt[T any](ctx context.Context, id ProviderIdentity, timeout time.Duration, operation func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return operation(ctx)
	}

	var zero T
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := operation(attemptCtx)
		done <- outcome{value: value, err: err}
	}()

	timeoutErr := &TimeoutError{Provider: id.Name, Timeout: timeout.String()}
	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, timeoutErr
		}
		return out.value, out.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, timeoutErr
	}
}

// calculateBackoff computes min(base * 2^failedAttempt + jitter, max).
// failedAttempt is the zero-based index of the attempt that just failed.
func calculateBackoff(failedAttempt int, config RetryConfig) time.Duration {
	delay := config.BaseDelay
	for i := 0; i < failedAttempt; i++ {
		delay *= 2
		if config.MaxDelay > 0 && delay >= config.MaxDelay {
			break
		}
	}

	if config.MaxJitter > 0 {
		delay += time.Duration(rand.Int64N(int64(config.MaxJitter) + 1)) // #nosec G404 -- jitter needs no crypto randomness
	}

	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}
