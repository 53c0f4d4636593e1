package recovery

import (
	"context"
	"time"

	"github.com/gafferworks/gaffer/internal/ctxutil"
)

// backoffMultiplier grows the delay between retry attempts.
const backoffMultiplier = 2.0

// RetryableOperation is the unit ExecuteWithRetry drives. Implementations
// provide the attempt logic and the retry decision.
type RetryableOperation interface {
	// Attempt performs a single attempt. A nil error means success.
	Attempt(ctx context.Context, attempt int) error

	// ShouldRetry reports whether the operation should be retried after
	// the given failure.
	ShouldRetry(err error) bool

	// OnRetryWait is called before waiting for the next retry, for
	// logging or progress reporting.
	OnRetryWait(attempt int, delay time.Duration)
}

// ExecuteWithRetry runs op under the given retry plan: up to MaxAttempts
// attempts with delays starting at BaseDelay, doubling per attempt and
// capped at MaxDelay. It returns the attempts made and the final error,
// nil on success. Context cancellation interrupts the wait between
// attempts and surfaces as the context's error.
func ExecuteWithRetry(ctx context.Context, plan RetryWithBackoff, op RetryableOperation) (attempts int, finalErr error) {
	delay := plan.BaseDelay

	for attempt := 1; attempt <= plan.MaxAttempts; attempt++ {
		attempts = attempt

		err := op.Attempt(ctx, attempt)
		if err == nil {
			return attempts, nil
		}
		finalErr = err

		if !op.ShouldRetry(err) {
			break
		}

		// Wait before retrying, unless this was the last attempt.
		if attempt < plan.MaxAttempts {
			op.OnRetryWait(attempt, delay)

			if sleepErr := ctxutil.Sleep(ctx, delay); sleepErr != nil {
				return attempts, sleepErr
			}

			delay = time.Duration(float64(delay) * backoffMultiplier)
			if delay > plan.MaxDelay {
				delay = plan.MaxDelay
			}
		}
	}

	return attempts, finalErr
}

// FuncOperation adapts plain functions to RetryableOperation for the
// common case. Nil ShouldRetryFunc means never retry; nil OnRetryWaitFunc
// waits silently.
type FuncOperation struct {
	AttemptFunc     func(ctx context.Context, attempt int) error
	ShouldRetryFunc func(err error) bool
	OnRetryWaitFunc func(attempt int, delay time.Duration)
}

// Attempt implements RetryableOperation.
func (f *FuncOperation) Attempt(ctx context.Context, attempt int) error {
	return f.AttemptFunc(ctx, attempt)
}

// ShouldRetry implements RetryableOperation.
func (f *FuncOperation) ShouldRetry(err error) bool {
	if f.ShouldRetryFunc == nil {
		return false
	}
	return f.ShouldRetryFunc(err)
}

// OnRetryWait implements RetryableOperation.
func (f *FuncOperation) OnRetryWait(attempt int, delay time.Duration) {
	if f.OnRetryWaitFunc != nil {
		f.OnRetryWaitFunc(attempt, delay)
	}
}

// Compile-time interface check.
var _ RetryableOperation = (*FuncOperation)(nil)
