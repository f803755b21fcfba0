package rule

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// BackoffStrategy selects how RetryPolicy spaces out retry attempts.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy governs how a CallInstr reattempts a failed node-skill call.
// MaxAttempts <= 1 means no retries.
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffStrategy BackoffStrategy

	// RetryableErrors restricts retries to errors whose message contains
	// one of these substrings. Empty means every error is retryable.
	RetryableErrors []string

	// OnRetry, if set, is called before each delay with the attempt
	// number just exhausted and the error that triggered the retry.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy is a conservative exponential backoff for callers
// that opt a node-skill call into retries. A CallInstr without an explicit
// policy does not get it; it uses NoRetryPolicy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffStrategy: BackoffExponential,
	}
}

// NoRetryPolicy never retries; it is the zero-value CallInstr policy.
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// ShouldRetry reports whether err matches the policy's retryable set.
func (rp *RetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if len(rp.RetryableErrors) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range rp.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// GetDelay returns the wait before the given attempt number (1-based),
// capped at MaxDelay.
func (rp *RetryPolicy) GetDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	var delay time.Duration
	switch rp.BackoffStrategy {
	case BackoffConstant:
		delay = rp.InitialDelay
	case BackoffLinear:
		delay = rp.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = time.Duration(float64(rp.InitialDelay) * math.Pow(2, float64(attempt-1)))
	default:
		delay = rp.InitialDelay
	}
	if rp.MaxDelay > 0 && delay > rp.MaxDelay {
		delay = rp.MaxDelay
	}
	return delay
}

// Execute runs fn, retrying per the policy until it succeeds, attempts
// are exhausted, or the error isn't retryable. It blocks for the backoff
// delay between attempts, so it must only be called from Scheduler.run's
// top-level drain, never from inside a cellgraph wave.
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	attempts := rp.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry: cancelled: %w", ctx.Err())
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt >= attempts || !rp.ShouldRetry(lastErr) {
			break
		}
		if rp.OnRetry != nil {
			rp.OnRetry(attempt, lastErr)
		}
		if delay := rp.GetDelay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry: cancelled during delay: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("retry: all attempts failed: %w", lastErr)
}
