package reliability

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy decides whether and when a failed attempt is retried. attempt
// counts from zero.
type Policy interface {
	Next(attempt int, err error) (time.Duration, bool)
}

// Backoff retries transient failures with exponentially growing delays.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	MaxRetries int
	Jitter     float64          // fraction of the delay, 0 disables
	Retryable  func(error) bool // defaults to IsTransient
}

// NewBackoff doubles the delay from initial up to max, with 15% jitter
func NewBackoff(initial, max time.Duration, maxRetries int) *Backoff {
	return &Backoff{
		Initial:    initial,
		Max:        max,
		Multiplier: 2,
		MaxRetries: maxRetries,
		Jitter:     0.15,
		Retryable:  IsTransient,
	}
}

// Delay returns the wait before retry number attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt))
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter > 0 {
		delay += delay * b.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(delay)
}

// Next implements Policy
func (b *Backoff) Next(attempt int, err error) (time.Duration, bool) {
	if attempt >= b.MaxRetries {
		return 0, false
	}
	retryable := b.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	if !retryable(err) {
		return 0, false
	}
	return b.Delay(attempt), true
}

// NoRetry never retries
type NoRetry struct{}

// Next implements Policy
func (NoRetry) Next(int, error) (time.Duration, bool) {
	return 0, false
}

// Retry calls fn until it succeeds, the policy gives up or ctx ends. When
// retries were attempted and all failed, the last error is wrapped in a
// *RetryError.
func Retry(ctx context.Context, policy Policy, fn func() error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		delay, again := policy.Next(attempt, err)
		if !again {
			if attempt == 0 {
				return err
			}
			return &RetryError{Attempts: attempt + 1, Err: err}
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
