package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy configures retries of collaborator calls.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial call.
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool

	// OnRetry is called before each retry with the triggering error, the
	// 0-indexed attempt and the delay about to be applied.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns 2 retries with 1s base delay, 30s cap, 2x backoff and jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay computes the backoff before retry number attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	delay := time.Duration(d)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}
	return delay
}

// ShouldRetry reports whether err after attempt deserves another try.
// Context errors and errors wrapped with Permanent are final.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxRetries {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *permanentError
	return !errors.As(err, &perm)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs fn until it succeeds, the policy gives up, or ctx ends.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if !policy.ShouldRetry(err, attempt) {
			return err
		}

		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

type retrying struct {
	next   Completer
	policy RetryPolicy
}

// WithRetry wraps c so failed completions are retried under policy.
func WithRetry(c Completer, policy RetryPolicy) Completer {
	if policy.MaxRetries <= 0 {
		return c
	}
	return &retrying{next: c, policy: policy}
}

func (r *retrying) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	err := Retry(ctx, r.policy, func() error {
		var err error
		out, err = r.next.Complete(ctx, prompt)
		return err
	})
	return out, err
}

type limited struct {
	next    Completer
	limiter *rate.Limiter
}

// WithRateLimit caps c at perMinute calls. Zero or less disables the cap.
func WithRateLimit(c Completer, perMinute int) Completer {
	if perMinute <= 0 {
		return c
	}
	return &limited{
		next:    c,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (l *limited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Complete(ctx, prompt)
}
