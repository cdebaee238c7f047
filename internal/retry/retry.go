// Package retry applies a bounded exponential backoff with jitter to calls
// that failed with a transient (throttling or 5xx) error.
package retry

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// Policy configures how a call is retried.
type Policy struct {
	// MaxAttempts includes the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the randomization factor in [0,1] applied to each delay.
	Jitter float64
	// Retryable decides whether err is worth another attempt. Defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry, when set, is called before each sleep.
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy is five attempts starting at 200ms, capped at 5s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.5,
	}
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent or ctx is done. The last error from fn is returned; when
// ctx ends while waiting between attempts it is joined with ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if p.OnRetry != nil {
		notify = p.OnRetry
	}

	err := backoff.RetryNotify(op, p.newBackOff(ctx), notify)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	if cerr := ctx.Err(); cerr != nil && lastErr != nil && errors.Is(err, cerr) && !errors.Is(lastErr, cerr) {
		return errors.Join(lastErr, err)
	}
	return err
}

// Value is Do for calls that also return a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
