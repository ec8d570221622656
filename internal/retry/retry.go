// Package retry runs network-crossing operations with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Options controls a retry loop. Zero values fall back to DefaultOptions.
type Options struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(err error, attempt int)
}

// DefaultOptions mirrors the RETRY_* configuration defaults.
var DefaultOptions = Options{
	MaxAttempts:   3,
	InitialDelay:  time.Second,
	BackoffFactor: 2,
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultOptions.MaxAttempts
	}
	if o.InitialDelay < 0 {
		o.InitialDelay = 0
	}
	if o.BackoffFactor <= 0 {
		o.BackoffFactor = DefaultOptions.BackoffFactor
	}
	return o
}

// Delay returns the sleep before the retry that follows the given failed attempt (1-based).
func (o Options) Delay(attempt int) time.Duration {
	o = o.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(o.InitialDelay) * math.Pow(o.BackoffFactor, float64(attempt-1)))
}

// Do executes op up to MaxAttempts times. After the final attempt the last error is
// returned as-is so callers can match it with errors.Is / errors.As.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err
		if attempt == opts.MaxAttempts {
			break
		}

		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt)
		}

		timer := time.NewTimer(opts.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// DoErr is Do for operations that only return an error.
func DoErr(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	_, err := Do(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
