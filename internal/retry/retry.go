// Package retry implements a bounded fixed-delay retry policy.  It is kept
// decoupled from any particular error type so it can wrap arbitrary store
// calls uniformly.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy describes how often an operation is attempted and how long to wait
// between attempts.  The delay is fixed; there is no backoff growth.
type Policy struct {
	Attempts int           // total attempts, minimum 1
	Delay    time.Duration // pause between attempts
}

// ErrInvalidPolicy is returned when Do is called with zero attempts.
var ErrInvalidPolicy = errors.New("retry: attempts must be >= 1")

// Do runs fn up to p.Attempts times, sleeping p.Delay between failures.
// The first nil error wins; otherwise the last error is returned after
// exhausting all attempts.  The sleep honors ctx cancellation so a caller's
// deadline actually aborts the operation instead of firing after the fact.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		return ErrInvalidPolicy
	}
	var last error
	for i := 0; i < p.Attempts; i++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}
		if last = fn(ctx); last == nil {
			return nil
		}
		if i == p.Attempts-1 {
			break
		}
		if p.Delay > 0 {
			t := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return last
			case <-t.C:
			}
		}
	}
	return last
}

// DoValue is Do for operations that produce a value alongside the error.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
