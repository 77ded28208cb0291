// Package retry implements classify-and-backoff retries for transient
// failures. The processor wraps store writes with a small at-least-once
// policy: upsert semantics make replay idempotent, so retrying a failed
// write never double-applies.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Action tells Do how to treat a failed attempt.
type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, back off and try again
)

// Classify maps an error to the action to take.
type Classify func(err error) Action

// Policy configures attempts and backoff growth.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

// DoVoid runs op until it succeeds, classify returns Stop, or attempts are
// exhausted. Backoff doubles between attempts and respects ctx cancellation.
func DoVoid(ctx context.Context, p Policy, classify Classify, op func() error) error {
	backoff := p.InitialBackoff

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		if classify != nil && classify(err) == Stop {
			return &PermanentError{Err: err}
		}

		if attempt == p.MaxAttempts {
			return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	panic("unreachable: MaxAttempts must be >= 1")
}

// Do is the value-returning form of DoVoid.
func Do[T any](ctx context.Context, p Policy, classify Classify, op func() (T, error)) (T, error) {
	var val T
	err := DoVoid(ctx, p, classify, func() error {
		var opErr error
		val, opErr = op()
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val, nil
}

// PermanentError wraps an error classified as non-retryable.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
