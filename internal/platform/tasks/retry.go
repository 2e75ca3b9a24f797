// Package tasks runs background work: a two-retry wrapper, a bounded worker
// pool for one-off tasks and a scheduler for periodic jobs.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	dErrors "bciers/pkg/domain-errors"
)

// MaxRetries is the number of retries after the first attempt.
const MaxRetries = 2

// RetryPolicy tunes the exponential backoff between attempts.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Retries         uint64
}

// DefaultRetryPolicy retries twice with a short exponential backoff.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	Retries:         MaxRetries,
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs fn, retrying up to two more times on failure. Errors carrying a
// client-side domain code (validation, not found, conflict, forbidden) are
// not retried.
func Retry(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return RetryWithPolicy(ctx, DefaultRetryPolicy, name, fn)
}

// RetryWithPolicy is Retry with explicit timings.
func RetryWithPolicy(ctx context.Context, p RetryPolicy, name string, fn func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, p.Retries), ctx)

	err := backoff.Retry(func() error {
		err := fn(ctx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		return &TaskError{Task: name, Err: err}
	}
	return nil
}

func retryable(err error) bool {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvalidInput,
		dErrors.CodeNotFound, dErrors.CodeConflict, dErrors.CodeUnauthorized,
		dErrors.CodeForbidden, dErrors.CodeInvalidState, dErrors.CodeInvariantViolation:
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// TaskError names the task that gave up.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return "task " + e.Task + ": " + e.Err.Error()
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
