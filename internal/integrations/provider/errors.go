// Package provider holds the failure taxonomy and HTTP plumbing shared by
// the CHES, eLicensing and BCCR clients.
package provider

import (
	"errors"
	"fmt"

	dErrors "bciers/pkg/domain-errors"
)

// Category is the normalized failure taxonomy for external calls.
type Category string

const (
	ErrorTimeout        Category = "timeout"
	ErrorBadData        Category = "bad_data"
	ErrorAuthentication Category = "authentication"
	ErrorOutage         Category = "outage"
	ErrorNotFound       Category = "not_found"
	ErrorRateLimited    Category = "rate_limited"
	ErrorInternal       Category = "internal"
)

// Error wraps an external failure with its category.
type Error struct {
	Category  Category
	Provider  string
	Message   string
	Err       error
	Transient bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call may succeed.
func (e *Error) Retryable() bool {
	return e.Transient
}

// NewError builds a categorized error. Timeouts, outages and rate limiting
// are retryable.
func NewError(category Category, providerName, message string, err error) *Error {
	return &Error{
		Category:  category,
		Provider:  providerName,
		Message:   message,
		Err:       err,
		Transient: category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is a retryable provider failure.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// CategoryOf returns the category of err, or ErrorInternal.
func CategoryOf(err error) Category {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// ToDomain maps a provider failure onto a domain error for callers that
// surface it to clients.
func ToDomain(err error, what string) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if !errors.As(err, &pe) {
		return dErrors.Wrap(err, dErrors.CodeInternal, what+" failed")
	}
	switch pe.Category {
	case ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+": record not found")
	case ErrorTimeout, ErrorOutage, ErrorRateLimited:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, what+" is temporarily unavailable")
	case ErrorBadData:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, what+" rejected the request")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, what+" failed")
	}
}
