// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Provider errors.
	ErrProviderTimeout = errors.New("provider timeout")
	ErrProviderFailure = errors.New("provider failure")
	ErrResponseParse   = errors.New("response parse failure")
	ErrRateLimit       = errors.New("rate limit exceeded")

	// Engine errors.
	ErrNoScorer     = errors.New("no scorer available")
	ErrNoCandidates = errors.New("no candidate profiles")

	// Configuration errors.
	ErrConfigMissing = errors.New("missing configuration")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
