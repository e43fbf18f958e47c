package types

import (
	"errors"
	"fmt"
)

// Completion failures shared by every provider. Providers wrap these with
// their own name so callers can still match them with errors.Is.
var (
	// ErrEmptyPrompt is returned before any request is made when the prompt is empty.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrNoChoices means the provider accepted the request but returned no choices.
	ErrNoChoices = errors.New("invalid request; no choices received")
	// ErrNoCompletion means a choice was returned but its text was empty.
	ErrNoCompletion = errors.New("invalid request; no completion received")
	// ErrConflictingStop is returned by strict providers when both the call and
	// the provider defaults carry a stop sequence.
	ErrConflictingStop = errors.New("`stop` found in both the input and default params")
)

// ConfigError reports invalid provider configuration detected at construction time.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Msg
	}
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Msg)
}

// NewConfigError builds a ConfigError for the given field.
func NewConfigError(field, msg string) error {
	return &ConfigError{Field: field, Msg: msg}
}

// ParseError reports a completion that could not be parsed as JSON.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse completion as json: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RetryableError represents an error that indicates the operation can be retried.
// This is typically used for transient errors like network timeouts, rate limits, or temporary server unavailability.
// Nothing in this module retries; the classification is left to callers.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps an existing error as a RetryableError.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError anywhere in its chain.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}
