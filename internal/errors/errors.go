package errors

import (
	stderrors "errors"
	"fmt"
)

// GutenError is the structured error type for the ingestion pipeline.
// It carries enough context for logging, CLI presentation, and deciding
// whether a failure is local to one item or fatal to the run.
type GutenError struct {
	// Code is the unique error code (e.g., "ERR_302_NETWORK_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *GutenError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GutenError) Unwrap() error {
	return e.Cause
}

// Is matches another GutenError by code so errors.Is works across wrapping.
func (e *GutenError) Is(target error) bool {
	if t, ok := target.(*GutenError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *GutenError) WithDetail(key, value string) *GutenError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the operator.
func (e *GutenError) WithSuggestion(suggestion string) *GutenError {
	e.Suggestion = suggestion
	return e
}

// New creates a GutenError. Category, severity, and the retryable flag
// are derived from the code.
func New(code string, message string, cause error) *GutenError {
	return &GutenError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a GutenError from an existing error, reusing its message.
func Wrap(code string, err error) *GutenError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *GutenError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// NetworkError creates a network-related error. Network errors are retryable.
func NetworkError(message string, cause error) *GutenError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *GutenError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable reports whether err (or anything it wraps) is a retryable GutenError.
func IsRetryable(err error) bool {
	var ge *GutenError
	if stderrors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// IsFatal reports whether err carries fatal severity.
func IsFatal(err error) bool {
	var ge *GutenError
	if stderrors.As(err, &ge) {
		return ge.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" if err is not a GutenError.
func GetCode(err error) string {
	var ge *GutenError
	if stderrors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
