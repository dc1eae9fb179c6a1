package parserator

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the category of a failed operation. Codes are stable
// machine-readable strings; callers should dispatch on the code rather than
// on error message text.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeAuthentication     ErrorCode = "AUTHENTICATION_ERROR"
	CodeRateLimit          ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeQuotaExceeded      ErrorCode = "QUOTA_EXCEEDED"
	CodeNetwork            ErrorCode = "NETWORK_ERROR"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeParseFailed        ErrorCode = "PARSE_FAILED"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeBatchHalted        ErrorCode = "BATCH_HALTED"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error is the single error type produced by the SDK. The Code tag replaces a
// subclass hierarchy: retry eligibility, HTTP mapping, and CLI exit behaviour
// all dispatch on it. An Error is never mutated after construction.
type Error struct {
	Code    ErrorCode
	Message string

	// Details carries structured context such as the HTTP status, the raw
	// response body, or the batch index that produced the failure.
	Details map[string]any

	// RequestID is the server-side correlation id, when one is known.
	RequestID string

	// RetryAfter is the server-supplied retry delay in seconds. Only set on
	// CodeRateLimit errors whose response carried a Retry-After header.
	RetryAfter float64
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("parserator: %s: %s (request %s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("parserator: %s: %s", e.Code, e.Message)
}

// Retryable reports whether the error represents a transient condition that
// the backoff wrapper may retry. Local validation and other caller mistakes
// are never retryable.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeRateLimit, CodeServiceUnavailable, CodeNetwork, CodeTimeout:
		return true
	}
	return false
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsCode reports whether err is a parserator error with the given code.
func IsCode(err error, code ErrorCode) bool {
	pe, ok := AsError(err)
	return ok && pe.Code == code
}

func newValidationError(message string, details map[string]any) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

func newAuthenticationError(message string) *Error {
	if message == "" {
		message = "authentication failed"
	}
	return &Error{Code: CodeAuthentication, Message: message}
}

func newRateLimitError(message string, retryAfter float64) *Error {
	if message == "" {
		message = "rate limit exceeded"
	}
	return &Error{Code: CodeRateLimit, Message: message, RetryAfter: retryAfter}
}

func newQuotaExceededError(message string) *Error {
	if message == "" {
		message = "quota exceeded"
	}
	return &Error{Code: CodeQuotaExceeded, Message: message}
}

func newNetworkError(message string) *Error {
	return &Error{Code: CodeNetwork, Message: message}
}

func newTimeoutError(timeout string) *Error {
	return &Error{Code: CodeTimeout, Message: fmt.Sprintf("request exceeded the configured timeout of %s", timeout)}
}

func newParseFailedError(message string, details map[string]any) *Error {
	if message == "" {
		message = "parse operation failed"
	}
	return &Error{Code: CodeParseFailed, Message: message, Details: details}
}

func newServiceUnavailableError(message string) *Error {
	if message == "" {
		message = "service temporarily unavailable"
	}
	return &Error{Code: CodeServiceUnavailable, Message: message}
}

// toError normalizes any error into the taxonomy. Errors produced by the SDK
// pass through untouched; anything else is wrapped as an internal error so
// batch failure entries always carry a code.
func toError(err error) *Error {
	if pe, ok := AsError(err); ok {
		return pe
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}
