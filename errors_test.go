package parserator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRetryable(t *testing.T) {
	retryable := []ErrorCode{CodeRateLimit, CodeServiceUnavailable, CodeNetwork, CodeTimeout}
	for _, code := range retryable {
		assert.True(t, (&Error{Code: code}).Retryable(), "%s should be retryable", code)
	}

	terminal := []ErrorCode{
		CodeValidation, CodeAuthentication, CodeQuotaExceeded,
		CodeParseFailed, CodeBatchHalted, CodeInternal,
	}
	for _, code := range terminal {
		assert.False(t, (&Error{Code: code}).Retryable(), "%s should not be retryable", code)
	}
}

func TestErrorStringIncludesRequestID(t *testing.T) {
	err := &Error{Code: CodeRateLimit, Message: "slow down", RequestID: "req_42"}
	assert.Equal(t, "parserator: RATE_LIMIT_EXCEEDED: slow down (request req_42)", err.Error())

	err = &Error{Code: CodeValidation, Message: "schema is empty"}
	assert.Equal(t, "parserator: VALIDATION_ERROR: schema is empty", err.Error())
}

func TestAsErrorUnwrapsChains(t *testing.T) {
	inner := newQuotaExceededError("monthly allowance exhausted")
	wrapped := fmt.Errorf("calling parse: %w", inner)

	pe, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeQuotaExceeded, pe.Code)
	assert.True(t, IsCode(wrapped, CodeQuotaExceeded))
	assert.False(t, IsCode(wrapped, CodeRateLimit))
}

func TestAsErrorForeignError(t *testing.T) {
	_, ok := AsError(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsCode(errors.New("plain"), CodeInternal))
}

func TestToError(t *testing.T) {
	pe := newNetworkError("connection refused")
	assert.Same(t, pe, toError(pe), "taxonomy errors pass through unchanged")

	wrapped := toError(errors.New("disk full"))
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "disk full", wrapped.Message)
}

func TestConstructorDefaultMessages(t *testing.T) {
	assert.Equal(t, "authentication failed", newAuthenticationError("").Message)
	assert.Equal(t, "rate limit exceeded", newRateLimitError("", 0).Message)
	assert.Equal(t, "quota exceeded", newQuotaExceededError("").Message)
	assert.Equal(t, "parse operation failed", newParseFailedError("", nil).Message)
	assert.Equal(t, "service temporarily unavailable", newServiceUnavailableError("").Message)
}

func TestRateLimitErrorCarriesRetryAfter(t *testing.T) {
	err := newRateLimitError("too many requests", 2.5)
	assert.InDelta(t, 2.5, err.RetryAfter, 1e-9)
}
