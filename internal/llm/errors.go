// Package llm provides the chat-completion client used for metadata
// extraction and classification of provider-side failures.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Error categories for LLM operations.
var (
	// ErrNotConfigured indicates no provider API key is available.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrNoToolCall indicates the model response contained no function call payload.
	ErrNoToolCall = errors.New("no function call in response")

	// ErrInvalidResponse indicates the model output failed schema validation
	// or was not parseable JSON.
	ErrInvalidResponse = errors.New("invalid response format")

	// ErrRateLimited indicates the provider returned HTTP 429.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrInvalidAPIKey indicates the provider rejected the configured key.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrProviderError indicates a general provider-side failure.
	ErrProviderError = errors.New("provider error")
)

// Error represents a classified failure from the LLM provider.
type Error struct {
	// Err is the category sentinel (one of the vars above).
	Err error

	// StatusCode is the provider HTTP status, when applicable.
	StatusCode int

	// Model that was being used.
	Model string

	// Message is safe to surface to callers.
	Message string

	// Raw is the provider response body or transport error text.
	Raw string

	// Category for log classification (rate_limit, invalid_key, timeout, ...).
	Category string

	// Retryable marks errors worth retrying without reconfiguration.
	Retryable bool
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown LLM error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps a provider HTTP status to a classified Error.
func ClassifyStatus(statusCode int, body, model string) *Error {
	e := &Error{
		StatusCode: statusCode,
		Model:      model,
		Raw:        body,
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		e.Err = ErrRateLimited
		e.Category = "rate_limit"
		e.Message = "Rate limit exceeded. Please wait before retrying."
		e.Retryable = true

	case http.StatusUnauthorized, http.StatusForbidden:
		e.Err = ErrInvalidAPIKey
		e.Category = "invalid_key"
		e.Message = "Invalid API key. Please check the LLM configuration."
		e.Retryable = false

	case http.StatusPaymentRequired:
		e.Err = ErrProviderError
		e.Category = "quota_exceeded"
		e.Message = "Provider quota exhausted. Please check the account's billing status."
		e.Retryable = false

	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		e.Err = ErrProviderError
		e.Category = "provider_unavailable"
		e.Message = "The LLM provider is temporarily unavailable. Please try again."
		e.Retryable = true

	default:
		e.Err = ErrProviderError
		e.Category = "provider_error"
		e.Message = "The LLM provider returned an error."
		e.Retryable = statusCode >= 500
	}

	return e
}

// ClassifyTransport maps a transport-level failure (timeout, connection
// refused, context cancellation) to a classified Error.
func ClassifyTransport(err error, model string) *Error {
	e := &Error{
		Err:   ErrProviderError,
		Model: model,
		Raw:   err.Error(),
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout"):
		e.Category = "timeout"
		e.Message = "Request timed out. The model took too long to respond."
		e.Retryable = true
	case errors.Is(err, context.Canceled):
		e.Category = "canceled"
		e.Message = "Request canceled."
		e.Retryable = false
	default:
		e.Category = "network"
		e.Message = "Failed to reach the LLM provider."
		e.Retryable = true
	}

	return e
}

// IsRateLimited reports whether err is a provider rate-limit error.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether err is a classified retryable error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
