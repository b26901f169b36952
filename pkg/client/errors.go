package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies extraction failures for callers.
type ErrorType string

// Error type values.
const (
	ErrNetwork          ErrorType = "NETWORK_ERROR"
	ErrInvalidURL       ErrorType = "INVALID_URL"
	ErrUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrRateLimited      ErrorType = "RATE_LIMITED"
	ErrExtractionFailed ErrorType = "EXTRACTION_FAILED"
	ErrServer           ErrorType = "SERVER_ERROR"
	ErrUnknown          ErrorType = "UNKNOWN"
)

// Error is the typed failure returned by extraction calls. Retryable tells
// callers whether backing off and retrying can help.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// IsRetryable reports whether err is a client Error marked retryable.
func IsRetryable(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr) && cerr.Retryable
}

// classifyStatus maps an HTTP response to a typed Error. The message comes
// from the server's error body when available.
func classifyStatus(statusCode int, message string) *Error {
	if message == "" {
		message = http.StatusText(statusCode)
	}

	e := &Error{StatusCode: statusCode, Message: message}

	switch {
	case statusCode == http.StatusBadRequest && message == "Invalid URL":
		e.Type = ErrInvalidURL
		e.Retryable = false
	case statusCode == http.StatusUnauthorized:
		e.Type = ErrUnauthorized
		e.Retryable = false
	case statusCode == http.StatusTooManyRequests:
		e.Type = ErrRateLimited
		e.Retryable = true
	case statusCode == http.StatusUnprocessableEntity:
		e.Type = ErrExtractionFailed
		e.Retryable = false
	case statusCode >= 500:
		e.Type = ErrServer
		e.Retryable = true
	default:
		e.Type = ErrUnknown
		e.Retryable = true
	}

	return e
}

// classifyTransport maps a transport-level failure (connection refused,
// timeout, canceled context) to a typed Error.
func classifyTransport(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Type: ErrNetwork, Message: "request canceled", Retryable: false}
	}
	return &Error{Type: ErrNetwork, Message: err.Error(), Retryable: true}
}
