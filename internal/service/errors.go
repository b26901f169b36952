package service

import "fmt"

// ServiceError carries an HTTP status, a caller-facing message, and a
// retryability hint from the service layer to the transport layer. The
// message is safe to serialize to clients; the wrapped cause is for logs.
type ServiceError struct {
	Status    int
	Message   string
	Retryable bool

	cause error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.cause
}
