package handlers

import (
	"errors"
	"net/http"

	"github.com/pagelens/pagelens-api/internal/service"
)

// ExtractionError is the error body for failed extraction requests.
// It implements huma.StatusError so it can be returned from handlers, and
// carries a retryable hint so clients can decide whether to back off and
// retry or surface the failure.
type ExtractionError struct {
	Status    int    `json:"-"`
	Title     string `json:"title,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e *ExtractionError) Error() string {
	return e.Detail
}

func (e *ExtractionError) GetStatus() int {
	return e.Status
}

// NewExtractionError converts a service-layer failure into the response
// error body. Unclassified errors become an opaque 500.
func NewExtractionError(err error) *ExtractionError {
	var serr *service.ServiceError
	if errors.As(err, &serr) {
		return &ExtractionError{
			Status:    serr.Status,
			Title:     http.StatusText(serr.Status),
			Detail:    serr.Message,
			Retryable: serr.Retryable,
		}
	}

	return &ExtractionError{
		Status:    http.StatusInternalServerError,
		Title:     http.StatusText(http.StatusInternalServerError),
		Detail:    "Extraction failed",
		Retryable: true,
	}
}
