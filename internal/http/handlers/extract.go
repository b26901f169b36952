package handlers

import (
	"context"

	"github.com/pagelens/pagelens-api/internal/service"
	"github.com/pagelens/pagelens-api/pkg/models"
)

// ExtractionHandler handles metadata extraction endpoints.
type ExtractionHandler struct {
	extractionSvc *service.ExtractionService
}

// NewExtractionHandler creates a new extraction handler.
func NewExtractionHandler(extractionSvc *service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extractionSvc: extractionSvc}
}

// ExtractMetadataInput represents a metadata extraction request. URL length
// and format are checked by the extraction service so malformed input gets a
// 400, not a schema-validation 422.
type ExtractMetadataInput struct {
	Body struct {
		URL          string `json:"url" doc:"URL to extract metadata for (http or https, at most 2048 chars)"`
		ForceRefresh bool   `json:"forceRefresh,omitempty" doc:"Bypass the server cache and re-run extraction"`
	}
}

// ExtractMetadataOutput represents a successful metadata extraction response.
type ExtractMetadataOutput struct {
	Body struct {
		Success bool                     `json:"success" doc:"Always true on success"`
		Data    *models.ExtractedContent `json:"data" doc:"Extracted metadata"`
	}
}

// ExtractMetadata resolves a URL to structured metadata, serving from the
// server cache when possible.
func (h *ExtractionHandler) ExtractMetadata(ctx context.Context, input *ExtractMetadataInput) (*ExtractMetadataOutput, error) {
	content, err := h.extractionSvc.Extract(ctx, service.ExtractInput{
		URL:          input.Body.URL,
		ForceRefresh: input.Body.ForceRefresh,
	})
	if err != nil {
		return nil, NewExtractionError(err)
	}

	out := &ExtractMetadataOutput{}
	out.Body.Success = true
	out.Body.Data = content
	return out, nil
}
