// Package client is the Go SDK for the PageLens metadata extraction API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pagelens/pagelens-api/internal/urlutil"
	"github.com/pagelens/pagelens-api/pkg/models"
)

const defaultHTTPTimeout = 60 * time.Second

// MaxURLLength mirrors the server's limit on extraction URLs.
const MaxURLLength = urlutil.MaxURLLength

// IsValidURL reports whether raw is a URL the extraction endpoint accepts:
// absolute http or https, at most MaxURLLength characters. Callers can check
// input before spending a request on a guaranteed 400.
func IsValidURL(raw string) bool {
	return len(raw) <= MaxURLLength && urlutil.IsValidURL(raw)
}

// Config holds client configuration.
type Config struct {
	// BaseURL of the PageLens API, e.g. "https://api.pagelens.dev".
	BaseURL string
	// Token, when set, is sent as a bearer credential. The server keys its
	// rate limit on it.
	Token string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// RequestCacheTTL overrides how long deduplicated results are reused.
	RequestCacheTTL time.Duration
}

// Client calls the PageLens extraction API. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *RequestCache
}

// New creates a new API client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		cache:      NewRequestCache(cfg.RequestCacheTTL),
	}
}

// Close releases the client's background resources.
func (c *Client) Close() {
	c.cache.Stop()
}

// Extract resolves url to extracted metadata, de-duplicating concurrent and
// recent requests for the same URL. Failed attempts are evicted so the next
// call retries instead of replaying the error.
func (c *Client) Extract(ctx context.Context, url string, forceRefresh bool) (*models.ExtractedContent, error) {
	if forceRefresh {
		c.cache.Delete(url)
	}

	content, err := c.cache.Do(ctx, url, func() (*models.ExtractedContent, error) {
		return c.ExtractMetadata(ctx, url, forceRefresh)
	})
	if err != nil {
		c.cache.Delete(url)
		return nil, err
	}
	return content, nil
}

type extractRequest struct {
	URL          string `json:"url"`
	ForceRefresh bool   `json:"forceRefresh,omitempty"`
}

type extractResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorResponse struct {
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable"`
}

// ExtractMetadata performs a single extraction call without de-duplication.
// Most callers want Extract instead.
func (c *Client) ExtractMetadata(ctx context.Context, url string, forceRefresh bool) (*models.ExtractedContent, error) {
	payload, err := json.Marshal(extractRequest{URL: url, ForceRefresh: forceRefresh})
	if err != nil {
		return nil, &Error{Type: ErrUnknown, Message: err.Error(), Retryable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/library/extract-metadata", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Type: ErrUnknown, Message: err.Error(), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody errorResponse
		_ = json.Unmarshal(body, &errBody)
		return nil, classifyStatus(resp.StatusCode, errBody.Detail)
	}

	var envelope extractResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{Type: ErrUnknown, Message: fmt.Sprintf("malformed response: %v", err), Retryable: true}
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, &Error{Type: ErrUnknown, Message: "malformed response envelope", Retryable: true}
	}

	content, err := decodeContent(envelope.Data)
	if err != nil {
		return nil, &Error{Type: ErrUnknown, Message: fmt.Sprintf("malformed response data: %v", err), Retryable: true}
	}
	return content, nil
}

// decodeContent unmarshals extracted content, tolerating the legacy
// "suggestedCategor" field name some older deployments emit.
func decodeContent(data []byte) (*models.ExtractedContent, error) {
	var content models.ExtractedContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, err
	}

	if content.SuggestedCategory == "" {
		var legacy struct {
			SuggestedCategor models.Category `json:"suggestedCategor"`
		}
		if err := json.Unmarshal(data, &legacy); err == nil {
			content.SuggestedCategory = legacy.SuggestedCategor
		}
	}

	return &content, nil
}
