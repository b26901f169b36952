package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pagelens/pagelens-api/internal/schema"
)

const (
	// DefaultBaseURL is the OpenAI API base; any OpenAI-compatible endpoint works.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTemperature favors determinism over creativity.
	DefaultTemperature = 0.3

	// DefaultMaxTokens caps the structured output size.
	DefaultMaxTokens = 1000

	// DefaultTimeout is the hard per-request deadline.
	DefaultTimeout = 30 * time.Second

	// toolName is the function the model is forced to call.
	toolName = "extract_content"
)

// Config configures the LLM client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string        // Defaults to DefaultBaseURL
	Temperature *float64      // Defaults to DefaultTemperature; an explicit 0 is honored
	MaxTokens   int           // Defaults to DefaultMaxTokens
	Timeout     time.Duration // Defaults to DefaultTimeout
}

// Client calls an OpenAI-compatible chat completions API with a forced
// function-calling contract so the model must return structured JSON.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new LLM client. Zero-valued config fields get defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Temperature == nil {
		t := float64(DefaultTemperature)
		cfg.Temperature = &t
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Configured reports whether a provider credential is available.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// extractToolParameters is the JSON schema for the forced function call.
// Title is the only required property; the enums mirror the validator's.
func extractToolParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "The title of the page or content",
			},
			"author": map[string]any{
				"type":        "string",
				"description": "The author or creator, if identifiable",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "A concise summary of the content, at most 200 characters",
			},
			"imageUrl": map[string]any{
				"type":        "string",
				"description": "URL of a representative image",
			},
			"suggestedCategory": map[string]any{
				"type": "string",
				"enum": []string{"article", "book", "video", "tool", "other"},
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"publicationDate": map[string]any{
				"type":        "string",
				"description": "Publication date in YYYY-MM-DD format, if stated",
			},
			"contentType": map[string]any{
				"type": "string",
				"enum": []string{"article", "video", "book", "paper", "other"},
			},
		},
		"required": []string{"title"},
	}
}

// ExtractWebContent asks the model to extract metadata for url using the
// caller-supplied prompt text, forces a structured function-call response,
// and validates it against the extraction contract. Returns typed fields or
// a classified error (*Error or *schema.ValidationError).
func (c *Client) ExtractWebContent(ctx context.Context, url, promptText string) (*schema.Fields, error) {
	if !c.Configured() {
		return nil, &Error{Err: ErrNotConfigured, Category: "not_configured", Message: "OpenAI API key not configured"}
	}

	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a metadata extractor. Given a URL, infer the page's metadata as accurately as possible. Never invent facts; omit fields you cannot determine.",
			},
			{
				"role":    "user",
				"content": promptText + "\n\nURL: " + url,
			},
		},
		"temperature": *c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"tools": []map[string]any{
			{
				"type": "function",
				"function": map[string]any{
					"name":        toolName,
					"description": "Record the extracted metadata for the page",
					"parameters":  extractToolParameters(),
				},
			},
		},
		"tool_choice": map[string]any{
			"type":     "function",
			"function": map[string]string{"name": toolName},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug("making LLM API request",
		"model", c.cfg.Model,
		"url", url,
		"temperature", *c.cfg.Temperature,
		"max_tokens", c.cfg.MaxTokens,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("LLM API request failed", "model", c.cfg.Model, "error", err)
		return nil, ClassifyTransport(err, c.cfg.Model)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("LLM API error",
			"model", c.cfg.Model,
			"status_code", resp.StatusCode,
			"response", string(body),
		)
		return nil, ClassifyStatus(resp.StatusCode, string(body), c.cfg.Model)
	}

	raw, err := c.parseToolCall(body)
	if err != nil {
		return nil, err
	}

	fields, err := schema.Validate(raw)
	if err != nil {
		c.logger.Warn("LLM output failed validation", "model", c.cfg.Model, "error", err)
		return nil, err
	}

	return fields, nil
}

// parseToolCall extracts the forced function call's arguments from an
// OpenAI-format chat completion response.
func (c *Client) parseToolCall(body []byte) (map[string]any, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Err: ErrInvalidResponse, Category: "bad_payload", Message: "invalid response format", Raw: string(body)}
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, &Error{Err: ErrNoToolCall, Category: "no_tool_call", Message: "no function call in response", Raw: string(body)}
	}

	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	var raw map[string]any
	if err := json.Unmarshal([]byte(args), &raw); err != nil {
		return nil, &Error{Err: ErrInvalidResponse, Category: "bad_arguments", Message: "invalid response format", Raw: args}
	}
	return raw, nil
}
