package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/config"
	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

// Fallback sentences returned by Complete. These are contractual: the
// web layer returns them verbatim and the test suite asserts on them.
const (
	// MsgNotConfigured is returned when no API key is set.
	MsgNotConfigured = "LLM API key is not configured. Please set GEMINI_API_KEY in your .env file."

	// MsgConnectivity is returned on transport failures and timeouts.
	MsgConnectivity = "There was an issue connecting to the AI. Please try again later."

	// MsgCheckConfig is returned on non-2xx API responses.
	MsgCheckConfig = "There was an issue connecting to the AI. Please check the API key and model name."

	// MsgUnusualResponse is returned when the response lacks the
	// expected answer field, typically due to a content filter.
	MsgUnusualResponse = "I apologize, but I received an unusual response from the AI. This might be due to a content filter. Please try rephrasing."

	// MsgInternal is returned on any unexpected failure.
	MsgInternal = "An internal error occurred with the AI. Please try again later."
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client calls the Generative Language REST API.
// Safe for concurrent use by multiple goroutines.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	embedModel string
	timeout    time.Duration

	httpc   *http.Client
	limiter *rate.Limiter
	retry   RetryConfig
	logger  log.Logger
}

// NewClient creates a Client from the application configuration.
// A missing API key does not fail construction; calls return
// ErrNotConfigured until one is provided.
func NewClient(cfg *config.Config, logger log.Logger) *Client {
	return &Client{
		apiKey:     cfg.GeminiAPIKey,
		baseURL:    strings.TrimSuffix(cfg.GeminiBaseURL, "/"),
		model:      cfg.ModelName,
		embedModel: cfg.EmbedderModel,
		timeout:    cfg.LLMTimeout(),
		httpc:      &http.Client{},
		// 10 requests/sec sustained, burst of 30
		limiter: rate.NewLimiter(10, 30),
		retry:   DefaultRetryConfig(),
		logger:  logger,
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Wire format for generateContent and embedContent.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends a single-turn completion request and returns the
// trimmed answer text. All conversational memory must already be
// flattened into prompt; the API is called without session state.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	raw, err := c.postWithRetry(ctx, c.endpoint(c.model, "generateContent"), payload)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding body: %v", ErrMalformedResponse, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidate parts", ErrMalformedResponse)
	}

	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty answer text", ErrMalformedResponse)
	}
	return text, nil
}

// Embed converts text to an embedding vector using the configured
// embedding model. Deterministic for a fixed model and input.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload := embedRequest{
		Model:   "models/" + c.embedModel,
		Content: content{Parts: []part{{Text: text}}},
	}

	raw, err := c.postWithRetry(ctx, c.endpoint(c.embedModel, "embedContent"), payload)
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", ErrMalformedResponse, err)
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrMalformedResponse)
	}
	return resp.Embedding.Values, nil
}

// Complete sends prompt through Generate and converts every failure
// into a fixed user-safe sentence, logging the root cause. It never
// returns an error; the returned string is always non-empty.
func (c *Client) Complete(ctx context.Context, prompt string) string {
	text, err := c.Generate(ctx, prompt)
	if err == nil {
		return text
	}

	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrNotConfigured):
		c.logger.Warn("completion skipped: api key not configured")
		return MsgNotConfigured
	case errors.As(err, &statusErr):
		c.logger.Error("gemini returned an error status",
			"status", statusErr.StatusCode,
			"message", statusErr.Message)
		return MsgCheckConfig
	case errors.Is(err, ErrMalformedResponse):
		c.logger.Error("gemini response missing answer field", "error", err)
		return MsgUnusualResponse
	case errors.Is(err, ErrTransport):
		c.logger.Error("gemini request failed in transport", "error", err)
		return MsgConnectivity
	default:
		c.logger.Error("unexpected gemini failure", "error", err)
		return MsgInternal
	}
}

// endpoint builds the request URL for a model method. The API key is
// deliberately NOT part of the URL: transport failures embed the full
// URL in their error text, which ends up in logs. The key travels in
// the x-goog-api-key header instead.
func (c *Client) endpoint(model, method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s", c.baseURL, model, method)
}

// post performs one HTTP POST attempt with the bounded request timeout
// and classifies the failure.
func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    extractAPIError(body),
		}
	}

	return body, nil
}

// extractAPIError pulls the structured error message out of an error
// body for logging. Returns "" when the body is not the expected shape.
func extractAPIError(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	return apiErr.Error.Message
}
