// Package completion talks to an OpenAI-compatible chat-completions endpoint.
package completion

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

	"resumeghana/internal/metrics"
)

const (
	DefaultURL       = "https://router.huggingface.co/v1/chat/completions"
	DefaultModel     = "Qwen/Qwen2.5-Coder-32B-Instruct"
	DefaultTimeout   = 90 * time.Second
	DefaultMaxTokens = 2048

	maxResponseBytes = 4 << 20
)

// Config holds everything the client needs; it is passed explicitly at construction.
type Config struct {
	APIToken  string
	Model     string
	URL       string
	Timeout   time.Duration
	MaxTokens int
	// RequestsPerMinute throttles outbound calls across all callers. Zero disables it.
	RequestsPerMinute int
	HTTPClient        *http.Client
}

// Result is the generated text and the token count reported by the upstream.
type Result struct {
	Text   string
	Tokens int
}

// Client is safe for concurrent use.
type Client struct {
	token      string
	model      string
	url        string
	timeout    time.Duration
	maxTokens  int
	httpClient *http.Client
	limiter    *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// New validates cfg and returns a ready client. A missing token yields *ConfigError.
func New(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, &ConfigError{Field: "HF_API_TOKEN"}
	}

	c := &Client{
		token:      token,
		model:      cfg.Model,
		url:        cfg.URL,
		timeout:    cfg.Timeout,
		maxTokens:  cfg.MaxTokens,
		httpClient: cfg.HTTPClient,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	return c, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends one [system, user] exchange and returns the trimmed reply.
// Every failure is an *APIError; a timeout is KindTransport.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float64) (Result, error) {
	start := time.Now()
	res, err := c.complete(ctx, system, user, temperature)

	outcome := "ok"
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		outcome = apiErr.Kind.String()
	}
	metrics.ObserveCompletion(outcome, time.Since(start), res.Tokens)

	return res, err
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, &APIError{Kind: KindTransport, Message: "wait for outbound slot: " + err.Error(), Err: err}
		}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return Result{}, &APIError{Kind: KindTransport, Message: "encode request: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, &APIError{Kind: KindTransport, Message: "build request: " + err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &APIError{Kind: KindTransport, Message: "request failed: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, statusError(resp.StatusCode, raw)
	}

	var envelope chatResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Result{}, &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: "malformed response envelope", Err: err}
	}
	if len(envelope.Choices) == 0 {
		return Result{}, &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: "response envelope has no choices"}
	}

	return Result{
		Text:   strings.TrimSpace(envelope.Choices[0].Message.Content),
		Tokens: envelope.Usage.TotalTokens,
	}, nil
}

func statusError(status int, body []byte) *APIError {
	switch status {
	case http.StatusUnauthorized:
		return &APIError{Kind: KindAuth, Status: status, Message: "invalid API token"}
	case http.StatusForbidden:
		return &APIError{Kind: KindAuth, Status: status, Message: "API token not permitted for this model"}
	case http.StatusTooManyRequests:
		return &APIError{Kind: KindRateLimit, Status: status, Message: "rate limit exceeded, try again later"}
	}
	return &APIError{Kind: KindTransport, Status: status, Message: upstreamMessage(status, body)}
}

// upstreamMessage prefers error.message, then message, then the raw body.
func upstreamMessage(status int, body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return fmt.Sprintf("upstream returned status %d", status)
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return raw
	}
	if len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if err := json.Unmarshal(envelope.Error, &flat); err == nil && flat != "" {
			return flat
		}
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return raw
}
