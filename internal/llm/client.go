// Package llm talks to OpenAI-compatible chat completion backends (Ollama,
// OpenAI). Requests go to {base_url}/chat/completions; streaming uses the
// SSE "data:" line protocol with a [DONE] terminator.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
)

// Message is one chat turn sent to the completion backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is an opaque text completion capability with blocking and streaming
// modes. Implementations own their timeout policy.
type Client interface {
	// Invoke sends messages and returns the full response text.
	Invoke(ctx context.Context, messages []Message) (string, error)
	// Stream sends messages and calls onDelta for each text increment.
	// Returning an error from onDelta stops the stream.
	Stream(ctx context.Context, messages []Message, onDelta func(delta string) error) error
}

// HTTPClient implements Client against an OpenAI-compatible HTTP API.
type HTTPClient struct {
	model       string
	baseURL     string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      *zap.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithHTTPClient overrides the underlying HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient builds a client from the LLM config. The API key comes from
// OPENAI_API_KEY when the provider is openai; Ollama accepts any token.
func NewHTTPClient(cfg config.LLMConfig, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      apiKey(cfg.Provider),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func apiKey(provider string) string {
	if provider == "openai" {
		return os.Getenv("OPENAI_API_KEY")
	}
	return "ollama"
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Invoke sends a blocking chat completion request.
func (c *HTTPClient) Invoke(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request and feeds each delta to
// onDelta. Malformed SSE payload lines are skipped.
func (c *HTTPClient) Stream(ctx context.Context, messages []Message, onDelta func(delta string) error) error {
	resp, err := c.send(ctx, messages, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimSpace(line[len("data: "):])
		if payload == "[DONE]" {
			return nil
		}
		var chunk completionResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Debug("skipping malformed stream chunk", zap.Error(err))
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read completion stream: %w", err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, messages []Message, stream bool) (*http.Response, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion backend unreachable: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		resp.Body.Close()
		return nil, fmt.Errorf("completion backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}

// TestConnection sends a minimal prompt to verify the backend is reachable.
func (c *HTTPClient) TestConnection(ctx context.Context) error {
	_, err := c.Invoke(ctx, []Message{{Role: "user", Content: "Say 'OK' if you can hear me."}})
	return err
}
