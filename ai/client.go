package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Client is a pluggable text-generation capability. Implementations must be
// safe for concurrent use.
type Client interface {
	// GetCompletion sends a system and user prompt and returns the assistant text.
	GetCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// IsEnabled reports whether the client is configured and usable.
	IsEnabled() bool
	// Name identifies the underlying provider for logs.
	Name() string
}

// Disabled is a Client that is never available. Analysis falls back to the
// deterministic mapper when it is in place.
type Disabled struct{}

func (Disabled) GetCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", fmt.Errorf("ai client is not configured")
}

func (Disabled) IsEnabled() bool { return false }
func (Disabled) Name() string    { return "disabled" }

// OpenAICompatClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAICompatClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatClient builds a client for the given endpoint and model.
func NewOpenAICompatClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAICompatClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &OpenAICompatClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// NewClientFromEnv wires a client from AI_API_URL / AI_API_KEY / AI_MODEL /
// AI_TIMEOUT_SECONDS. A missing key yields a Disabled client.
func NewClientFromEnv() Client {
	apiKey := os.Getenv("AI_API_KEY")
	if apiKey == "" {
		return Disabled{}
	}

	baseURL := os.Getenv("AI_API_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := 30 * time.Second
	if s := os.Getenv("AI_TIMEOUT_SECONDS"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	return NewOpenAICompatClient(baseURL, apiKey, model, timeout)
}

func (c *OpenAICompatClient) IsEnabled() bool { return c.apiKey != "" }
func (c *OpenAICompatClient) Name() string    { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAICompatClient) GetCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("ai response read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai request returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("ai response is not valid JSON: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("ai provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai response contains no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
