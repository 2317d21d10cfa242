package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuistot-app/backend/config"
)

// RequestError signals that the inference collaborator rejected or failed a
// call (transport failure or non-200 status).
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference request failed: %v", e.Err)
	}
	return fmt.Sprintf("inference request failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Message is a chat message sent to the inference API
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat-completion request payload
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// Client calls a hosted chat-completion endpoint. The contract is prompt
// text in, text out: a single user-role message, no streaming, no
// provider-side schema enforcement.
type Client struct {
	apiURL    string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewClient creates a Client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiURL:    cfg.InferenceAPIURL,
		apiKey:    cfg.InferenceAPIKey,
		model:     cfg.InferenceModel,
		maxTokens: cfg.MaxTokens,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Complete sends the prompt as a single user message and returns the text
// of the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := Request{
		Model:     c.model,
		Messages:  []Message{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", &RequestError{StatusCode: resp.StatusCode, Body: "no choices in response"}
	}

	return result.Choices[0].Message.Content, nil
}
