// Package ai wraps the OpenAI chat-completions endpoint behind a small
// text-generation client. Callers hand it a system and a user message and
// get the model's reply back as plain text.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ServiceError is returned when the upstream AI service rejects or fails a
// request. Status carries the upstream HTTP status when one was received.
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ai service error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("ai service error: %s", e.Detail)
}

const (
	defaultTimeout = 60 * time.Second
	// temperature keeps extraction output stable across retries.
	temperature = 0.3
)

type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(apiURL, apiKey, model string) *Client {
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends a system and user message pair to the model and returns the
// reply text. maxTokens bounds the length of the completion.
func (c *Client) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", &ServiceError{
			Detail: "The AI service is not properly configured. Please check the OPENAI_API_KEY in environment variables.",
		}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{Status: resp.StatusCode, Detail: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", upstreamError(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ServiceError{Status: resp.StatusCode, Detail: "unreadable response from AI service"}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &ServiceError{Status: resp.StatusCode, Detail: "Empty or invalid AI response"}
	}

	return parsed.Choices[0].Message.Content, nil
}

func upstreamError(status int, raw []byte) *ServiceError {
	if status == http.StatusTooManyRequests {
		return &ServiceError{
			Status: status,
			Detail: "Your OpenAI API key has hit the rate limit or does not have sufficient credits. Please check your OpenAI account billing or wait a moment before trying again.",
		}
	}

	detail := "Failed to get response from AI service. Please try again later."
	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		detail = parsed.Error.Message
	}
	return &ServiceError{Status: status, Detail: detail}
}
