package inference

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
)

// defaultHTTPTimeout bounds a single request when no deadline is set on ctx.
const defaultHTTPTimeout = 120 * time.Second

// ErrEmptyResponse is returned when the model answers with no content.
var ErrEmptyResponse = errors.New("inference: empty response from model")

// OpenAIClient calls an OpenAI-compatible Chat Completions endpoint.
// Works with OpenAI, Groq, vLLM, Ollama and other compatible servers.
type OpenAIClient struct {
	http        *http.Client
	apiKey      string
	model       string
	endpoint    string
	temperature float64
}

// NewOpenAIClient creates a client for baseURL (e.g. https://api.openai.com/v1).
func NewOpenAIClient(baseURL, apiKey, model string, temperature float64) (*OpenAIClient, error) {
	if model == "" {
		return nil, errors.New("inference: model is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		http:        &http.Client{Timeout: defaultHTTPTimeout},
		apiKey:      apiKey,
		model:       model,
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		temperature: temperature,
	}, nil
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CallModel sends the system and user prompt as two messages and returns the first choice.
func (c *OpenAIClient) CallModel(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("openai: unexpected status %s: %s", resp.Status, string(raw))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return "", err
		case resp.StatusCode >= 400:
			// Bad request, auth and not-found failures repeat identically.
			return "", NewPermanentError(err)
		}
		return "", err
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("openai: failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}
