package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"leadinbox/internal/config"
)

// Client talks to an OpenAI-compatible chat-completions endpoint and decodes
// a strict-JSON answer. Both the classifier and the drafter share it.
//
// Every call carries a bounded timeout. Callers must treat any returned error
// as a signal to fall back to their deterministic tier; the pipeline never
// fails on model trouble.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

var ErrDisabled = errors.New("llm: no api key configured")

func NewClient(cfg config.ModelConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether a model endpoint is configured at all.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

type chatRequest struct {
	Model          string        `json:"model"`
	ResponseFormat format        `json:"response_format"`
	Messages       []chatMessage `json:"messages"`
}

type format struct {
	Type string `json:"type"`
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

// CompleteJSON sends a system+user prompt pair and unmarshals the JSON answer
// into out. Any transport error, non-2xx status, malformed envelope, or
// malformed answer JSON is returned as an error.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:          c.model,
		ResponseFormat: format{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llm: call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return errors.New("llm: empty choices")
	}
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("llm: decode answer: %w", err)
	}
	return nil
}
