// Package llm generates release post text and genre labels through an
// Ollama-compatible generation endpoint, with chunking, bounded retries and
// markup-contract enforcement layered on top of the raw client.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	rthttp "releasetracker/http"
)

// ErrIncomplete indicates the endpoint returned before finishing generation.
var ErrIncomplete = errors.New("llm: incomplete generation")

// GenerateError wraps a failed generation call with the model it targeted.
type GenerateError struct {
	Model string
	Err   error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("llm: generate with %s: %v", e.Model, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Generator produces text for a prompt. The pipeline depends on this
// interface so tests can substitute a stub.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to an Ollama-compatible /api/generate endpoint over the
// shared resilient HTTP client.
type Client struct {
	endpoint string
	model    string
	http     *rthttp.Client

	// Temperature passed through to the model. Zero means the server default.
	Temperature float64
}

// NewClient creates a generation client for the given base endpoint
// (e.g. "http://localhost:11434") and model name.
func NewClient(endpoint, model string, httpClient *rthttp.Client) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		http:     httpClient,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the prompt to the endpoint and returns the trimmed
// completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}
	if c.Temperature != 0 {
		reqBody.Options = map[string]any{"temperature": c.Temperature}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	resp, err := c.http.PostJSON(ctx, c.endpoint+"/api/generate", payload)
	if err != nil {
		return "", &GenerateError{Model: c.model, Err: err}
	}

	var genResp generateResponse
	if err := json.Unmarshal(resp.Body, &genResp); err != nil {
		return "", &GenerateError{Model: c.model, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !genResp.Done {
		return "", &GenerateError{Model: c.model, Err: ErrIncomplete}
	}

	return strings.TrimSpace(genResp.Response), nil
}
