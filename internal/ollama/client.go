// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ollama implements the generation backend over the Ollama HTTP
// API. The client satisfies generate.Generator; timeouts come from the
// caller's context, not from the HTTP client.
// Implements: prd008-generation-backend (R1-R4);
//
//	docs/ARCHITECTURE § Generation Backend.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/answer-engine/internal/generate"
	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const defaultBaseURL = "http://127.0.0.1:11434"

// Client talks to one Ollama server. Safe for concurrent use.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

// New builds a Client from the generation config. Zero fields take
// defaults; APIKey is optional and sent as a bearer token when present.
func New(cfg types.GenerationConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "qwen2.5"
	}
	return &Client{
		baseURL:    baseURL,
		model:      model,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// CheckRunning verifies the server is reachable. Called once at startup
// so a dead backend fails fast instead of surfacing mid-pipeline.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama at %s: %w: %v", c.baseURL, generate.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama at %s: %w: status %s", c.baseURL, generate.ErrUnavailable, resp.Status)
	}
	return nil
}

// Generate runs one completion and returns the model's reply text.
// Transient 429/503 responses are retried with backoff; connection and
// deadline failures map to the generation port's sentinel errors.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("ollama: %w", generate.ErrTimeout)
		}
		return "", fmt.Errorf("ollama at %s: %w: %v", c.baseURL, generate.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("ollama: model %q not found: %w", c.model, generate.ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("ollama: %s: %w", apiErr.Error, generate.ErrUnavailable)
		}
		return "", fmt.Errorf("ollama: generate failed: %s: %w", resp.Status, generate.ErrUnavailable)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading generate response: %w", err)
	}

	var result generateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama: %s", result.Error)
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", fmt.Errorf("ollama: empty completion for model %q", c.model)
	}

	return result.Response, nil
}
