// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// ollamaClient talks to a local Ollama server. No API key is involved.
type ollamaClient struct {
	client    *http.Client
	baseURL   string
	model     string
	maxTokens int
}

func newOllama(cfg types.AIConfig) *ollamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ollamaClient{
		client:    &http.Client{Timeout: 300 * time.Second},
		baseURL:   baseURL,
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (c *ollamaClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		System:  system,
		Stream:  false,
		Options: &ollamaOptions{NumPredict: c.maxTokens},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp ollamaResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", genResp.Error)
	}
	return genResp.Response, nil
}

func (c *ollamaClient) ModelName() string {
	return c.model
}
