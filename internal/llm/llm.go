// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides text-generation clients for the supported AI
// providers: Anthropic, OpenAI, and Ollama.
package llm

import (
	"context"
	"fmt"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Client generates text from a prompt. Implementations are safe for
// concurrent use.
type Client interface {
	// Generate runs one completion. The system prompt may be empty.
	Generate(ctx context.Context, system, prompt string) (string, error)

	// ModelName returns the model identifier requests are sent with.
	ModelName() string
}

// defaultMaxTokens bounds responses when the configuration does not.
const defaultMaxTokens = 4096

// New returns the client for the configured provider. A missing API key for
// a hosted provider is a configuration error, not something a pipeline run
// can recover from.
func New(cfg types.AIConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropic(cfg)
	case "openai":
		return newOpenAI(cfg)
	case "ollama":
		return newOllama(cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q (want anthropic, openai, or ollama)", cfg.Provider)
	}
}
