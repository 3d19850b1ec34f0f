// Package ai wraps the generative model used for chat replies and research
// summaries.
package ai

import (
	"context"
)

// Provider defines the interface for LLM providers.
type Provider interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}

// CompletionOptions configures LLM completion requests
type CompletionOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}
