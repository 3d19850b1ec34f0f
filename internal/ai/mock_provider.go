package ai

import (
	"context"
	"sync"
)

// MockProvider answers from a fixed response or a function, and records
// every prompt it receives.
type MockProvider struct {
	Response    string
	Respond     func(prompt string) (string, error)
	Unavailable bool

	mu      sync.Mutex
	prompts []string
}

func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) IsAvailable() bool { return !m.Unavailable }

func (m *MockProvider) Complete(ctx context.Context, prompt string, _ CompletionOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Respond != nil {
		return m.Respond(prompt)
	}
	return m.Response, nil
}

// Prompts returns the prompts seen so far.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
