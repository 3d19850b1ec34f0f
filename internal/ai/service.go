package ai

import (
	"context"
	"fmt"
	"strings"

	"sparkpad/pkg/apperr"
)

const maxPromptContent = 12000

// Turn is one chat message given to the model as context.
type Turn struct {
	Author  string
	Content string
	IsAI    bool
}

// Service provides the Sparkpad AI features on top of a Provider.
type Service struct {
	provider Provider
}

// NewService creates a new service. A nil provider disables AI features.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// IsAvailable returns true if the LLM service is available
func (s *Service) IsAvailable() bool {
	return s != nil && s.provider != nil && s.provider.IsAvailable()
}

// ChatReply answers prompt in the context of the recent project chat.
func (s *Service) ChatReply(ctx context.Context, projectName string, history []Turn, prompt string) (string, error) {
	if !s.IsAvailable() {
		return "", apperr.New(apperr.ErrUnavailable, "AI assistant is not configured")
	}
	response, err := s.provider.Complete(ctx, buildChatPrompt(projectName, history, prompt), CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   800,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get LLM response: %w", err)
	}
	return clean(response)
}

// Summarize condenses a research note.
func (s *Service) Summarize(ctx context.Context, title, content string) (string, error) {
	if !s.IsAvailable() {
		return "", apperr.New(apperr.ErrUnavailable, "AI assistant is not configured")
	}
	response, err := s.provider.Complete(ctx, buildSummaryPrompt(title, content), CompletionOptions{
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get LLM summary: %w", err)
	}
	return clean(response)
}

func buildChatPrompt(projectName string, history []Turn, prompt string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are Sparkpad AI, an assistant inside the project %q. ", projectName)
	sb.WriteString("Answer the team's latest request helpfully and concisely. Use plain text.\n\n")
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, t := range history {
			author := t.Author
			if t.IsAI {
				author = "Sparkpad AI"
			}
			fmt.Fprintf(&sb, "%s: %s\n", author, truncate(t.Content, 1000))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Request:\n%s\n", truncate(prompt, maxPromptContent))
	return sb.String()
}

func buildSummaryPrompt(title, content string) string {
	return fmt.Sprintf(`Summarize the following research note in 3-5 sentences. Keep key facts, figures and conclusions. Use plain text without headings.

Title: %s

Note:
%s
`, title, truncate(content, maxPromptContent))
}

func clean(response string) (string, error) {
	out := strings.TrimSpace(response)
	out = strings.TrimPrefix(out, "Sparkpad AI:")
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("LLM returned an empty response")
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
