package model

import "time"

const (
	AIAuthorID   = "ai"
	AIAuthorName = "Sparkpad AI"

	MaxContentLength = 4000
	MaxHistory       = 1000
	DefaultLimit     = 100
	MaxLimit         = 500
	// AIContextMessages is how many recent messages an AI reply sees.
	AIContextMessages = 20
)

type PostMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type AskAIRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type ListQuery struct {
	Since time.Time
	Limit int
}
