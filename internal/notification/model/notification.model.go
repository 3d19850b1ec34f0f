package model

import "time"

const (
	TypeProjectInvite   = "project_invite"
	TypeProjectRemoved  = "project_removed"
	TypeProjectDeleted  = "project_deleted"
	TypeChatMention     = "chat_mention"
	TypeResearchComment = "research_comment"
)

// NewNotification is what other services hand to Notify.
type NewNotification struct {
	Type      string
	Title     string
	Body      string
	ProjectID string
	Link      string
}

type ListFilter struct {
	UnreadOnly bool
	Since      time.Time
}
