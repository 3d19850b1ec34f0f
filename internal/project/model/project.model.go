package model

import (
	"time"

	"sparkpad/store"
)

const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"

	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

var roleRank = map[string]int{RoleViewer: 1, RoleEditor: 2, RoleOwner: 3}

// RoleAtLeast reports whether role grants at least the rights of need.
func RoleAtLeast(role, need string) bool {
	return roleRank[role] >= roleRank[need] && roleRank[role] > 0
}

type CreateProjectRequest struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	Status      string   `json:"status" validate:"omitempty,oneof=active on_hold completed archived"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=40"`
}

type UpdateProjectRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=120"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Status      *string   `json:"status" validate:"omitempty,oneof=active on_hold completed archived"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=editor viewer"`
}

// ListQuery filters and orders the caller's projects.
type ListQuery struct {
	Q      string
	Status string
	Tag    string
	Sort   string // name | created | updated
	Order  string // asc | desc
}

// ProjectView is a project plus the caller's role in it.
type ProjectView struct {
	store.Project
	MyRole string `json:"my_role"`
}

type MemberInfo struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Avatar   string    `json:"avatar,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// AuthorCount is a per-user message count labelled with the author's name.
type AuthorCount struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

type DashboardStats struct {
	TotalProjects   int            `json:"total_projects"`
	ByStatus        map[string]int `json:"by_status"`
	OwnedProjects   int            `json:"owned_projects"`
	Collaborators   int            `json:"collaborators"`
	UpdatedLastWeek int            `json:"updated_last_week"`
	TopTags         []Count        `json:"top_tags"`
}

type ProjectStats struct {
	ProjectID        string        `json:"project_id"`
	Members          int           `json:"members"`
	Messages         int           `json:"messages"`
	AIMessages       int           `json:"ai_messages"`
	MessagesByAuthor []AuthorCount `json:"messages_by_author"`
	Documents        int           `json:"documents"`
	Rows             int           `json:"rows"`
	ResearchItems    int           `json:"research_items"`
	ResearchComments int           `json:"research_comments"`
	ResearchTags     []Count       `json:"research_tags"`
	LastActivity     time.Time     `json:"last_activity"`
}
