package model

const (
	MaxTitleLength   = 200
	MaxContentLength = 50000
	MaxCommentLength = 2000
)

type CreateItemRequest struct {
	Title     string   `json:"title" validate:"required"`
	Content   string   `json:"content"`
	SourceURL string   `json:"source_url" validate:"omitempty,url"`
	Tags      []string `json:"tags"`
}

// UpdateItemRequest changes only the fields that are present.
type UpdateItemRequest struct {
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	SourceURL *string   `json:"source_url" validate:"omitempty,url"`
	Tags      *[]string `json:"tags"`
}

type AddTagRequest struct {
	Tag string `json:"tag" validate:"required"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required"`
}

type ListQuery struct {
	Tag string
	Q   string
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
