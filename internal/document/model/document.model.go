package model

import "time"

const (
	DefaultTitle   = "Untitled Document"
	MaxTitleLength = 200
	MaxRowLength   = 20000
	SnippetLength  = 100
)

type DocumentMetadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	RowCount  int       `json:"row_count"`
	Snippet   string    `json:"snippet"`
	CreatedBy string    `json:"created_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateDocRequest struct {
	Title string `json:"title"`
}

type UpdateDocRequest struct {
	Title string `json:"title" validate:"required"`
}

// InsertRowRequest adds a row at Index, or at the end when Index is nil.
type InsertRowRequest struct {
	Content string `json:"content"`
	Index   *int   `json:"index"`
}

type UpdateRowRequest struct {
	Content string `json:"content"`
}

type MoveRowRequest struct {
	Index *int `json:"index" validate:"required"`
}
