package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sparkpad/internal/document/model"
	"sparkpad/internal/document/repository"
	projectModel "sparkpad/internal/project/model"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/sanitize"
	"sparkpad/socket"
	"sparkpad/store"
)

// ProjectAccess checks a user's role in a project.
type ProjectAccess interface {
	Authorize(ctx context.Context, projectID, userID, need string) (projectModel.ProjectView, error)
}

type DocumentService struct {
	Repo     *repository.DocumentRepository
	Projects ProjectAccess
	Hub      socket.Publisher
	now      func() time.Time
}

func NewDocumentService(repo *repository.DocumentRepository, projects ProjectAccess, hub socket.Publisher) *DocumentService {
	return &DocumentService{Repo: repo, Projects: projects, Hub: hub, now: time.Now}
}

func (s *DocumentService) CreateDocument(ctx context.Context, projectID, userID string, req model.CreateDocRequest) (store.Document, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor); err != nil {
		return store.Document{}, err
	}
	title, err := cleanTitle(req.Title)
	if err != nil {
		return store.Document{}, err
	}
	if title == "" {
		title = model.DefaultTitle
	}

	now := s.now().UTC()
	doc := store.Document{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		Rows:      []store.Row{},
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return store.Document{}, err
	}
	s.publishUpdate(userID, doc)
	return doc, nil
}

// GetDocuments lists document summaries, most recently updated first.
func (s *DocumentService) GetDocuments(ctx context.Context, projectID, userID string) ([]model.DocumentMetadata, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer); err != nil {
		return nil, err
	}
	docs, err := s.Repo.List(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := make([]model.DocumentMetadata, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.DocumentMetadata{
			ID:        d.ID,
			Title:     d.Title,
			RowCount:  len(d.Rows),
			Snippet:   getSnippetFromRows(d.Rows),
			CreatedBy: d.CreatedBy,
			UpdatedAt: d.UpdatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, projectID, userID, docID string) (store.Document, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer); err != nil {
		return store.Document{}, err
	}
	return s.Repo.Get(ctx, projectID, docID)
}

func (s *DocumentService) UpdateTitle(ctx context.Context, projectID, userID, docID string, req model.UpdateDocRequest) (store.Document, error) {
	title, err := cleanTitle(req.Title)
	if err != nil {
		return store.Document{}, err
	}
	if title == "" {
		return store.Document{}, apperr.New(apperr.ErrInvalid, "title is required")
	}
	return s.modify(ctx, projectID, userID, docID, func(doc *store.Document) error {
		doc.Title = title
		return nil
	})
}

func (s *DocumentService) DeleteDocument(ctx context.Context, projectID, userID, docID string) error {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, projectID, docID); err != nil {
		return err
	}
	s.Hub.Publish(socket.NewMessage(socket.DocumentDeleteType, projectID, userID, map[string]string{"id": docID}))
	return nil
}

// InsertRow adds a row at req.Index clamped to [0, len], appending when no
// index is given.
func (s *DocumentService) InsertRow(ctx context.Context, projectID, userID, docID string, req model.InsertRowRequest) (store.Document, error) {
	content, err := cleanRow(req.Content)
	if err != nil {
		return store.Document{}, err
	}
	return s.modify(ctx, projectID, userID, docID, func(doc *store.Document) error {
		row := store.Row{ID: uuid.NewString(), Content: content, UpdatedBy: userID, UpdatedAt: s.now().UTC()}
		at := len(doc.Rows)
		if req.Index != nil {
			at = clamp(*req.Index, 0, len(doc.Rows))
		}
		doc.Rows = append(doc.Rows, store.Row{})
		copy(doc.Rows[at+1:], doc.Rows[at:])
		doc.Rows[at] = row
		return nil
	})
}

func (s *DocumentService) UpdateRow(ctx context.Context, projectID, userID, docID, rowID string, req model.UpdateRowRequest) (store.Document, error) {
	content, err := cleanRow(req.Content)
	if err != nil {
		return store.Document{}, err
	}
	return s.modify(ctx, projectID, userID, docID, func(doc *store.Document) error {
		i := rowIndex(doc.Rows, rowID)
		if i < 0 {
			return apperr.New(apperr.ErrNotFound, "Row not found")
		}
		doc.Rows[i].Content = content
		doc.Rows[i].UpdatedBy = userID
		doc.Rows[i].UpdatedAt = s.now().UTC()
		return nil
	})
}

func (s *DocumentService) DeleteRow(ctx context.Context, projectID, userID, docID, rowID string) (store.Document, error) {
	return s.modify(ctx, projectID, userID, docID, func(doc *store.Document) error {
		i := rowIndex(doc.Rows, rowID)
		if i < 0 {
			return apperr.New(apperr.ErrNotFound, "Row not found")
		}
		doc.Rows = append(doc.Rows[:i], doc.Rows[i+1:]...)
		return nil
	})
}

// MoveRow moves a row to req.Index clamped to the last position.
func (s *DocumentService) MoveRow(ctx context.Context, projectID, userID, docID, rowID string, req model.MoveRowRequest) (store.Document, error) {
	if req.Index == nil {
		return store.Document{}, apperr.New(apperr.ErrInvalid, "index is required")
	}
	return s.modify(ctx, projectID, userID, docID, func(doc *store.Document) error {
		i := rowIndex(doc.Rows, rowID)
		if i < 0 {
			return apperr.New(apperr.ErrNotFound, "Row not found")
		}
		row := doc.Rows[i]
		rest := append(doc.Rows[:i:i], doc.Rows[i+1:]...)
		at := clamp(*req.Index, 0, len(rest))
		doc.Rows = append(rest[:at:at], append([]store.Row{row}, rest[at:]...)...)
		return nil
	})
}

// modify checks write access, applies fn and broadcasts the new document.
func (s *DocumentService) modify(ctx context.Context, projectID, userID, docID string, fn func(*store.Document) error) (store.Document, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor); err != nil {
		return store.Document{}, err
	}
	doc, err := s.Repo.Modify(ctx, projectID, docID, func(doc *store.Document) error {
		if err := fn(doc); err != nil {
			return err
		}
		doc.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return store.Document{}, err
	}
	s.publishUpdate(userID, doc)
	return doc, nil
}

func (s *DocumentService) publishUpdate(userID string, doc store.Document) {
	s.Hub.Publish(socket.NewMessage(socket.DocumentUpdateType, doc.ProjectID, userID, doc))
}

func cleanTitle(raw string) (string, error) {
	title := sanitize.Plain(raw)
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return "", apperr.Newf(apperr.ErrInvalid, "title must be at most %d characters", model.MaxTitleLength)
	}
	return title, nil
}

func cleanRow(raw string) (string, error) {
	content := sanitize.Rich(raw)
	if utf8.RuneCountInString(content) > model.MaxRowLength {
		return "", apperr.Newf(apperr.ErrInvalid, "row content must be at most %d characters", model.MaxRowLength)
	}
	return content, nil
}

func rowIndex(rows []store.Row, id string) int {
	for i := range rows {
		if rows[i].ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// getSnippetFromRows returns the first characters of the document's text
// with markup removed.
func getSnippetFromRows(rows []store.Row) string {
	var sb strings.Builder
	for _, row := range rows {
		text := sanitize.Plain(row.Content)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
		if utf8.RuneCountInString(sb.String()) > model.SnippetLength {
			break
		}
	}
	res := strings.Join(strings.Fields(sb.String()), " ")
	if r := []rune(res); len(r) > model.SnippetLength {
		return string(r[:model.SnippetLength]) + "..."
	}
	return res
}
