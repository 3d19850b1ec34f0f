package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sparkpad/internal/ai"
	notifModel "sparkpad/internal/notification/model"
	projectModel "sparkpad/internal/project/model"
	projectService "sparkpad/internal/project/service"
	"sparkpad/internal/research/model"
	"sparkpad/internal/research/repository"
	userRepo "sparkpad/internal/user/repository"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/pkg/sanitize"
	"sparkpad/socket"
	"sparkpad/store"
)

// ProjectAccess checks a user's role in a project.
type ProjectAccess interface {
	Authorize(ctx context.Context, projectID, userID, need string) (projectModel.ProjectView, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID string, n notifModel.NewNotification) (store.Notification, error)
}

type ResearchService struct {
	Repo     *repository.ResearchRepository
	Projects ProjectAccess
	Users    *userRepo.UserRepository
	Notifier Notifier
	AI       *ai.Service
	Hub      socket.Publisher
	now      func() time.Time
}

func NewResearchService(repo *repository.ResearchRepository, projects ProjectAccess, users *userRepo.UserRepository, notifier Notifier, assistant *ai.Service, hub socket.Publisher) *ResearchService {
	return &ResearchService{
		Repo:     repo,
		Projects: projects,
		Users:    users,
		Notifier: notifier,
		AI:       assistant,
		Hub:      hub,
		now:      time.Now,
	}
}

func (s *ResearchService) Create(ctx context.Context, projectID, userID string, req model.CreateItemRequest) (store.ResearchItem, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor); err != nil {
		return store.ResearchItem{}, err
	}
	title, err := cleanTitle(req.Title)
	if err != nil {
		return store.ResearchItem{}, err
	}
	content, err := cleanContent(req.Content)
	if err != nil {
		return store.ResearchItem{}, err
	}

	now := s.now().UTC()
	item := store.ResearchItem{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		Content:   content,
		SourceURL: strings.TrimSpace(req.SourceURL),
		Tags:      projectService.NormalizeTags(req.Tags),
		Comments:  []store.Comment{},
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		return store.ResearchItem{}, err
	}
	s.publishUpdate(userID, item)
	return item, nil
}

// List returns the project's items matching q, most recently updated first.
func (s *ResearchService) List(ctx context.Context, projectID, userID string, q model.ListQuery) ([]store.ResearchItem, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer); err != nil {
		return nil, err
	}
	items, err := s.Repo.List(ctx, projectID)
	if err != nil {
		return nil, err
	}

	tag := strings.ToLower(strings.TrimSpace(q.Tag))
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]store.ResearchItem, 0, len(items))
	for _, it := range items {
		if tag != "" && !contains(it.Tags, tag) {
			continue
		}
		if needle != "" && !matches(it, needle) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *ResearchService) Get(ctx context.Context, projectID, userID, itemID string) (store.ResearchItem, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer); err != nil {
		return store.ResearchItem{}, err
	}
	return s.Repo.Get(ctx, projectID, itemID)
}

func (s *ResearchService) Update(ctx context.Context, projectID, userID, itemID string, req model.UpdateItemRequest) (store.ResearchItem, error) {
	var title, content string
	var err error
	if req.Title != nil {
		if title, err = cleanTitle(*req.Title); err != nil {
			return store.ResearchItem{}, err
		}
	}
	if req.Content != nil {
		if content, err = cleanContent(*req.Content); err != nil {
			return store.ResearchItem{}, err
		}
	}
	return s.modify(ctx, projectID, userID, itemID, func(it *store.ResearchItem) error {
		if req.Title != nil {
			it.Title = title
		}
		if req.Content != nil {
			it.Content = content
		}
		if req.SourceURL != nil {
			it.SourceURL = strings.TrimSpace(*req.SourceURL)
		}
		if req.Tags != nil {
			it.Tags = projectService.NormalizeTags(*req.Tags)
		}
		return nil
	})
}

// Delete removes an item. Only its creator or the project owner may do so.
func (s *ResearchService) Delete(ctx context.Context, projectID, userID, itemID string) error {
	view, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor)
	if err != nil {
		return err
	}
	err = s.Repo.Delete(ctx, projectID, itemID, func(it store.ResearchItem) error {
		if it.CreatedBy != userID && view.MyRole != projectModel.RoleOwner {
			return apperr.New(apperr.ErrForbidden, "Only the creator or the project owner can delete this item")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Repo.DropSummary(ctx, itemID)
	s.Hub.Publish(socket.NewMessage(socket.ResearchDeleteType, projectID, userID, map[string]string{"id": itemID}))
	return nil
}

// AddTag adds a normalized tag. Adding a tag the item already has is a
// no-op.
func (s *ResearchService) AddTag(ctx context.Context, projectID, userID, itemID string, req model.AddTagRequest) (store.ResearchItem, error) {
	tags := projectService.NormalizeTags([]string{req.Tag})
	if len(tags) == 0 {
		return store.ResearchItem{}, apperr.New(apperr.ErrInvalid, "tag is required")
	}
	return s.modify(ctx, projectID, userID, itemID, func(it *store.ResearchItem) error {
		if !contains(it.Tags, tags[0]) {
			it.Tags = append(it.Tags, tags[0])
		}
		return nil
	})
}

func (s *ResearchService) RemoveTag(ctx context.Context, projectID, userID, itemID, tag string) (store.ResearchItem, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return s.modify(ctx, projectID, userID, itemID, func(it *store.ResearchItem) error {
		for i, t := range it.Tags {
			if t == tag {
				it.Tags = append(it.Tags[:i], it.Tags[i+1:]...)
				return nil
			}
		}
		return apperr.New(apperr.ErrNotFound, "Tag not found on this item")
	})
}

// Tags counts tag use across the project, most used first.
func (s *ResearchService) Tags(ctx context.Context, projectID, userID string) ([]model.TagCount, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer); err != nil {
		return nil, err
	}
	items, err := s.Repo.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, it := range items {
		for _, t := range it.Tags {
			counts[t]++
		}
	}
	out := make([]model.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, model.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// AddComment appends a comment and tells the item's creator about it.
func (s *ResearchService) AddComment(ctx context.Context, projectID, userID, itemID string, req model.CommentRequest) (store.Comment, error) {
	content := sanitize.Plain(req.Content)
	if content == "" {
		return store.Comment{}, apperr.New(apperr.ErrInvalid, "content is required")
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return store.Comment{}, apperr.Newf(apperr.ErrInvalid, "comment must be at most %d characters", model.MaxCommentLength)
	}
	view, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor)
	if err != nil {
		return store.Comment{}, err
	}
	author, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return store.Comment{}, err
	}

	comment := store.Comment{
		ID:         uuid.NewString(),
		AuthorID:   userID,
		AuthorName: author.Name,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	item, err := s.Repo.Modify(ctx, projectID, itemID, func(it *store.ResearchItem) error {
		it.Comments = append(it.Comments, comment)
		it.UpdatedAt = comment.CreatedAt
		return nil
	})
	if err != nil {
		return store.Comment{}, err
	}
	s.publishUpdate(userID, item)

	if item.CreatedBy != userID {
		_, err := s.Notifier.Notify(ctx, item.CreatedBy, notifModel.NewNotification{
			Type:      notifModel.TypeResearchComment,
			Title:     fmt.Sprintf("%s commented on %q", author.Name, item.Title),
			Body:      content,
			ProjectID: view.ID,
			Link:      "/projects/" + projectID + "/research/" + itemID,
		})
		if err != nil {
			logger.Sugar.Warnf("Failed to notify %s about comment on %s: %v", item.CreatedBy, itemID, err)
		}
	}
	return comment, nil
}

// DeleteComment removes a comment. Its author or the project owner may do
// so.
func (s *ResearchService) DeleteComment(ctx context.Context, projectID, userID, itemID, commentID string) (store.ResearchItem, error) {
	view, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer)
	if err != nil {
		return store.ResearchItem{}, err
	}
	item, err := s.Repo.Modify(ctx, projectID, itemID, func(it *store.ResearchItem) error {
		for i, c := range it.Comments {
			if c.ID != commentID {
				continue
			}
			if c.AuthorID != userID && view.MyRole != projectModel.RoleOwner {
				return apperr.New(apperr.ErrForbidden, "Only the author or the project owner can delete this comment")
			}
			it.Comments = append(it.Comments[:i], it.Comments[i+1:]...)
			return nil
		}
		return apperr.New(apperr.ErrNotFound, "Comment not found")
	})
	if err != nil {
		return store.ResearchItem{}, err
	}
	s.publishUpdate(userID, item)
	return item, nil
}

// Summarize stores an AI summary on the item. A cached summary of the same
// title and content is reused without calling the provider.
func (s *ResearchService) Summarize(ctx context.Context, projectID, userID, itemID string) (store.ResearchItem, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor); err != nil {
		return store.ResearchItem{}, err
	}
	item, err := s.Repo.Get(ctx, projectID, itemID)
	if err != nil {
		return store.ResearchItem{}, err
	}
	if strings.TrimSpace(item.Content) == "" {
		return store.ResearchItem{}, apperr.New(apperr.ErrInvalid, "Research item has no content to summarize")
	}
	if !s.AI.IsAvailable() {
		return store.ResearchItem{}, apperr.New(apperr.ErrUnavailable, "AI assistant is not configured")
	}

	hash := ContentHash(item.Title, item.Content)
	summary := ""
	if cached, ok := s.Repo.CachedSummary(ctx, itemID); ok && cached.Hash == hash {
		summary = cached.Summary
	} else {
		summary, err = s.AI.Summarize(ctx, item.Title, item.Content)
		if err != nil {
			return store.ResearchItem{}, err
		}
		s.Repo.CacheSummary(ctx, itemID, store.SummaryCache{Hash: hash, Summary: summary, At: s.now().UTC()})
	}

	at := s.now().UTC()
	item, err = s.Repo.Modify(ctx, projectID, itemID, func(it *store.ResearchItem) error {
		it.Summary = summary
		it.SummarizedAt = &at
		return nil
	})
	if err != nil {
		return store.ResearchItem{}, err
	}
	s.publishUpdate(userID, item)
	return item, nil
}

// ContentHash identifies the text a summary was made from.
func ContentHash(title, content string) string {
	sum := sha256.Sum256([]byte(title + "\n" + content))
	return hex.EncodeToString(sum[:])
}

func (s *ResearchService) modify(ctx context.Context, projectID, userID, itemID string, fn func(*store.ResearchItem) error) (store.ResearchItem, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor); err != nil {
		return store.ResearchItem{}, err
	}
	item, err := s.Repo.Modify(ctx, projectID, itemID, func(it *store.ResearchItem) error {
		if err := fn(it); err != nil {
			return err
		}
		it.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return store.ResearchItem{}, err
	}
	s.publishUpdate(userID, item)
	return item, nil
}

func (s *ResearchService) publishUpdate(userID string, item store.ResearchItem) {
	s.Hub.Publish(socket.NewMessage(socket.ResearchUpdateType, item.ProjectID, userID, item))
}

func cleanTitle(raw string) (string, error) {
	title := sanitize.Plain(raw)
	if title == "" {
		return "", apperr.New(apperr.ErrInvalid, "title is required")
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return "", apperr.Newf(apperr.ErrInvalid, "title must be at most %d characters", model.MaxTitleLength)
	}
	return title, nil
}

func cleanContent(raw string) (string, error) {
	content := sanitize.Rich(raw)
	if utf8.RuneCountInString(content) > model.MaxContentLength {
		return "", apperr.Newf(apperr.ErrInvalid, "content must be at most %d characters", model.MaxContentLength)
	}
	return content, nil
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func matches(it store.ResearchItem, needle string) bool {
	if strings.Contains(strings.ToLower(it.Title), needle) || strings.Contains(strings.ToLower(it.Content), needle) {
		return true
	}
	for _, t := range it.Tags {
		if strings.Contains(t, needle) {
			return true
		}
	}
	return false
}
