package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sparkpad/internal/ai"
	"sparkpad/internal/chat/model"
	"sparkpad/internal/chat/repository"
	notifModel "sparkpad/internal/notification/model"
	projectModel "sparkpad/internal/project/model"
	userRepo "sparkpad/internal/user/repository"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/pkg/sanitize"
	"sparkpad/socket"
	"sparkpad/store"
)

const aiReplyTimeout = 60 * time.Second

var (
	mentionPattern   = regexp.MustCompile(`@([\p{L}\p{N}_-]+)`)
	aiTriggerPattern = regexp.MustCompile(`(?i)(^|\s)[@/]ai\b`)
)

// ProjectAccess checks a user's role in a project.
type ProjectAccess interface {
	Authorize(ctx context.Context, projectID, userID, need string) (projectModel.ProjectView, error)
}

type Notifier interface {
	NotifyAll(ctx context.Context, userIDs []string, n notifModel.NewNotification)
}

type ChatService struct {
	Repo     *repository.ChatRepository
	Projects ProjectAccess
	Users    *userRepo.UserRepository
	Notifier Notifier
	AI       *ai.Service
	Hub      socket.Publisher

	now   func() time.Time
	spawn func(func())
}

func NewChatService(repo *repository.ChatRepository, projects ProjectAccess, users *userRepo.UserRepository, notifier Notifier, assistant *ai.Service, hub socket.Publisher) *ChatService {
	return &ChatService{
		Repo:     repo,
		Projects: projects,
		Users:    users,
		Notifier: notifier,
		AI:       assistant,
		Hub:      hub,
		now:      time.Now,
		spawn:    func(f func()) { go f() },
	}
}

// List returns up to q.Limit of the newest messages after q.Since in
// posting order.
func (s *ChatService) List(ctx context.Context, projectID, userID string, q model.ListQuery) ([]store.ChatMessage, error) {
	if _, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer); err != nil {
		return nil, err
	}
	items, err := s.Repo.List(ctx, projectID)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = model.DefaultLimit
	}
	if limit > model.MaxLimit {
		limit = model.MaxLimit
	}

	out := make([]store.ChatMessage, 0, len(items))
	for _, m := range items {
		if !q.Since.IsZero() && !m.CreatedAt.After(q.Since) {
			continue
		}
		out = append(out, m)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Post stores a message from userID, notifies mentioned members and, when
// the message asks for it, schedules an AI reply.
func (s *ChatService) Post(ctx context.Context, projectID, userID string, req model.PostMessageRequest) (store.ChatMessage, error) {
	view, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor)
	if err != nil {
		return store.ChatMessage{}, err
	}
	msg, err := s.post(ctx, view.Project, userID, req.Content)
	if err != nil {
		return store.ChatMessage{}, err
	}

	if WantsAI(msg.Content) && s.AI.IsAvailable() {
		replyCtx := context.WithoutCancel(ctx)
		s.spawn(func() {
			ctx, cancel := context.WithTimeout(replyCtx, aiReplyTimeout)
			defer cancel()
			if _, err := s.reply(ctx, view.Project, msg); err != nil {
				logger.Sugar.Warnf("AI reply in project %s failed: %v", projectID, err)
			}
		})
	}
	return msg, nil
}

// AskAI posts prompt as the caller's message and waits for the AI reply.
func (s *ChatService) AskAI(ctx context.Context, projectID, userID string, req model.AskAIRequest) (store.ChatMessage, error) {
	view, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleEditor)
	if err != nil {
		return store.ChatMessage{}, err
	}
	if !s.AI.IsAvailable() {
		return store.ChatMessage{}, apperr.New(apperr.ErrUnavailable, "AI assistant is not configured")
	}
	msg, err := s.post(ctx, view.Project, userID, req.Prompt)
	if err != nil {
		return store.ChatMessage{}, err
	}
	return s.reply(ctx, view.Project, msg)
}

func (s *ChatService) Delete(ctx context.Context, projectID, userID, messageID string) error {
	view, err := s.Projects.Authorize(ctx, projectID, userID, projectModel.RoleViewer)
	if err != nil {
		return err
	}
	removed, err := s.Repo.Delete(ctx, projectID, messageID, func(m store.ChatMessage) error {
		if m.AuthorID != userID && view.MyRole != projectModel.RoleOwner {
			return apperr.New(apperr.ErrForbidden, "Only the author or the project owner can delete this message")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Hub.Publish(socket.NewMessage(socket.ChatDeleteType, projectID, userID, map[string]string{"id": removed.ID}))
	return nil
}

func (s *ChatService) post(ctx context.Context, p store.Project, userID, raw string) (store.ChatMessage, error) {
	content := sanitize.Plain(raw)
	if content == "" {
		return store.ChatMessage{}, apperr.New(apperr.ErrInvalid, "content is required")
	}
	if utf8.RuneCountInString(content) > model.MaxContentLength {
		return store.ChatMessage{}, apperr.Newf(apperr.ErrInvalid, "content must be at most %d characters", model.MaxContentLength)
	}
	author, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return store.ChatMessage{}, err
	}

	msg := store.ChatMessage{
		ID:         uuid.NewString(),
		ProjectID:  p.ID,
		AuthorID:   userID,
		AuthorName: author.Name,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Repo.Append(ctx, msg); err != nil {
		return store.ChatMessage{}, err
	}
	s.Hub.Publish(socket.NewMessage(socket.ChatMessageType, p.ID, userID, msg))
	s.notifyMentions(ctx, p, msg)
	return msg, nil
}

// reply asks the assistant to answer trigger and stores the answer.
func (s *ChatService) reply(ctx context.Context, p store.Project, trigger store.ChatMessage) (store.ChatMessage, error) {
	items, err := s.Repo.List(ctx, p.ID)
	if err != nil {
		return store.ChatMessage{}, err
	}
	history := make([]ai.Turn, 0, model.AIContextMessages)
	for _, m := range recentBefore(items, trigger.ID, model.AIContextMessages) {
		history = append(history, ai.Turn{Author: m.AuthorName, Content: m.Content, IsAI: m.IsAI})
	}

	prompt := strings.TrimSpace(aiTriggerPattern.ReplaceAllString(trigger.Content, "$1"))
	if prompt == "" {
		prompt = trigger.Content
	}
	answer, err := s.AI.ChatReply(ctx, p.Name, history, fmt.Sprintf("%s asks: %s", trigger.AuthorName, prompt))
	if err != nil {
		return store.ChatMessage{}, err
	}
	if len([]rune(answer)) > model.MaxContentLength {
		answer = string([]rune(answer)[:model.MaxContentLength])
	}

	msg := store.ChatMessage{
		ID:         uuid.NewString(),
		ProjectID:  p.ID,
		AuthorID:   model.AIAuthorID,
		AuthorName: model.AIAuthorName,
		Content:    answer,
		IsAI:       true,
		ReplyTo:    trigger.ID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Repo.Append(ctx, msg); err != nil {
		return store.ChatMessage{}, err
	}
	s.Hub.Publish(socket.NewMessage(socket.ChatMessageType, p.ID, model.AIAuthorID, msg))
	return msg, nil
}

func (s *ChatService) notifyMentions(ctx context.Context, p store.Project, msg store.ChatMessage) {
	tokens := Mentions(msg.Content)
	if len(tokens) == 0 {
		return
	}
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		if m.UserID != msg.AuthorID {
			ids = append(ids, m.UserID)
		}
	}
	users, err := s.Users.GetMany(ctx, ids)
	if err != nil {
		logger.Sugar.Warnf("Failed to resolve mentions in project %s: %v", p.ID, err)
		return
	}

	var targets []string
	for _, id := range ids {
		u, ok := users[id]
		if ok && tokens[mentionKey(u.Name)] {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return
	}
	s.Notifier.NotifyAll(ctx, targets, notifModel.NewNotification{
		Type:      notifModel.TypeChatMention,
		Title:     fmt.Sprintf("%s mentioned you in %s", msg.AuthorName, p.Name),
		Body:      preview(msg.Content, 140),
		ProjectID: p.ID,
		Link:      "/projects/" + p.ID + "/chat",
	})
}

// WantsAI reports whether content addresses the assistant with @ai or /ai.
func WantsAI(content string) bool {
	return aiTriggerPattern.MatchString(content)
}

// Mentions returns the normalized @name tokens in content, excluding @ai.
func Mentions(content string) map[string]bool {
	out := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		key := strings.ToLower(m[1])
		if key != model.AIAuthorID {
			out[key] = true
		}
	}
	return out
}

func mentionKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// recentBefore returns up to n messages preceding the message with id.
func recentBefore(items []store.ChatMessage, id string, n int) []store.ChatMessage {
	end := len(items)
	for i := range items {
		if items[i].ID == id {
			end = i
			break
		}
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return items[start:end]
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
