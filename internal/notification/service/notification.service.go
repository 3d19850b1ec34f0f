package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sparkpad/internal/notification/model"
	"sparkpad/internal/notification/repository"
	"sparkpad/pkg/logger"
	"sparkpad/socket"
	"sparkpad/store"
)

type NotificationService struct {
	Repo *repository.NotificationRepository
	Hub  socket.Publisher
	now  func() time.Time
}

func NewNotificationService(repo *repository.NotificationRepository, hub socket.Publisher) *NotificationService {
	return &NotificationService{Repo: repo, Hub: hub, now: time.Now}
}

// Notify stores a notification for userID and pushes it to their open
// sockets.
func (s *NotificationService) Notify(ctx context.Context, userID string, n model.NewNotification) (store.Notification, error) {
	rec := store.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		ProjectID: n.ProjectID,
		Link:      n.Link,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Repo.Prepend(ctx, rec); err != nil {
		return store.Notification{}, err
	}
	s.Hub.NotifyUser(userID, socket.NewMessage(socket.NotificationType, n.ProjectID, userID, rec))
	return rec, nil
}

// NotifyAll sends n to every user in userIDs. Failures are logged and do
// not stop the rest.
func (s *NotificationService) NotifyAll(ctx context.Context, userIDs []string, n model.NewNotification) {
	for _, id := range userIDs {
		if _, err := s.Notify(ctx, id, n); err != nil {
			logger.Sugar.Warnf("Failed to notify user %s (%s): %v", id, n.Type, err)
		}
	}
}

// List returns notifications newest first and the unread count over the
// whole list.
func (s *NotificationService) List(ctx context.Context, userID string, f model.ListFilter) ([]store.Notification, int, error) {
	items, err := s.Repo.List(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	unread := 0
	out := make([]store.Notification, 0, len(items))
	for _, n := range items {
		if !n.Read {
			unread++
		}
		if f.UnreadOnly && n.Read {
			continue
		}
		if !f.Since.IsZero() && !n.CreatedAt.After(f.Since) {
			continue
		}
		out = append(out, n)
	}
	return out, unread, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.Repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.Repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	return s.Repo.Delete(ctx, userID, id)
}
