package repository

import (
	"context"

	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/store"
)

// MaxPerUser bounds each user's notification list; the oldest are dropped.
const MaxPerUser = 200

type NotificationRepository struct {
	store *store.Store
}

func NewNotificationRepository(s *store.Store) *NotificationRepository {
	return &NotificationRepository{store: s}
}

func (r *NotificationRepository) col(userID string) *store.Collection[store.Notification] {
	return store.CollectionOf[store.Notification](r.store, store.Disk, r.store.Keys.Notifications(userID))
}

// Prepend stores n as the newest notification of its user.
func (r *NotificationRepository) Prepend(ctx context.Context, n store.Notification) error {
	_, err := r.col(n.UserID).Update(ctx, func(items []store.Notification) ([]store.Notification, error) {
		items = append([]store.Notification{n}, items...)
		if len(items) > MaxPerUser {
			items = items[:MaxPerUser]
		}
		return items, nil
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to store notification for user %s: %v", n.UserID, err)
	}
	return err
}

// List returns the user's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, userID string) ([]store.Notification, error) {
	items, err := r.col(userID).Load(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to load notifications for user %s: %v", userID, err)
	}
	return items, err
}

// MarkRead marks one notification read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	if id == "" {
		return apperr.New(apperr.ErrInvalid, "notification id is required")
	}
	_, err := r.col(userID).Update(ctx, func(items []store.Notification) ([]store.Notification, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].Read = true
				return items, nil
			}
		}
		return nil, apperr.New(apperr.ErrNotFound, "Notification not found")
	})
	return err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.col(userID).Update(ctx, func(items []store.Notification) ([]store.Notification, error) {
		for i := range items {
			items[i].Read = true
		}
		return items, nil
	})
	return err
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.col(userID).Update(ctx, func(items []store.Notification) ([]store.Notification, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, apperr.New(apperr.ErrNotFound, "Notification not found")
	})
	return err
}
