package repository

import (
	"context"

	"sparkpad/internal/chat/model"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/store"
)

type ChatRepository struct {
	store *store.Store
}

func NewChatRepository(s *store.Store) *ChatRepository {
	return &ChatRepository{store: s}
}

func (r *ChatRepository) col(projectID string) *store.Collection[store.ChatMessage] {
	return store.CollectionOf[store.ChatMessage](r.store, store.Disk, r.store.Keys.Chat(projectID))
}

// Append stores msg at the end of the project history, dropping the oldest
// messages beyond model.MaxHistory.
func (r *ChatRepository) Append(ctx context.Context, msg store.ChatMessage) error {
	_, err := r.col(msg.ProjectID).Update(ctx, func(items []store.ChatMessage) ([]store.ChatMessage, error) {
		items = append(items, msg)
		if len(items) > model.MaxHistory {
			items = items[len(items)-model.MaxHistory:]
		}
		return items, nil
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to append chat message to project %s: %v", msg.ProjectID, err)
	}
	return err
}

// List returns the project history in posting order.
func (r *ChatRepository) List(ctx context.Context, projectID string) ([]store.ChatMessage, error) {
	items, err := r.col(projectID).Load(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to load chat for project %s: %v", projectID, err)
	}
	return items, err
}

// Delete removes one message after allow approves it.
func (r *ChatRepository) Delete(ctx context.Context, projectID, id string, allow func(store.ChatMessage) error) (store.ChatMessage, error) {
	var removed store.ChatMessage
	_, err := r.col(projectID).Update(ctx, func(items []store.ChatMessage) ([]store.ChatMessage, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := allow(items[i]); err != nil {
				return nil, err
			}
			removed = items[i]
			return append(items[:i], items[i+1:]...), nil
		}
		return nil, apperr.New(apperr.ErrNotFound, "Message not found")
	})
	return removed, err
}
