package repository

import (
	"context"
	"errors"

	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/store"
)

type ResearchRepository struct {
	store *store.Store
}

func NewResearchRepository(s *store.Store) *ResearchRepository {
	return &ResearchRepository{store: s}
}

func (r *ResearchRepository) col(projectID string) *store.Collection[store.ResearchItem] {
	return store.CollectionOf[store.ResearchItem](r.store, store.Disk, r.store.Keys.Research(projectID))
}

func (r *ResearchRepository) Create(ctx context.Context, item store.ResearchItem) error {
	_, err := r.col(item.ProjectID).Update(ctx, func(items []store.ResearchItem) ([]store.ResearchItem, error) {
		return append(items, item), nil
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create research item in project %s: %v", item.ProjectID, err)
	}
	return err
}

func (r *ResearchRepository) List(ctx context.Context, projectID string) ([]store.ResearchItem, error) {
	items, err := r.col(projectID).Load(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to load research for project %s: %v", projectID, err)
	}
	return items, err
}

func (r *ResearchRepository) Get(ctx context.Context, projectID, itemID string) (store.ResearchItem, error) {
	items, err := r.List(ctx, projectID)
	if err != nil {
		return store.ResearchItem{}, err
	}
	for _, it := range items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return store.ResearchItem{}, apperr.New(apperr.ErrNotFound, "Research item not found")
}

// Modify applies fn to one item under the collection lock. fn works on a
// copy with its own Tags and Comments slices.
func (r *ResearchRepository) Modify(ctx context.Context, projectID, itemID string, fn func(*store.ResearchItem) error) (store.ResearchItem, error) {
	var updated store.ResearchItem
	_, err := r.col(projectID).Update(ctx, func(items []store.ResearchItem) ([]store.ResearchItem, error) {
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			it := items[i]
			it.Tags = append([]string(nil), it.Tags...)
			it.Comments = append([]store.Comment(nil), it.Comments...)
			if err := fn(&it); err != nil {
				return nil, err
			}
			items[i] = it
			updated = it
			return items, nil
		}
		return nil, apperr.New(apperr.ErrNotFound, "Research item not found")
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to update research item %s: %v", itemID, err)
	}
	return updated, err
}

// Delete removes an item after allow approves it.
func (r *ResearchRepository) Delete(ctx context.Context, projectID, itemID string, allow func(store.ResearchItem) error) error {
	_, err := r.col(projectID).Update(ctx, func(items []store.ResearchItem) ([]store.ResearchItem, error) {
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			if err := allow(items[i]); err != nil {
				return nil, err
			}
			return append(items[:i], items[i+1:]...), nil
		}
		return nil, apperr.New(apperr.ErrNotFound, "Research item not found")
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to delete research item %s: %v", itemID, err)
	}
	return err
}

// CachedSummary returns the volatile summary entry of an item, if any.
func (r *ResearchRepository) CachedSummary(ctx context.Context, itemID string) (store.SummaryCache, bool) {
	var entry store.SummaryCache
	err := r.store.Client.Get(ctx, store.Volatile, r.store.Keys.Summary(itemID), &entry)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			logger.Sugar.Warnf("Failed to read summary cache for %s: %v", itemID, err)
		}
		return store.SummaryCache{}, false
	}
	return entry, true
}

func (r *ResearchRepository) CacheSummary(ctx context.Context, itemID string, entry store.SummaryCache) {
	if err := r.store.Client.Set(ctx, store.Volatile, r.store.Keys.Summary(itemID), entry); err != nil {
		logger.Sugar.Warnf("Failed to write summary cache for %s: %v", itemID, err)
	}
}

func (r *ResearchRepository) DropSummary(ctx context.Context, itemID string) {
	if err := r.store.Client.Delete(ctx, store.Volatile, r.store.Keys.Summary(itemID)); err != nil {
		logger.Sugar.Warnf("Failed to drop summary cache for %s: %v", itemID, err)
	}
}
