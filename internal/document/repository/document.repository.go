package repository

import (
	"context"

	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/store"
)

type DocumentRepository struct {
	store *store.Store
}

func NewDocumentRepository(s *store.Store) *DocumentRepository {
	return &DocumentRepository{store: s}
}

func (r *DocumentRepository) col(projectID string) *store.Collection[store.Document] {
	return store.CollectionOf[store.Document](r.store, store.Disk, r.store.Keys.Documents(projectID))
}

func (r *DocumentRepository) Create(ctx context.Context, doc store.Document) error {
	_, err := r.col(doc.ProjectID).Update(ctx, func(docs []store.Document) ([]store.Document, error) {
		return append(docs, doc), nil
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create document in project %s: %v", doc.ProjectID, err)
	}
	return err
}

func (r *DocumentRepository) List(ctx context.Context, projectID string) ([]store.Document, error) {
	docs, err := r.col(projectID).Load(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to load documents for project %s: %v", projectID, err)
	}
	return docs, err
}

func (r *DocumentRepository) Get(ctx context.Context, projectID, docID string) (store.Document, error) {
	docs, err := r.List(ctx, projectID)
	if err != nil {
		return store.Document{}, err
	}
	for _, d := range docs {
		if d.ID == docID {
			return d, nil
		}
	}
	return store.Document{}, apperr.New(apperr.ErrNotFound, "Document not found")
}

// Modify applies fn to one document under the collection lock and returns
// the stored result. fn receives a copy whose Rows it may reorder freely.
func (r *DocumentRepository) Modify(ctx context.Context, projectID, docID string, fn func(*store.Document) error) (store.Document, error) {
	var updated store.Document
	_, err := r.col(projectID).Update(ctx, func(docs []store.Document) ([]store.Document, error) {
		for i := range docs {
			if docs[i].ID != docID {
				continue
			}
			doc := docs[i]
			doc.Rows = append([]store.Row(nil), doc.Rows...)
			if err := fn(&doc); err != nil {
				return nil, err
			}
			docs[i] = doc
			updated = doc
			return docs, nil
		}
		return nil, apperr.New(apperr.ErrNotFound, "Document not found")
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to update document %s: %v", docID, err)
	}
	return updated, err
}

func (r *DocumentRepository) Delete(ctx context.Context, projectID, docID string) error {
	_, err := r.col(projectID).Update(ctx, func(docs []store.Document) ([]store.Document, error) {
		for i := range docs {
			if docs[i].ID == docID {
				return append(docs[:i], docs[i+1:]...), nil
			}
		}
		return nil, apperr.New(apperr.ErrNotFound, "Document not found")
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to delete document %s: %v", docID, err)
	}
	return err
}
