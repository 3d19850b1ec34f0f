package repository

import (
	"context"

	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/store"
)

var errProjectNotFound = apperr.New(apperr.ErrNotFound, "Project not found")

type ProjectRepository struct {
	projects *store.Collection[store.Project]
}

func NewProjectRepository(s *store.Store) *ProjectRepository {
	return &ProjectRepository{projects: store.CollectionOf[store.Project](s, store.Disk, s.Keys.Projects())}
}

func (r *ProjectRepository) Create(ctx context.Context, p store.Project) error {
	_, err := r.projects.Update(ctx, func(projects []store.Project) ([]store.Project, error) {
		return append(projects, p), nil
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create project: %v", err)
	}
	return err
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (store.Project, error) {
	projects, err := r.All(ctx)
	if err != nil {
		return store.Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return store.Project{}, errProjectNotFound
}

func (r *ProjectRepository) All(ctx context.Context) ([]store.Project, error) {
	projects, err := r.projects.Load(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to load projects: %v", err)
	}
	return projects, err
}

// ListForUser returns every project userID is a member of.
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]store.Project, error) {
	projects, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []store.Project
	for _, p := range projects {
		for _, m := range p.Members {
			if m.UserID == userID {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// Modify applies fn to the project and saves it. An error from fn leaves
// the stored project unchanged.
func (r *ProjectRepository) Modify(ctx context.Context, id string, fn func(*store.Project) error) (store.Project, error) {
	var updated store.Project
	_, err := r.projects.Update(ctx, func(projects []store.Project) ([]store.Project, error) {
		for i := range projects {
			if projects[i].ID != id {
				continue
			}
			p := projects[i]
			p.Members = append([]store.Member(nil), p.Members...)
			p.Tags = append([]string(nil), p.Tags...)
			if err := fn(&p); err != nil {
				return nil, err
			}
			projects[i] = p
			updated = p
			return projects, nil
		}
		return nil, errProjectNotFound
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to update project %s: %v", id, err)
	}
	return updated, err
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	_, err := r.projects.Update(ctx, func(projects []store.Project) ([]store.Project, error) {
		for i := range projects {
			if projects[i].ID == id {
				return append(projects[:i], projects[i+1:]...), nil
			}
		}
		return nil, errProjectNotFound
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to delete project %s: %v", id, err)
	}
	return err
}
