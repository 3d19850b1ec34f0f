package repository

import (
	"context"
	"sort"
	"strings"

	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/store"
)

type UserRepository struct {
	users *store.Collection[store.User]
}

func NewUserRepository(s *store.Store) *UserRepository {
	return &UserRepository{users: store.CollectionOf[store.User](s, store.Disk, s.Keys.Users())}
}

// Create adds u. The email must not be taken.
func (r *UserRepository) Create(ctx context.Context, u store.User) error {
	_, err := r.users.Update(ctx, func(users []store.User) ([]store.User, error) {
		for _, existing := range users {
			if existing.Email == u.Email {
				return nil, apperr.New(apperr.ErrConflict, "An account with that email already exists")
			}
		}
		return append(users, u), nil
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to create user %s: %v", u.Email, err)
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (store.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return store.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return store.User{}, apperr.New(apperr.ErrNotFound, "User not found")
}

// GetByEmail matches the lower-cased address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (store.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return store.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, apperr.New(apperr.ErrNotFound, "User not found with that email")
}

// GetMany returns the users with the given IDs keyed by ID. Unknown IDs are
// skipped.
func (r *UserRepository) GetMany(ctx context.Context, ids []string) (map[string]store.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[string]store.User, len(ids))
	for _, u := range users {
		if want[u.ID] {
			out[u.ID] = u
		}
	}
	return out, nil
}

// Search matches q against name and email, case-insensitively. A blank q
// matches nobody.
func (r *UserRepository) Search(ctx context.Context, q string, limit int) ([]store.User, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []store.User{}, nil
	}
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []store.User
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Email, q) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Modify applies fn to the user with the given ID and saves the result.
func (r *UserRepository) Modify(ctx context.Context, id string, fn func(*store.User)) (store.User, error) {
	var updated store.User
	_, err := r.users.Update(ctx, func(users []store.User) ([]store.User, error) {
		for i := range users {
			if users[i].ID == id {
				fn(&users[i])
				updated = users[i]
				return users, nil
			}
		}
		return nil, apperr.New(apperr.ErrNotFound, "User not found")
	})
	if err != nil && apperr.Status(err) >= 500 {
		logger.Sugar.Errorf("Failed to update user %s: %v", id, err)
	}
	return updated, err
}

func (r *UserRepository) load(ctx context.Context) ([]store.User, error) {
	users, err := r.users.Load(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to load users: %v", err)
	}
	return users, err
}
