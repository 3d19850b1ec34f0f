package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sparkpad/internal/user/model"
	"sparkpad/internal/user/repository"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/token"
	"sparkpad/store"
)

const (
	BcryptCost  = 12
	searchLimit = 20
)

var errBadCredentials = apperr.New(apperr.ErrUnauthorized, "Invalid email or password")

type UserService struct {
	Repo   *repository.UserRepository
	Tokens *token.Issuer
	Cost   int
	now    func() time.Time
}

func NewUserService(repo *repository.UserRepository, tokens *token.Issuer) *UserService {
	return &UserService{Repo: repo, Tokens: tokens, Cost: BcryptCost, now: time.Now}
}

func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.ErrInvalid, "name is required")
	}
	// bcrypt reads at most 72 bytes; multi-byte passwords can pass the
	// rune-count validation and still be too long.
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperr.New(apperr.ErrInvalid, "password must be at most 72 bytes")
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := store.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Login answers unknown emails and wrong passwords identically.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	u, err := s.Repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}
	return s.issue(u)
}

func (s *UserService) Me(ctx context.Context, userID string) (model.PublicUser, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return model.PublicUser{}, err
	}
	return model.Public(u), nil
}

// UpdateProfile changes only the fields present in req.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (model.PublicUser, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return model.PublicUser{}, apperr.New(apperr.ErrInvalid, "name cannot be empty")
	}
	u, err := s.Repo.Modify(ctx, userID, func(u *store.User) {
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Avatar != nil {
			u.Avatar = strings.TrimSpace(*req.Avatar)
		}
		if req.Bio != nil {
			u.Bio = strings.TrimSpace(*req.Bio)
		}
		u.UpdatedAt = s.now().UTC()
	})
	if err != nil {
		return model.PublicUser{}, err
	}
	return model.Public(u), nil
}

func (s *UserService) Search(ctx context.Context, q string) ([]model.PublicUser, error) {
	users, err := s.Repo.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, model.Public(u))
	}
	return out, nil
}

func (s *UserService) issue(u store.User) (*model.AuthResponse, error) {
	tok, exp, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{Token: tok, ExpiresAt: exp, User: model.Public(u)}, nil
}
