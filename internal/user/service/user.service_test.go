package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sparkpad/internal/user/model"
	"sparkpad/internal/user/repository"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/httpx"
	"sparkpad/pkg/token"
	"sparkpad/store/storetest"
)

func newService(t *testing.T) *UserService {
	t.Helper()
	st, _ := storetest.NewStore(t)
	svc := NewUserService(repository.NewUserRepository(st), token.NewIssuer("secret", time.Hour))
	svc.Cost = bcrypt.MinCost
	return svc
}

func strPtr(s string) *string { return &s }

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, model.RegisterRequest{Name: " Ana ", Email: "Ana@Example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", reg.User.Name)
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Token)

	sub, err := svc.Tokens.Parse(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, sub)

	login, err := svc.Login(ctx, model.LoginRequest{Email: "ANA@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, model.RegisterRequest{Name: "Other", Email: "ANA@example.com", Password: "password2"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, model.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)

	_, wrongPass := svc.Login(ctx, model.LoginRequest{Email: "ana@example.com", Password: "nope-nope"})
	_, unknown := svc.Login(ctx, model.LoginRequest{Email: "bob@example.com", Password: "password1"})
	assert.ErrorIs(t, wrongPass, apperr.ErrUnauthorized)
	assert.ErrorIs(t, unknown, apperr.ErrUnauthorized)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestUpdateProfileOnlyTouchesGivenFields(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, model.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)

	u, err := svc.UpdateProfile(ctx, reg.User.ID, model.UpdateProfileRequest{Bio: strPtr("Researcher")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "Researcher", u.Bio)

	_, err = svc.UpdateProfile(ctx, reg.User.ID, model.UpdateProfileRequest{Name: strPtr("  ")})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = svc.UpdateProfile(ctx, "missing", model.UpdateProfileRequest{Bio: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRegisterRejectsLongPassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	long := model.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: strings.Repeat("a", 100)}
	assert.Error(t, httpx.Validate(long))

	// 30 runes pass validation but take 90 bytes.
	wide := model.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: strings.Repeat("€", 30)}
	require.NoError(t, httpx.Validate(wide))
	_, err := svc.Register(ctx, wide)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
}

func TestSearch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, n := range []string{"Zed", "anna", "Bob"} {
		_, err := svc.Register(ctx, model.RegisterRequest{Name: n, Email: n + "@example.com", Password: "password1"})
		require.NoError(t, err)
	}

	none, err := svc.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, none, "a blank query lists nobody")

	all, err := svc.Search(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"anna", "Bob", "Zed"}, []string{all[0].Name, all[1].Name, all[2].Name})

	hits, err := svc.Search(ctx, "BO")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Bob", hits[0].Name)
}
