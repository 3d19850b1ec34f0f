// Package testutil wires the services against a fake Civil Memory for
// package tests.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	notifRepo "sparkpad/internal/notification/repository"
	notifService "sparkpad/internal/notification/service"
	projectModel "sparkpad/internal/project/model"
	projectRepo "sparkpad/internal/project/repository"
	projectService "sparkpad/internal/project/service"
	userRepo "sparkpad/internal/user/repository"
	"sparkpad/socket/sockettest"
	"sparkpad/store"
	"sparkpad/store/storetest"
)

type Fixture struct {
	Store         *store.Store
	Server        *storetest.Server
	Hub           *sockettest.Recorder
	Users         *userRepo.UserRepository
	Notifications *notifService.NotificationService
	Projects      *projectService.ProjectService
}

func New(t *testing.T) *Fixture {
	t.Helper()
	st, srv := storetest.NewStore(t)
	hub := sockettest.NewRecorder()
	users := userRepo.NewUserRepository(st)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(st), hub)
	projects := projectService.NewProjectService(projectRepo.NewProjectRepository(st), users, notifications, hub, st)
	return &Fixture{
		Store:         st,
		Server:        srv,
		Hub:           hub,
		Users:         users,
		Notifications: notifications,
		Projects:      projects,
	}
}

// User registers a user whose email is the lower-cased name at example.com.
func (f *Fixture) User(t *testing.T, name string) store.User {
	t.Helper()
	now := time.Now().UTC()
	u := store.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", "")) + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.Users.Create(context.Background(), u))
	return u
}

// Project creates a project owned by owner.
func (f *Fixture) Project(t *testing.T, owner store.User, name string) projectModel.ProjectView {
	t.Helper()
	p, err := f.Projects.Create(context.Background(), owner.ID, projectModel.CreateProjectRequest{Name: name})
	require.NoError(t, err)
	return p
}

// Join adds u to the project with role.
func (f *Fixture) Join(t *testing.T, projectID string, owner, u store.User, role string) {
	t.Helper()
	_, err := f.Projects.AddMember(context.Background(), projectID, owner.ID, projectModel.AddMemberRequest{Email: u.Email, Role: role})
	require.NoError(t, err)
}
