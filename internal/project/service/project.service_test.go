package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notifModel "sparkpad/internal/notification/model"
	"sparkpad/internal/project/model"
	"sparkpad/internal/testutil"
	"sparkpad/pkg/apperr"
	"sparkpad/socket"
	"sparkpad/store"
)

func strPtr(s string) *string { return &s }

func TestCreateProject(t *testing.T) {
	f := testutil.New(t)
	ana := f.User(t, "Ana")

	p, err := f.Projects.Create(context.Background(), ana.ID, model.CreateProjectRequest{
		Name: "  Apollo ",
		Tags: []string{"Space", " space", "", "AI"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Apollo", p.Name)
	assert.Equal(t, model.StatusActive, p.Status)
	assert.Equal(t, []string{"space", "ai"}, p.Tags)
	assert.Equal(t, model.RoleOwner, p.MyRole)
	require.Len(t, p.Members, 1)
	assert.Equal(t, ana.ID, p.Members[0].UserID)
}

func TestAccessControl(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana, bob, eve := f.User(t, "Ana"), f.User(t, "Bob"), f.User(t, "Eve")
	p := f.Project(t, ana, "Apollo")
	f.Join(t, p.ID, ana, bob, model.RoleViewer)

	_, err := f.Projects.Get(ctx, p.ID, eve.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.Projects.Get(ctx, "missing", ana.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.Projects.Update(ctx, p.ID, bob.ID, model.UpdateProjectRequest{Name: strPtr("Hijack")})
	assert.ErrorIs(t, err, apperr.ErrForbidden, "viewers cannot edit")

	assert.ErrorIs(t, f.Projects.Delete(ctx, p.ID, bob.ID), apperr.ErrForbidden)

	ok, err := f.Projects.IsMember(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.Projects.IsMember(ctx, p.ID, eve.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateArchiveIsOwnerOnly(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana, bob := f.User(t, "Ana"), f.User(t, "Bob")
	p := f.Project(t, ana, "Apollo")
	f.Join(t, p.ID, ana, bob, model.RoleEditor)

	updated, err := f.Projects.Update(ctx, p.ID, bob.ID, model.UpdateProjectRequest{
		Description: strPtr("Moon mission"),
		Status:      strPtr(model.StatusOnHold),
	})
	require.NoError(t, err)
	assert.Equal(t, "Moon mission", updated.Description)
	assert.Equal(t, model.StatusOnHold, updated.Status)

	_, err = f.Projects.Update(ctx, p.ID, bob.ID, model.UpdateProjectRequest{Status: strPtr(model.StatusArchived)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.Projects.Update(ctx, p.ID, ana.ID, model.UpdateProjectRequest{Status: strPtr(model.StatusArchived)})
	require.NoError(t, err)
	assert.Contains(t, f.Hub.Types(), socket.ProjectUpdateType)
}

func TestAddMember(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana, bob := f.User(t, "Ana"), f.User(t, "Bob")
	p := f.Project(t, ana, "Apollo")

	m, err := f.Projects.AddMember(ctx, p.ID, ana.ID, model.AddMemberRequest{Email: "BOB@example.com", Role: model.RoleViewer})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, m.UserID)
	assert.Equal(t, "Bob", m.Name)

	notes, _, err := f.Notifications.List(ctx, bob.ID, notifModel.ListFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, notifModel.TypeProjectInvite, notes[0].Type)

	// Re-adding changes the role without a second invite.
	m, err = f.Projects.AddMember(ctx, p.ID, ana.ID, model.AddMemberRequest{Email: bob.Email, Role: model.RoleEditor})
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, m.Role)
	notes, _, _ = f.Notifications.List(ctx, bob.ID, notifModel.ListFilter{})
	assert.Len(t, notes, 1)

	members, err := f.Projects.Members(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = f.Projects.AddMember(ctx, p.ID, bob.ID, model.AddMemberRequest{Email: "x@example.com", Role: model.RoleViewer})
	assert.ErrorIs(t, err, apperr.ErrNotFound, "unknown email")

	_, err = f.Projects.AddMember(ctx, p.ID, ana.ID, model.AddMemberRequest{Email: ana.Email, Role: model.RoleViewer})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRemoveMemberKeepsAtLeastOne(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana := f.User(t, "Ana")
	p := f.Project(t, ana, "Solo")

	_, err := f.Projects.RemoveMember(ctx, p.ID, ana.ID, ana.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.Projects.Get(ctx, p.ID, ana.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
}

func TestRemoveMemberRules(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana, bob, cat := f.User(t, "Ana"), f.User(t, "Bob"), f.User(t, "Cat")
	p := f.Project(t, ana, "Apollo")
	f.Join(t, p.ID, ana, bob, model.RoleEditor)
	f.Join(t, p.ID, ana, cat, model.RoleViewer)

	_, err := f.Projects.RemoveMember(ctx, p.ID, bob.ID, cat.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden, "editors cannot remove others")

	_, err = f.Projects.RemoveMember(ctx, p.ID, ana.ID, cat.ID)
	require.NoError(t, err)
	notes, _, _ := f.Notifications.List(ctx, cat.ID, notifModel.ListFilter{})
	require.Len(t, notes, 2)
	assert.Equal(t, notifModel.TypeProjectRemoved, notes[0].Type)

	_, err = f.Projects.RemoveMember(ctx, p.ID, ana.ID, cat.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "cat is no longer a member")
}

func TestOwnerLeavingTransfersOwnership(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana, bob, cat := f.User(t, "Ana"), f.User(t, "Bob"), f.User(t, "Cat")
	p := f.Project(t, ana, "Apollo")
	f.Join(t, p.ID, ana, bob, model.RoleViewer)
	f.Join(t, p.ID, ana, cat, model.RoleEditor)

	_, err := f.Projects.RemoveMember(ctx, p.ID, ana.ID, ana.ID)
	require.NoError(t, err)

	got, err := f.Projects.Get(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.OwnerID, "earliest remaining member takes over")
	assert.Equal(t, model.RoleOwner, got.MyRole)
	assert.Len(t, got.Members, 2)
}

func TestDeleteDropsProjectData(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana, bob := f.User(t, "Ana"), f.User(t, "Bob")
	p := f.Project(t, ana, "Apollo")
	f.Join(t, p.ID, ana, bob, model.RoleEditor)

	f.Server.Put(store.Disk, f.Store.Keys.Chat(p.ID), []store.ChatMessage{{ID: "m1"}})
	f.Server.Put(store.Disk, f.Store.Keys.Research(p.ID), []store.ResearchItem{{ID: "r1", ProjectID: p.ID}})
	f.Server.Put(store.Volatile, f.Store.Keys.Summary("r1"), store.SummaryCache{Summary: "old"})
	require.NoError(t, f.Projects.Delete(ctx, p.ID, ana.ID))

	_, ok := f.Server.Raw(store.Disk, f.Store.Keys.Chat(p.ID))
	assert.False(t, ok)
	_, ok = f.Server.Raw(store.Disk, f.Store.Keys.Research(p.ID))
	assert.False(t, ok)
	_, ok = f.Server.Raw(store.Volatile, f.Store.Keys.Summary("r1"))
	assert.False(t, ok, "summary cache of a deleted project's item is dropped")
	_, err := f.Projects.Get(ctx, p.ID, ana.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []string{p.ID}, f.Hub.Closed)

	notes, _, _ := f.Notifications.List(ctx, bob.ID, notifModel.ListFilter{})
	require.NotEmpty(t, notes)
	assert.Equal(t, notifModel.TypeProjectDeleted, notes[0].Type)
}

func TestListAppliesQuery(t *testing.T) {
	f := testutil.New(t)
	ctx := context.Background()
	ana, bob := f.User(t, "Ana"), f.User(t, "Bob")
	f.Project(t, ana, "Zeta")
	f.Project(t, ana, "alpha")
	f.Project(t, bob, "Hidden")

	list, err := f.Projects.List(ctx, ana.ID, model.ListQuery{Sort: "name"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "Zeta", list[1].Name)

	_, err = f.Projects.List(ctx, ana.ID, model.ListQuery{Sort: "random"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}
