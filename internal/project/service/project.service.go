package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	notifModel "sparkpad/internal/notification/model"
	"sparkpad/internal/project/model"
	"sparkpad/internal/project/repository"
	userRepo "sparkpad/internal/user/repository"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/socket"
	"sparkpad/store"
)

// Notifier delivers personal notifications.
type Notifier interface {
	Notify(ctx context.Context, userID string, n notifModel.NewNotification) (store.Notification, error)
	NotifyAll(ctx context.Context, userIDs []string, n notifModel.NewNotification)
}

type ProjectService struct {
	Repo     *repository.ProjectRepository
	Users    *userRepo.UserRepository
	Notifier Notifier
	Hub      socket.Publisher
	Store    *store.Store
	now      func() time.Time
}

func NewProjectService(repo *repository.ProjectRepository, users *userRepo.UserRepository, notifier Notifier, hub socket.Publisher, st *store.Store) *ProjectService {
	return &ProjectService{Repo: repo, Users: users, Notifier: notifier, Hub: hub, Store: st, now: time.Now}
}

func (s *ProjectService) Create(ctx context.Context, userID string, req model.CreateProjectRequest) (model.ProjectView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.ProjectView{}, apperr.New(apperr.ErrInvalid, "name is required")
	}
	status := req.Status
	if status == "" {
		status = model.StatusActive
	}
	now := s.now().UTC()
	p := store.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		Tags:        NormalizeTags(req.Tags),
		OwnerID:     userID,
		Members:     []store.Member{{UserID: userID, Role: model.RoleOwner, JoinedAt: now}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return model.ProjectView{}, err
	}
	return model.ProjectView{Project: p, MyRole: model.RoleOwner}, nil
}

// Authorize loads the project and checks that userID holds at least the
// need role in it.
func (s *ProjectService) Authorize(ctx context.Context, projectID, userID, need string) (model.ProjectView, error) {
	p, err := s.Repo.Get(ctx, projectID)
	if err != nil {
		return model.ProjectView{}, err
	}
	role := RoleOf(p, userID)
	if role == "" {
		return model.ProjectView{}, apperr.New(apperr.ErrForbidden, "You are not a member of this project")
	}
	if !model.RoleAtLeast(role, need) {
		return model.ProjectView{}, apperr.New(apperr.ErrForbidden, "Your role does not allow this action")
	}
	return model.ProjectView{Project: p, MyRole: role}, nil
}

// IsMember lets the websocket endpoint gate project rooms.
func (s *ProjectService) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	_, err := s.Authorize(ctx, projectID, userID, model.RoleViewer)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, apperr.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *ProjectService) Get(ctx context.Context, projectID, userID string) (model.ProjectView, error) {
	return s.Authorize(ctx, projectID, userID, model.RoleViewer)
}

func (s *ProjectService) List(ctx context.Context, userID string, q model.ListQuery) ([]model.ProjectView, error) {
	projects, err := s.Repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	projects, err = FilterAndSort(projects, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProjectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, model.ProjectView{Project: p, MyRole: RoleOf(p, userID)})
	}
	return out, nil
}

// Update changes the given fields. Owners and editors may edit; moving a
// project into or out of the archive is reserved to the owner.
func (s *ProjectService) Update(ctx context.Context, projectID, userID string, req model.UpdateProjectRequest) (model.ProjectView, error) {
	var role string
	p, err := s.Repo.Modify(ctx, projectID, func(p *store.Project) error {
		role = RoleOf(*p, userID)
		if role == "" {
			return apperr.New(apperr.ErrForbidden, "You are not a member of this project")
		}
		if !model.RoleAtLeast(role, model.RoleEditor) {
			return apperr.New(apperr.ErrForbidden, "Only owners and editors can edit the project")
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperr.New(apperr.ErrInvalid, "name cannot be empty")
			}
			p.Name = name
		}
		if req.Description != nil {
			p.Description = strings.TrimSpace(*req.Description)
		}
		if req.Status != nil && *req.Status != p.Status {
			if (*req.Status == model.StatusArchived || p.Status == model.StatusArchived) && role != model.RoleOwner {
				return apperr.New(apperr.ErrForbidden, "Only the owner can archive or restore the project")
			}
			p.Status = *req.Status
		}
		if req.Tags != nil {
			p.Tags = NormalizeTags(*req.Tags)
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return model.ProjectView{}, err
	}
	s.Hub.Publish(socket.NewMessage(socket.ProjectUpdateType, p.ID, userID, p))
	return model.ProjectView{Project: p, MyRole: role}, nil
}

// Delete removes the project and everything stored under it. Owner only.
func (s *ProjectService) Delete(ctx context.Context, projectID, userID string) error {
	view, err := s.Authorize(ctx, projectID, userID, model.RoleOwner)
	if err != nil {
		return err
	}
	items, err := store.CollectionOf[store.ResearchItem](s.Store, store.Disk, s.Store.Keys.Research(projectID)).Load(ctx)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, projectID); err != nil {
		return err
	}

	for _, it := range items {
		if err := s.Store.Client.Delete(ctx, store.Volatile, s.Store.Keys.Summary(it.ID)); err != nil {
			logger.Sugar.Warnf("Failed to drop summary cache for %s: %v", it.ID, err)
		}
	}
	keys := []string{s.Store.Keys.Chat(projectID), s.Store.Keys.Documents(projectID), s.Store.Keys.Research(projectID)}
	for _, key := range keys {
		if err := s.Store.Client.Delete(ctx, store.Disk, key); err != nil {
			logger.Sugar.Errorf("Failed to drop %s for deleted project %s: %v", key, projectID, err)
		}
	}

	s.Hub.Publish(socket.NewMessage(socket.ProjectDeleteType, projectID, userID, map[string]string{"id": projectID}))
	s.Hub.CloseProject(projectID)

	var others []string
	for _, m := range view.Members {
		if m.UserID != userID {
			others = append(others, m.UserID)
		}
	}
	s.Notifier.NotifyAll(ctx, others, notifModel.NewNotification{
		Type:  notifModel.TypeProjectDeleted,
		Title: fmt.Sprintf("Project %q was deleted", view.Name),
	})
	return nil
}

func (s *ProjectService) Members(ctx context.Context, projectID, userID string) ([]model.MemberInfo, error) {
	view, err := s.Authorize(ctx, projectID, userID, model.RoleViewer)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(view.Members))
	for _, m := range view.Members {
		ids = append(ids, m.UserID)
	}
	users, err := s.Users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.MemberInfo, 0, len(view.Members))
	for _, m := range view.Members {
		u := users[m.UserID]
		out = append(out, model.MemberInfo{
			UserID:   m.UserID,
			Name:     u.Name,
			Email:    u.Email,
			Avatar:   u.Avatar,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return out, nil
}

// AddMember invites a registered user by email, or changes the role of an
// existing member. Owner only.
func (s *ProjectService) AddMember(ctx context.Context, projectID, userID string, req model.AddMemberRequest) (model.MemberInfo, error) {
	target, err := s.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return model.MemberInfo{}, err
	}

	var info model.MemberInfo
	added := false
	p, err := s.Repo.Modify(ctx, projectID, func(p *store.Project) error {
		if RoleOf(*p, userID) != model.RoleOwner {
			return apperr.New(apperr.ErrForbidden, "Only the owner can manage members")
		}
		now := s.now().UTC()
		for i := range p.Members {
			if p.Members[i].UserID != target.ID {
				continue
			}
			if p.Members[i].Role == model.RoleOwner {
				return apperr.New(apperr.ErrConflict, "The owner's role cannot be changed")
			}
			p.Members[i].Role = req.Role
			info = memberInfo(p.Members[i], target)
			p.UpdatedAt = now
			return nil
		}
		m := store.Member{UserID: target.ID, Role: req.Role, JoinedAt: now}
		p.Members = append(p.Members, m)
		p.UpdatedAt = now
		info = memberInfo(m, target)
		added = true
		return nil
	})
	if err != nil {
		return model.MemberInfo{}, err
	}

	s.Hub.Publish(socket.NewMessage(socket.ProjectUpdateType, p.ID, userID, p))
	if added {
		if _, err := s.Notifier.Notify(ctx, target.ID, notifModel.NewNotification{
			Type:      notifModel.TypeProjectInvite,
			Title:     fmt.Sprintf("You were added to %q", p.Name),
			Body:      fmt.Sprintf("Role: %s", req.Role),
			ProjectID: p.ID,
			Link:      "/projects/" + p.ID,
		}); err != nil {
			logger.Sugar.Warnf("Failed to notify invited user %s: %v", target.ID, err)
		}
	}
	return info, nil
}

// RemoveMember removes targetID from the project. The owner may remove
// anyone else; any member may remove themselves. A project always keeps at
// least one member, and when the owner leaves the longest-standing member
// takes over.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, actorID, targetID string) (model.ProjectView, error) {
	p, err := s.Repo.Modify(ctx, projectID, func(p *store.Project) error {
		actorRole := RoleOf(*p, actorID)
		if actorRole == "" {
			return apperr.New(apperr.ErrForbidden, "You are not a member of this project")
		}
		if actorID != targetID && actorRole != model.RoleOwner {
			return apperr.New(apperr.ErrForbidden, "Only the owner can remove other members")
		}
		idx := -1
		for i, m := range p.Members {
			if m.UserID == targetID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperr.New(apperr.ErrNotFound, "User is not a member of this project")
		}
		if len(p.Members) == 1 {
			return apperr.New(apperr.ErrConflict, "A project must keep at least one member")
		}

		leaving := p.Members[idx]
		p.Members = append(p.Members[:idx], p.Members[idx+1:]...)
		if leaving.Role == model.RoleOwner {
			transferOwnership(p)
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return model.ProjectView{}, err
	}

	s.Hub.Publish(socket.NewMessage(socket.ProjectUpdateType, p.ID, actorID, p))
	if actorID != targetID {
		if _, err := s.Notifier.Notify(ctx, targetID, notifModel.NewNotification{
			Type:      notifModel.TypeProjectRemoved,
			Title:     fmt.Sprintf("You were removed from %q", p.Name),
			ProjectID: p.ID,
		}); err != nil {
			logger.Sugar.Warnf("Failed to notify removed user %s: %v", targetID, err)
		}
	}
	return model.ProjectView{Project: p, MyRole: RoleOf(p, actorID)}, nil
}

// transferOwnership hands the project to the member who joined first.
func transferOwnership(p *store.Project) {
	next := 0
	for i, m := range p.Members {
		if m.JoinedAt.Before(p.Members[next].JoinedAt) {
			next = i
		}
	}
	p.Members[next].Role = model.RoleOwner
	p.OwnerID = p.Members[next].UserID
	logger.Sugar.Infof("Project %s ownership passed to %s", p.ID, p.OwnerID)
}

// RoleOf returns userID's role in p, or "" if they are not a member.
func RoleOf(p store.Project, userID string) string {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// NormalizeTags trims and lower-cases tags, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func memberInfo(m store.Member, u store.User) model.MemberInfo {
	return model.MemberInfo{UserID: m.UserID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Role: m.Role, JoinedAt: m.JoinedAt}
}

// sortedCounts orders counts by count descending, then key.
func sortedCounts(counts map[string]int) []model.Count {
	out := make([]model.Count, 0, len(counts))
	for k, v := range counts {
		out = append(out, model.Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
