package service

import (
	"context"
	"time"

	"sparkpad/internal/project/model"
	"sparkpad/store"
)

// Dashboard aggregates the caller's projects for the statistics panel.
func (s *ProjectService) Dashboard(ctx context.Context, userID string) (model.DashboardStats, error) {
	projects, err := s.Repo.ListForUser(ctx, userID)
	if err != nil {
		return model.DashboardStats{}, err
	}
	return Dashboard(projects, userID, s.now()), nil
}

// Dashboard is the pure aggregation behind ProjectService.Dashboard.
func Dashboard(projects []store.Project, userID string, now time.Time) model.DashboardStats {
	stats := model.DashboardStats{
		TotalProjects: len(projects),
		ByStatus: map[string]int{
			model.StatusActive:    0,
			model.StatusOnHold:    0,
			model.StatusCompleted: 0,
			model.StatusArchived:  0,
		},
	}
	tags := map[string]int{}
	collaborators := map[string]bool{}
	weekAgo := now.Add(-7 * 24 * time.Hour)

	for _, p := range projects {
		stats.ByStatus[p.Status]++
		if p.OwnerID == userID {
			stats.OwnedProjects++
		}
		if p.UpdatedAt.After(weekAgo) {
			stats.UpdatedLastWeek++
		}
		for _, t := range p.Tags {
			tags[t]++
		}
		for _, m := range p.Members {
			if m.UserID != userID {
				collaborators[m.UserID] = true
			}
		}
	}
	stats.Collaborators = len(collaborators)
	stats.TopTags = sortedCounts(tags)
	return stats
}

// Stats aggregates activity inside one project. Any member may read it.
func (s *ProjectService) Stats(ctx context.Context, projectID, userID string) (model.ProjectStats, error) {
	view, err := s.Authorize(ctx, projectID, userID, model.RoleViewer)
	if err != nil {
		return model.ProjectStats{}, err
	}

	messages, err := store.CollectionOf[store.ChatMessage](s.Store, store.Disk, s.Store.Keys.Chat(projectID)).Load(ctx)
	if err != nil {
		return model.ProjectStats{}, err
	}
	docs, err := store.CollectionOf[store.Document](s.Store, store.Disk, s.Store.Keys.Documents(projectID)).Load(ctx)
	if err != nil {
		return model.ProjectStats{}, err
	}
	items, err := store.CollectionOf[store.ResearchItem](s.Store, store.Disk, s.Store.Keys.Research(projectID)).Load(ctx)
	if err != nil {
		return model.ProjectStats{}, err
	}
	return ProjectStats(view.Project, messages, docs, items), nil
}

// ProjectStats is the pure aggregation behind ProjectService.Stats.
func ProjectStats(p store.Project, messages []store.ChatMessage, docs []store.Document, items []store.ResearchItem) model.ProjectStats {
	stats := model.ProjectStats{
		ProjectID:     p.ID,
		Members:       len(p.Members),
		Messages:      len(messages),
		Documents:     len(docs),
		ResearchItems: len(items),
		LastActivity:  p.UpdatedAt,
	}
	touch := func(t time.Time) {
		if t.After(stats.LastActivity) {
			stats.LastActivity = t
		}
	}

	authors := map[string]int{}
	names := map[string]string{}
	for _, m := range messages {
		if m.IsAI {
			stats.AIMessages++
		} else {
			authors[m.AuthorID]++
			names[m.AuthorID] = m.AuthorName
		}
		touch(m.CreatedAt)
	}
	for _, d := range docs {
		stats.Rows += len(d.Rows)
		touch(d.UpdatedAt)
	}
	tags := map[string]int{}
	for _, it := range items {
		stats.ResearchComments += len(it.Comments)
		for _, t := range it.Tags {
			tags[t]++
		}
		touch(it.UpdatedAt)
	}
	byAuthor := sortedCounts(authors)
	stats.MessagesByAuthor = make([]model.AuthorCount, 0, len(byAuthor))
	for _, c := range byAuthor {
		stats.MessagesByAuthor = append(stats.MessagesByAuthor, model.AuthorCount{UserID: c.Key, Name: names[c.Key], Count: c.Count})
	}
	stats.ResearchTags = sortedCounts(tags)
	return stats
}
