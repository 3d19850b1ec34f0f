package service

import (
	"sort"
	"strings"

	"sparkpad/internal/project/model"
	"sparkpad/pkg/apperr"
	"sparkpad/store"
)

// FilterAndSort applies a list query to projects. The input is not
// modified.
func FilterAndSort(projects []store.Project, q model.ListQuery) ([]store.Project, error) {
	sortBy := q.Sort
	if sortBy == "" {
		sortBy = "updated"
	}
	if sortBy != "name" && sortBy != "created" && sortBy != "updated" {
		return nil, apperr.New(apperr.ErrInvalid, "sort must be one of: name, created, updated")
	}
	order := q.Order
	if order == "" {
		order = "desc"
		if sortBy == "name" {
			order = "asc"
		}
	}
	if order != "asc" && order != "desc" {
		return nil, apperr.New(apperr.ErrInvalid, "order must be asc or desc")
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	tag := strings.ToLower(strings.TrimSpace(q.Tag))
	out := make([]store.Project, 0, len(projects))
	for _, p := range projects {
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if tag != "" && !hasTag(p.Tags, tag) {
			continue
		}
		if needle != "" && !matches(p, needle) {
			continue
		}
		out = append(out, p)
	}

	less := func(a, b store.Project) int {
		switch sortBy {
		case "name":
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "created":
			return a.CreatedAt.Compare(b.CreatedAt)
		default:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := less(out[i], out[j])
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if order == "desc" {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

func matches(p store.Project, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(t, needle) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
