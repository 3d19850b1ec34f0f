package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sparkpad/internal/project/model"
	"sparkpad/internal/project/service"
	"sparkpad/middleware"
	"sparkpad/pkg/httpx"
)

type ProjectHandler struct {
	Service *service.ProjectService
}

func NewProjectHandler(service *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{Service: service}
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProjectRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "create project", err)
		return
	}

	p, err := h.Service.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "create project", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProjectHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projects, err := h.Service.List(r.Context(), middleware.UserID(r.Context()), model.ListQuery{
		Q:      q.Get("q"),
		Status: q.Get("status"),
		Tag:    q.Get("tag"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	})
	if err != nil {
		httpx.Error(w, "list projects", err)
		return
	}
	httpx.JSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Get(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, "get project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProjectRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "update project", err)
		return
	}

	p, err := h.Service.Update(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "update project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context())); err != nil {
		httpx.Error(w, "delete project", err)
		return
	}
	httpx.Text(w, "Project deleted successfully")
}

func (h *ProjectHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.Members(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, "list members", err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req model.AddMemberRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "add member", err)
		return
	}

	m, err := h.Service.AddMember(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "add member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.RemoveMember(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Error(w, "remove member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Dashboard(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, "dashboard stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *ProjectHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, "project stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
