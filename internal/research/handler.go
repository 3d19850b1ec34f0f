package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sparkpad/internal/research/model"
	"sparkpad/internal/research/service"
	"sparkpad/middleware"
	"sparkpad/pkg/httpx"
)

type ResearchHandler struct {
	Service *service.ResearchService
}

func NewResearchHandler(service *service.ResearchService) *ResearchHandler {
	return &ResearchHandler{Service: service}
}

func (h *ResearchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateItemRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "create research item", err)
		return
	}
	item, err := h.Service.Create(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "create research item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *ResearchHandler) List(w http.ResponseWriter, r *http.Request) {
	q := model.ListQuery{Tag: r.URL.Query().Get("tag"), Q: r.URL.Query().Get("q")}
	items, err := h.Service.List(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), q)
	if err != nil {
		httpx.Error(w, "list research", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *ResearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Error(w, "get research item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *ResearchHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateItemRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "update research item", err)
		return
	}
	item, err := h.Service.Update(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID"), req)
	if err != nil {
		httpx.Error(w, "update research item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *ResearchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID")); err != nil {
		httpx.Error(w, "delete research item", err)
		return
	}
	httpx.Text(w, "Research item deleted")
}

func (h *ResearchHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Service.Tags(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, "list research tags", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tags)
}

func (h *ResearchHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req model.AddTagRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "add tag", err)
		return
	}
	item, err := h.Service.AddTag(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID"), req)
	if err != nil {
		httpx.Error(w, "add tag", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *ResearchHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.RemoveTag(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID"), chi.URLParam(r, "tag"))
	if err != nil {
		httpx.Error(w, "remove tag", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *ResearchHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req model.CommentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "add comment", err)
		return
	}
	comment, err := h.Service.AddComment(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID"), req)
	if err != nil {
		httpx.Error(w, "add comment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}

func (h *ResearchHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	_, err := h.Service.DeleteComment(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID"), chi.URLParam(r, "commentID"))
	if err != nil {
		httpx.Error(w, "delete comment", err)
		return
	}
	httpx.Text(w, "Comment deleted")
}

func (h *ResearchHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Summarize(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Error(w, "summarize research item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}
