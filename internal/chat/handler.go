package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sparkpad/internal/chat/model"
	"sparkpad/internal/chat/service"
	"sparkpad/middleware"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/httpx"
)

type ChatHandler struct {
	Service *service.ChatService
}

func NewChatHandler(service *service.ChatService) *ChatHandler {
	return &ChatHandler{Service: service}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	var q model.ListQuery
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			httpx.Error(w, "list chat", apperr.New(apperr.ErrInvalid, "since must be an RFC3339 timestamp"))
			return
		}
		q.Since = since
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.Error(w, "list chat", apperr.New(apperr.ErrInvalid, "limit must be a positive integer"))
			return
		}
		q.Limit = limit
	}

	items, err := h.Service.List(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), q)
	if err != nil {
		httpx.Error(w, "list chat", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req model.PostMessageRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "post chat message", err)
		return
	}
	msg, err := h.Service.Post(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "post chat message", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) AskAI(w http.ResponseWriter, r *http.Request) {
	var req model.AskAIRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "ask AI", err)
		return
	}
	msg, err := h.Service.AskAI(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "ask AI", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Delete(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "messageID"))
	if err != nil {
		httpx.Error(w, "delete chat message", err)
		return
	}
	httpx.Text(w, "Message deleted")
}
