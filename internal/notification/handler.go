package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sparkpad/internal/notification/model"
	"sparkpad/internal/notification/service"
	"sparkpad/middleware"
	"sparkpad/pkg/apperr"
	"sparkpad/pkg/httpx"
)

type NotificationHandler struct {
	Service *service.NotificationService
}

func NewNotificationHandler(service *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	var f model.ListFilter
	f.UnreadOnly = r.URL.Query().Get("unread") == "true"
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			httpx.Error(w, "list notifications", apperr.New(apperr.ErrInvalid, "since must be an RFC3339 timestamp"))
			return
		}
		f.Since = since
	}

	items, unread, err := h.Service.List(r.Context(), middleware.UserID(r.Context()), f)
	if err != nil {
		httpx.Error(w, "list notifications", err)
		return
	}
	w.Header().Set("X-Unread-Count", strconv.Itoa(unread))
	httpx.JSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.MarkRead(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "notificationID")); err != nil {
		httpx.Error(w, "mark notification read", err)
		return
	}
	httpx.Text(w, "Notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.MarkAllRead(r.Context(), middleware.UserID(r.Context())); err != nil {
		httpx.Error(w, "mark all notifications read", err)
		return
	}
	httpx.Text(w, "All notifications marked as read")
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "notificationID")); err != nil {
		httpx.Error(w, "delete notification", err)
		return
	}
	httpx.Text(w, "Notification deleted")
}
