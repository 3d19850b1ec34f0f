package handler

import (
	"net/http"

	"sparkpad/internal/user/model"
	"sparkpad/internal/user/service"
	"sparkpad/middleware"
	"sparkpad/pkg/httpx"
)

type UserHandler struct {
	Service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "register", err)
		return
	}

	resp, err := h.Service.Register(r.Context(), req)
	if err != nil {
		httpx.Error(w, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "login", err)
		return
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		httpx.Error(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.Me(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, "get current user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "update profile", err)
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httpx.Error(w, "search users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}
