package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sparkpad/internal/document/model"
	"sparkpad/internal/document/service"
	"sparkpad/middleware"
	"sparkpad/pkg/httpx"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDocRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "create document", err)
		return
	}
	doc, err := h.Service.CreateDocument(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), req)
	if err != nil {
		httpx.Error(w, "create document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Service.GetDocuments(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()))
	if err != nil {
		httpx.Error(w, "list documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.GetDocument(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "docID"))
	if err != nil {
		httpx.Error(w, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateDocRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "rename document", err)
		return
	}
	doc, err := h.Service.UpdateTitle(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "docID"), req)
	if err != nil {
		httpx.Error(w, "rename document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDocument(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "docID")); err != nil {
		httpx.Error(w, "delete document", err)
		return
	}
	httpx.Text(w, "Document deleted successfully")
}

func (h *DocumentHandler) InsertRow(w http.ResponseWriter, r *http.Request) {
	var req model.InsertRowRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "insert row", err)
		return
	}
	doc, err := h.Service.InsertRow(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "docID"), req)
	if err != nil {
		httpx.Error(w, "insert row", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateRowRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "update row", err)
		return
	}
	doc, err := h.Service.UpdateRow(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "docID"), chi.URLParam(r, "rowID"), req)
	if err != nil {
		httpx.Error(w, "update row", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.DeleteRow(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "docID"), chi.URLParam(r, "rowID"))
	if err != nil {
		httpx.Error(w, "delete row", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) MoveRow(w http.ResponseWriter, r *http.Request) {
	var req model.MoveRowRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, "move row", err)
		return
	}
	doc, err := h.Service.MoveRow(r.Context(), chi.URLParam(r, "projectID"), middleware.UserID(r.Context()), chi.URLParam(r, "docID"), chi.URLParam(r, "rowID"), req)
	if err != nil {
		httpx.Error(w, "move row", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
