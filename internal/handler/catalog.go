package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/service"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/response"
)

type CatalogHandler struct {
	service   *service.CatalogService
	validator *validator.Validate
}

func NewCatalogHandler(service *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *CatalogHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var request domain.AddBookRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		writeError(w, customError.WrapValidation(err.Error(), nil))
		return
	}

	book, err := h.service.AddBook(r.Context(), actor, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, book)
}

func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookID, err := uuid.Parse(mux.Vars(r)["bookId"])
	if err != nil {
		response.BadRequest(w, "invalid book id", err)
		return
	}

	var request domain.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		writeError(w, customError.WrapValidation(err.Error(), nil))
		return
	}

	counts, err := h.service.AdjustStock(r.Context(), actor, bookID, request.NewTotal)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, counts)
}

func (h *CatalogHandler) ArchiveBook(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookID, err := uuid.Parse(mux.Vars(r)["bookId"])
	if err != nil {
		response.BadRequest(w, "invalid book id", err)
		return
	}

	if err := h.service.ArchiveBook(r.Context(), actor, bookID); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.BookStatusArchived})
}

func (h *CatalogHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(mux.Vars(r)["bookId"])
	if err != nil {
		response.BadRequest(w, "invalid book id", err)
		return
	}

	listing, err := h.service.GetBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, listing)
}

func (h *CatalogHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	filter := domain.BookFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}

	listings, err := h.service.ListBooks(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, listings)
}
