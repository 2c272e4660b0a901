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

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var request struct {
		BookID uuid.UUID `json:"book_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		writeError(w, customError.WrapValidation(err.Error(), nil))
		return
	}

	loan, err := h.service.DirectBorrow(r.Context(), actor, request.BookID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, loan)
}

func (h *LoanHandler) ApprovePending(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	loan, err := h.service.ApprovePending(r.Context(), actor, loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) ProcessReturn(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	var request domain.ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		writeError(w, customError.WrapValidation(err.Error(), nil))
		return
	}

	result, err := h.service.ProcessReturn(r.Context(), actor, loanID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *LoanHandler) ProcessLoss(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "invalid loan id", err)
		return
	}

	result, err := h.service.ProcessLoss(r.Context(), actor, loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := domain.LoanFilter{
		Status: r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "invalid user id", err)
			return
		}
		filter.UserID = userID
	}

	loans, err := h.service.ListLoans(r.Context(), actor, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, loans)
}
