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

type ReservationHandler struct {
	service   *service.ReservationService
	validator *validator.Validate
}

func NewReservationHandler(service *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{
		service:   service,
		validator: newValidator(),
	}
}

func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var request domain.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		writeError(w, customError.WrapValidation(err.Error(), nil))
		return
	}

	reservation, err := h.service.Reserve(r.Context(), actor, request.BookID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, reservation)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	reservationID, err := uuid.Parse(mux.Vars(r)["reservationId"])
	if err != nil {
		response.BadRequest(w, "invalid reservation id", err)
		return
	}

	if err := h.service.Cancel(r.Context(), actor, reservationID); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.ReservationStatusCancelled})
}

func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	reservationID, err := uuid.Parse(mux.Vars(r)["reservationId"])
	if err != nil {
		response.BadRequest(w, "invalid reservation id", err)
		return
	}

	result, err := h.service.Approve(r.Context(), actor, reservationID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	reservationID, err := uuid.Parse(mux.Vars(r)["reservationId"])
	if err != nil {
		response.BadRequest(w, "invalid reservation id", err)
		return
	}

	if err := h.service.Reject(r.Context(), actor, reservationID); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.ReservationStatusCancelled})
}

func (h *ReservationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	userID, err := uuid.Parse(mux.Vars(r)["userId"])
	if err != nil {
		response.BadRequest(w, "invalid user id", err)
		return
	}

	reservations, err := h.service.ListByUser(r.Context(), actor, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, reservations)
}
