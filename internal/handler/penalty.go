package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/segyhp/library-engine/internal/domain"
	"github.com/segyhp/library-engine/internal/service"
	"github.com/segyhp/library-engine/pkg/response"
)

type PenaltyHandler struct {
	service *service.PenaltyService
}

func NewPenaltyHandler(service *service.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{service: service}
}

func (h *PenaltyHandler) Collect(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	penaltyID, err := uuid.Parse(mux.Vars(r)["penaltyId"])
	if err != nil {
		response.BadRequest(w, "invalid penalty id", err)
		return
	}

	penalty, err := h.service.Collect(r.Context(), actor, penaltyID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, penalty)
}

func (h *PenaltyHandler) Waive(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	penaltyID, err := uuid.Parse(mux.Vars(r)["penaltyId"])
	if err != nil {
		response.BadRequest(w, "invalid penalty id", err)
		return
	}

	penalty, err := h.service.Waive(r.Context(), actor, penaltyID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, penalty)
}

func (h *PenaltyHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	filter := domain.PenaltyFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}

	penalties, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, penalties)
}
