package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/segyhp/library-engine/internal/service"
	"github.com/segyhp/library-engine/pkg/response"
)

type ClearanceHandler struct {
	service *service.ClearanceService
}

func NewClearanceHandler(service *service.ClearanceService) *ClearanceHandler {
	return &ClearanceHandler{service: service}
}

func (h *ClearanceHandler) GetClearance(w http.ResponseWriter, r *http.Request) {
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

	// Staff querying another borrower pass the borrower's role for the
	// limit display; defaults to the actor's own role.
	role := r.URL.Query().Get("role")
	if role == "" {
		role = actor.Role
	}

	clearance, err := h.service.GetClearance(r.Context(), actor, userID, role)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, clearance)
}
