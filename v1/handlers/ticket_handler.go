package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/shared/utils"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// CreateTicket reports a new maintenance request
func (h *V1Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.CreateTicketRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ticket, err := h.ticketService.Create(actor, &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, ticket)
}

// ListTickets returns the tickets visible to the caller
func (h *V1Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	tickets, err := h.ticketService.List(actor)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, tickets)
}

// GetTicket returns one ticket
func (h *V1Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ticket, err := h.ticketService.Get(actor, chi.URLParam(r, "ticketId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, ticket)
}

// GetTicketHistory returns the transition log of a ticket
func (h *V1Handler) GetTicketHistory(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	history, err := h.ticketService.History(actor, chi.URLParam(r, "ticketId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, history)
}

// ValidateTicket triages a new ticket
func (h *V1Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.ValidateTicketRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ticket, err := h.ticketService.Validate(actor, chi.URLParam(r, "ticketId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, ticket)
}

// DiffuseTicket publishes a validated ticket to service companies
func (h *V1Handler) DiffuseTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	req := models.DiffuseTicketRequest{}
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			utils.RespondWithError(w, err)
			return
		}
	}

	ticket, err := h.ticketService.Diffuse(actor, chi.URLParam(r, "ticketId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, ticket)
}

// AcceptTicket claims a diffused ticket and creates its mission
func (h *V1Handler) AcceptTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	req := models.AcceptTicketRequest{}
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			utils.RespondWithError(w, err)
			return
		}
	}

	mission, err := h.ticketService.Accept(actor, chi.URLParam(r, "ticketId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, mission)
}

// RejectTicket refuses a ticket before diffusion
func (h *V1Handler) RejectTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.RejectTicketRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ticket, err := h.ticketService.Reject(actor, chi.URLParam(r, "ticketId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, ticket)
}
