package handlers

import (
	"net/http"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/shared/utils"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// CreateManager onboards a property manager
func (h *V1Handler) CreateManager(w http.ResponseWriter, r *http.Request) {
	var req models.CreateManagerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	manager, err := h.identityService.CreateManager(&req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, manager)
}

// CreateCompany onboards a service company
func (h *V1Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCompanyRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	company, err := h.identityService.CreateCompany(&req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, company)
}

// CreateTechnician onboards a technician under a service company
func (h *V1Handler) CreateTechnician(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTechnicianRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	technician, err := h.identityService.CreateTechnician(&req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, technician)
}

// CreateOccupant onboards an occupant under a property manager
func (h *V1Handler) CreateOccupant(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOccupantRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	occupant, err := h.identityService.CreateOccupant(&req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, occupant)
}

// Whoami returns the resolved tenant identity of the caller
func (h *V1Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, actor)
}
