package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/shared/utils"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// ListMissions returns the missions visible to the caller
func (h *V1Handler) ListMissions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	missions, err := h.missionService.List(actor)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, missions)
}

// GetMission returns one mission
func (h *V1Handler) GetMission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	mission, err := h.missionService.Get(actor, chi.URLParam(r, "missionId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, mission)
}

// AssignTechnician puts a technician on a pending mission
func (h *V1Handler) AssignTechnician(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.AssignTechnicianRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	mission, err := h.missionService.Assign(actor, chi.URLParam(r, "missionId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, mission)
}

// StartMission moves an assigned mission to in_progress
func (h *V1Handler) StartMission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	mission, err := h.missionService.Start(actor, chi.URLParam(r, "missionId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, mission)
}

// CompleteMission finishes field work and locks the parent ticket
func (h *V1Handler) CompleteMission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	req := models.CompleteMissionRequest{}
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			utils.RespondWithError(w, err)
			return
		}
	}

	mission, err := h.missionService.Complete(actor, chi.URLParam(r, "missionId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, mission)
}

// ValidateMission closes a completed mission
func (h *V1Handler) ValidateMission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	mission, err := h.missionService.Validate(actor, chi.URLParam(r, "missionId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, mission)
}

// ReportMission records an execution issue without a status change
func (h *V1Handler) ReportMission(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.ReportMissionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	if err := h.missionService.Report(actor, chi.URLParam(r, "missionId"), &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusAccepted, map[string]string{"status": "reported"})
}
