package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/shared/utils"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// GenerateInvoice drafts an invoice from a validated mission
func (h *V1Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	req := models.GenerateInvoiceRequest{}
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			utils.RespondWithError(w, err)
			return
		}
	}

	invoice, err := h.invoiceService.GenerateFromMission(actor, chi.URLParam(r, "missionId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, invoice)
}

// ListInvoices returns the invoices visible to the caller
func (h *V1Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoices, err := h.invoiceService.List(actor)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, invoices)
}

// GetInvoice returns one invoice
func (h *V1Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoice, err := h.invoiceService.Get(actor, chi.URLParam(r, "invoiceId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, invoice)
}

// ListInvoiceLines returns the ordered line set of an invoice
func (h *V1Handler) ListInvoiceLines(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	lines, err := h.invoiceService.Lines(actor, chi.URLParam(r, "invoiceId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, lines)
}

// AddInvoiceLine appends a line to a draft invoice
func (h *V1Handler) AddInvoiceLine(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.InvoiceLineRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoice, err := h.invoiceService.AddLine(actor, chi.URLParam(r, "invoiceId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, invoice)
}

// EditInvoiceLine updates a line of a draft invoice
func (h *V1Handler) EditInvoiceLine(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.InvoiceLineRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoice, err := h.invoiceService.EditLine(actor,
		chi.URLParam(r, "invoiceId"), chi.URLParam(r, "lineId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, invoice)
}

// RemoveInvoiceLine deletes a line from a draft invoice
func (h *V1Handler) RemoveInvoiceLine(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoice, err := h.invoiceService.RemoveLine(actor,
		chi.URLParam(r, "invoiceId"), chi.URLParam(r, "lineId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, invoice)
}

// SendInvoice freezes the line set and submits the invoice
func (h *V1Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoice, err := h.invoiceService.Send(actor, chi.URLParam(r, "invoiceId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, invoice)
}

// PayInvoice settles a sent invoice as paid
func (h *V1Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoice, err := h.invoiceService.MarkPaid(actor, chi.URLParam(r, "invoiceId"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, invoice)
}

// RejectInvoice refuses a sent invoice with a reason
func (h *V1Handler) RejectInvoice(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	var req models.RejectInvoiceRequest
	if err := decodeJSONBody(r, &req); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	invoice, err := h.invoiceService.Reject(actor, chi.URLParam(r, "invoiceId"), &req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, invoice)
}
