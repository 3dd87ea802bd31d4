package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/middleware"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/services"
)

// V1Handler handles all V1 API routes
type V1Handler struct {
	identityService *services.IdentityService
	ticketService   *services.TicketService
	missionService  *services.MissionService
	invoiceService  *services.InvoiceService
}

// NewV1Handler creates a new V1 handler
func NewV1Handler(db *gorm.DB) *V1Handler {
	notifications := services.NewNotificationService(db)
	return &V1Handler{
		identityService: services.NewIdentityService(db),
		ticketService:   services.NewTicketService(db, notifications),
		missionService:  services.NewMissionService(db, notifications),
		invoiceService:  services.NewInvoiceService(db, notifications),
	}
}

// SetupV1Routes mounts every workflow route on the router. The auth
// middleware runs before each handler; identity resolution runs per request
// inside resolveActor.
func (h *V1Handler) SetupV1Routes(r chi.Router) {
	// Onboarding
	r.Post("/managers", h.CreateManager)
	r.Post("/companies", h.CreateCompany)
	r.Post("/technicians", h.CreateTechnician)
	r.Post("/occupants", h.CreateOccupant)
	r.Get("/me", h.Whoami)

	// Tickets
	r.Post("/tickets", h.CreateTicket)
	r.Get("/tickets", h.ListTickets)
	r.Get("/tickets/{ticketId}", h.GetTicket)
	r.Get("/tickets/{ticketId}/history", h.GetTicketHistory)
	r.Post("/tickets/{ticketId}/validate", h.ValidateTicket)
	r.Post("/tickets/{ticketId}/diffuse", h.DiffuseTicket)
	r.Post("/tickets/{ticketId}/accept", h.AcceptTicket)
	r.Post("/tickets/{ticketId}/reject", h.RejectTicket)

	// Missions
	r.Get("/missions", h.ListMissions)
	r.Get("/missions/{missionId}", h.GetMission)
	r.Post("/missions/{missionId}/assign", h.AssignTechnician)
	r.Post("/missions/{missionId}/start", h.StartMission)
	r.Post("/missions/{missionId}/complete", h.CompleteMission)
	r.Post("/missions/{missionId}/validate", h.ValidateMission)
	r.Post("/missions/{missionId}/report", h.ReportMission)
	r.Post("/missions/{missionId}/invoice", h.GenerateInvoice)

	// Invoices
	r.Get("/invoices", h.ListInvoices)
	r.Get("/invoices/{invoiceId}", h.GetInvoice)
	r.Get("/invoices/{invoiceId}/lines", h.ListInvoiceLines)
	r.Post("/invoices/{invoiceId}/lines", h.AddInvoiceLine)
	r.Put("/invoices/{invoiceId}/lines/{lineId}", h.EditInvoiceLine)
	r.Delete("/invoices/{invoiceId}/lines/{lineId}", h.RemoveInvoiceLine)
	r.Post("/invoices/{invoiceId}/send", h.SendInvoice)
	r.Post("/invoices/{invoiceId}/pay", h.PayInvoice)
	r.Post("/invoices/{invoiceId}/reject", h.RejectInvoice)
}

// resolveActor maps the authenticated principal to its tenant identity
func (h *V1Handler) resolveActor(r *http.Request) (models.ResolvedIdentity, error) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		return models.ResolvedIdentity{}, apierrors.UnresolvedIdentity("")
	}
	actor, err := h.identityService.Resolve(principal.PrincipalIdentifier())
	if err != nil {
		return models.ResolvedIdentity{}, err
	}
	return *actor, nil
}

// decodeJSONBody parses the request body into dst
func decodeJSONBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apierrors.Validation("request body is required")
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apierrors.Validationf("malformed request body: %v", err)
	}
	return nil
}
