package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// TicketService owns the ticket state machine:
// new → validated → diffused → accepted → locked, with a rejected terminal
// reachable from new and validated. Every transition is a single conditional
// update guarded on the current status, committed in one transaction with its
// dependent inserts.
type TicketService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewTicketService creates a new ticket service
func NewTicketService(db *gorm.DB, notifications *NotificationService) *TicketService {
	return &TicketService{db: db, notifications: notifications}
}

// Create reports a new maintenance request for the calling occupant. The
// ticket currency is inherited from the owning manager and never changes.
func (s *TicketService) Create(actor models.ResolvedIdentity, req *models.CreateTicketRequest) (*models.Ticket, error) {
	if actor.Role != models.RoleOccupant {
		return nil, apierrors.Ownership("ticket creation (occupant only)")
	}
	if !req.Category.IsValid() {
		return nil, apierrors.Validationf("unknown category %q", req.Category)
	}
	if req.SubCategory != "" && !req.Category.AllowsSubCategory(req.SubCategory) {
		return nil, apierrors.Validationf("sub-category %q is not permitted for category %q", req.SubCategory, req.Category)
	}

	var ticket models.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var occupant models.Occupant
		if err := tx.Where("occupant_id = ?", actor.EntityID).First(&occupant).Error; err != nil {
			return apierrors.Constraintf("occupant %s does not exist", actor.EntityID)
		}
		var manager models.PropertyManager
		if err := tx.Where("manager_id = ?", occupant.ManagerID).First(&manager).Error; err != nil {
			return apierrors.Constraintf("property manager %s does not exist", occupant.ManagerID)
		}

		ticket = models.Ticket{
			TicketID:      "tkt_" + uuid.New().String(),
			Category:      req.Category,
			SubCategory:   req.SubCategory,
			Room:          req.Room,
			Description:   req.Description,
			Priority:      models.PriorityNormal,
			DiffusionMode: models.DiffusionGeneral,
			Currency:      manager.Currency,
			ManagerID:     manager.ManagerID,
			OccupantID:    occupant.OccupantID,
			HousingUnit:   occupant.HousingUnit,
			Status:        models.TicketStatusNew,
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		if err := recordHistoryTx(tx, models.EntityTypeTicket, ticket.TicketID, "", string(models.TicketStatusNew), actor.EntityID, ""); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, []string{manager.ManagerID},
			models.EntityTypeTicket, ticket.TicketID,
			"New maintenance request",
			fmt.Sprintf("Ticket %s reported in unit %s (%s)", ticket.TicketID, ticket.HousingUnit, ticket.Category))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Ticket created", "ticketId", ticket.TicketID, "managerId", ticket.ManagerID)
	return &ticket, nil
}

// Validate moves a new ticket to validated, fixing its sub-category, priority
// and diffusion mode. Restricted mode requires at least one designated company
// linked to the owning manager.
func (s *TicketService) Validate(actor models.ResolvedIdentity, ticketID string, req *models.ValidateTicketRequest) (*models.Ticket, error) {
	if !req.Priority.IsValid() {
		return nil, apierrors.Validationf("unknown priority %q", req.Priority)
	}
	if !req.DiffusionMode.IsValid() {
		return nil, apierrors.Validationf("unknown diffusion mode %q", req.DiffusionMode)
	}
	if req.DiffusionMode == models.DiffusionRestricted && len(req.CompanyIDs) == 0 {
		return nil, apierrors.Validation("restricted diffusion requires at least one designated company")
	}

	var ticket models.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadTicketTx(tx, ticketID, &ticket); err != nil {
			return err
		}
		if err := AuthorizeTicketWrite(actor, &ticket); err != nil {
			return err
		}
		if !ticket.Category.AllowsSubCategory(req.SubCategory) {
			return apierrors.Validationf("sub-category %q is not permitted for category %q", req.SubCategory, ticket.Category)
		}

		if req.DiffusionMode == models.DiffusionRestricted {
			for _, companyID := range req.CompanyIDs {
				var count int64
				tx.Model(&models.ManagerCompanyLink{}).
					Where("manager_id = ? AND company_id = ?", ticket.ManagerID, companyID).
					Count(&count)
				if count == 0 {
					return apierrors.Constraintf("company %s is not linked to manager %s", companyID, ticket.ManagerID)
				}
			}
		}

		result := tx.Model(&models.Ticket{}).
			Where("ticket_id = ? AND status = ?", ticketID, models.TicketStatusNew).
			Updates(map[string]interface{}{
				"status":         models.TicketStatusValidated,
				"sub_category":   req.SubCategory,
				"priority":       req.Priority,
				"diffusion_mode": req.DiffusionMode,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to validate ticket: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("ticket", "validate", string(ticket.Status))
		}

		if req.DiffusionMode == models.DiffusionRestricted {
			for _, companyID := range req.CompanyIDs {
				access := models.TicketCompanyAccess{
					AccessID:  "acc_" + uuid.New().String(),
					TicketID:  ticketID,
					CompanyID: companyID,
				}
				if err := tx.Create(&access).Error; err != nil {
					return fmt.Errorf("failed to designate company: %w", err)
				}
			}
		}

		if err := recordHistoryTx(tx, models.EntityTypeTicket, ticketID,
			string(models.TicketStatusNew), string(models.TicketStatusValidated), actor.EntityID, ""); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, []string{ticket.OccupantID},
			models.EntityTypeTicket, ticketID,
			"Request validated",
			fmt.Sprintf("Ticket %s was validated by the property manager", ticketID))
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ticketID)
}

// Diffuse publishes a validated ticket to service companies according to its
// diffusion mode. An optional mode override applies before publication.
func (s *TicketService) Diffuse(actor models.ResolvedIdentity, ticketID string, req *models.DiffuseTicketRequest) (*models.Ticket, error) {
	if req.Mode != "" && !req.Mode.IsValid() {
		return nil, apierrors.Validationf("unknown diffusion mode %q", req.Mode)
	}

	var ticket models.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadTicketTx(tx, ticketID, &ticket); err != nil {
			return err
		}
		if err := AuthorizeTicketWrite(actor, &ticket); err != nil {
			return err
		}

		mode := ticket.DiffusionMode
		if req.Mode != "" {
			mode = req.Mode
		}

		recipients, err := diffusionRecipients(tx, &ticket, mode)
		if err != nil {
			return err
		}

		result := tx.Model(&models.Ticket{}).
			Where("ticket_id = ? AND status = ?", ticketID, models.TicketStatusValidated).
			Updates(map[string]interface{}{
				"status":         models.TicketStatusDiffused,
				"diffusion_mode": mode,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to diffuse ticket: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("ticket", "diffuse", string(ticket.Status))
		}

		if err := recordHistoryTx(tx, models.EntityTypeTicket, ticketID,
			string(models.TicketStatusValidated), string(models.TicketStatusDiffused), actor.EntityID, string(mode)); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, recipients,
			models.EntityTypeTicket, ticketID,
			"Work available",
			fmt.Sprintf("Ticket %s (%s/%s) is open for acceptance", ticketID, ticket.Category, ticket.SubCategory))
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ticketID)
}

func diffusionRecipients(tx *gorm.DB, ticket *models.Ticket, mode models.DiffusionMode) ([]string, error) {
	var companyIDs []string
	switch mode {
	case models.DiffusionGeneral:
		if err := tx.Model(&models.ManagerCompanyLink{}).
			Where("manager_id = ?", ticket.ManagerID).
			Pluck("company_id", &companyIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to list linked companies: %w", err)
		}
	case models.DiffusionRestricted:
		if err := tx.Model(&models.TicketCompanyAccess{}).
			Where("ticket_id = ?", ticket.TicketID).
			Pluck("company_id", &companyIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to list designated companies: %w", err)
		}
		if len(companyIDs) == 0 {
			return nil, apierrors.Validation("restricted diffusion requires designated companies")
		}
	}
	return companyIDs, nil
}

// Accept claims a diffused ticket for a service company and creates the
// corresponding mission in the same transaction. First writer wins: the
// transition is a conditional update and a zero-row match means another
// company already consumed it.
func (s *TicketService) Accept(actor models.ResolvedIdentity, ticketID string, req *models.AcceptTicketRequest) (*models.Mission, error) {
	companyID := req.CompanyID
	if companyID == "" {
		// An admin has no company of its own to fall back to
		if actor.IsAdmin() {
			return nil, apierrors.Validation("accepting on behalf requires a companyId")
		}
		companyID = actor.EntityID
	}
	if actor.Role == models.RoleCompany && companyID != actor.EntityID {
		return nil, apierrors.Ownership("company " + companyID)
	}
	if actor.Role != models.RoleCompany && actor.Role != models.RoleAdmin {
		return nil, apierrors.Ownership("ticket acceptance (company only)")
	}

	var mission models.Mission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := loadTicketTx(tx, ticketID, &ticket); err != nil {
			return err
		}

		if actor.IsAdmin() {
			var count int64
			tx.Model(&models.ServiceCompany{}).Where("company_id = ?", companyID).Count(&count)
			if count == 0 {
				return apierrors.Constraintf("service company %s does not exist", companyID)
			}
		} else if !companyInDiffusionScope(tx, companyID, &ticket) {
			// Eligibility only; the guarded update below decides the race,
			// so a linked company losing it gets AlreadyAccepted
			return apierrors.Ownership("ticket " + ticketID)
		}

		result := tx.Model(&models.Ticket{}).
			Where("ticket_id = ? AND status = ?", ticketID, models.TicketStatusDiffused).
			Update("status", models.TicketStatusAccepted)
		if result.Error != nil {
			return fmt.Errorf("failed to accept ticket: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// The guarded update matched nothing: either another company won
			// the race or the ticket was never diffused
			var current models.Ticket
			if err := tx.Where("ticket_id = ?", ticketID).First(&current).Error; err != nil {
				return apierrors.NotFound("ticket " + ticketID)
			}
			if current.Status == models.TicketStatusAccepted || current.Status == models.TicketStatusLocked {
				return apierrors.AlreadyAccepted(ticketID)
			}
			return apierrors.InvalidStateTransition("ticket", "accept", string(current.Status))
		}

		mission = models.Mission{
			MissionID: "msn_" + uuid.New().String(),
			TicketID:  ticketID,
			CompanyID: companyID,
			Currency:  ticket.Currency,
			Status:    models.MissionStatusPending,
		}
		if err := tx.Create(&mission).Error; err != nil {
			return fmt.Errorf("failed to create mission: %w", err)
		}

		if err := recordHistoryTx(tx, models.EntityTypeTicket, ticketID,
			string(models.TicketStatusDiffused), string(models.TicketStatusAccepted), companyID, ""); err != nil {
			return err
		}
		if err := recordHistoryTx(tx, models.EntityTypeMission, mission.MissionID,
			"", string(models.MissionStatusPending), companyID, ""); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, []string{ticket.ManagerID, ticket.OccupantID},
			models.EntityTypeTicket, ticketID,
			"Request accepted",
			fmt.Sprintf("Ticket %s was accepted, mission %s created", ticketID, mission.MissionID))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Ticket accepted", "ticketId", ticketID, "companyId", companyID, "missionId", mission.MissionID)
	return &mission, nil
}

// Reject refuses a ticket before it reaches diffusion. Terminal.
func (s *TicketService) Reject(actor models.ResolvedIdentity, ticketID string, req *models.RejectTicketRequest) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadTicketTx(tx, ticketID, &ticket); err != nil {
			return err
		}
		if err := AuthorizeTicketWrite(actor, &ticket); err != nil {
			return err
		}

		result := tx.Model(&models.Ticket{}).
			Where("ticket_id = ? AND status IN ?", ticketID,
				[]models.TicketStatus{models.TicketStatusNew, models.TicketStatusValidated}).
			Update("status", models.TicketStatusRejected)
		if result.Error != nil {
			return fmt.Errorf("failed to reject ticket: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("ticket", "reject", string(ticket.Status))
		}

		if err := recordHistoryTx(tx, models.EntityTypeTicket, ticketID,
			string(ticket.Status), string(models.TicketStatusRejected), actor.EntityID, req.Reason); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, []string{ticket.OccupantID},
			models.EntityTypeTicket, ticketID,
			"Request rejected", req.Reason)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ticketID)
}

// lockTicketTx closes an accepted ticket once its mission completed. Internal
// transition, fired inside the mission transaction.
func lockTicketTx(tx *gorm.DB, ticketID, actorID string) error {
	result := tx.Model(&models.Ticket{}).
		Where("ticket_id = ? AND status = ?", ticketID, models.TicketStatusAccepted).
		Update("status", models.TicketStatusLocked)
	if result.Error != nil {
		return fmt.Errorf("failed to lock ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var current models.Ticket
		if err := tx.Where("ticket_id = ?", ticketID).First(&current).Error; err != nil {
			return apierrors.NotFound("ticket " + ticketID)
		}
		// Locking twice is a no-op; anything else is a broken chain
		if current.Status == models.TicketStatusLocked {
			return nil
		}
		return apierrors.InvalidStateTransition("ticket", "lock", string(current.Status))
	}
	return recordHistoryTx(tx, models.EntityTypeTicket, ticketID,
		string(models.TicketStatusAccepted), string(models.TicketStatusLocked), actorID, "")
}

// Get returns one ticket after the read-side ownership check
func (s *TicketService) Get(actor models.ResolvedIdentity, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.Where("ticket_id = ?", ticketID).First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.NotFound("ticket " + ticketID)
	}
	if err != nil {
		return nil, apierrors.Internal("ticket lookup failed", err)
	}
	if err := AuthorizeTicketRead(s.db, actor, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// List returns the tickets visible to the identity
func (s *TicketService) List(actor models.ResolvedIdentity) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := ScopeTickets(s.db.Model(&models.Ticket{}), actor).
		Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, apierrors.Internal("ticket list failed", err)
	}
	return tickets, nil
}

// History returns the append-only transition log for a ticket
func (s *TicketService) History(actor models.ResolvedIdentity, ticketID string) ([]models.StatusHistory, error) {
	if _, err := s.Get(actor, ticketID); err != nil {
		return nil, err
	}
	var entries []models.StatusHistory
	if err := s.db.Where("entity_type = ? AND entity_id = ?", models.EntityTypeTicket, ticketID).
		Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, apierrors.Internal("history lookup failed", err)
	}
	return entries, nil
}

func (s *TicketService) reload(ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.Where("ticket_id = ?", ticketID).First(&ticket).Error; err != nil {
		return nil, apierrors.Internal("ticket reload failed", err)
	}
	return &ticket, nil
}

// loadTicketTx loads the ticket inside the transaction so the authorization
// check and the guarded update run against the same store state. Staleness is
// harmless: the status guard on the update is what decides the transition.
func loadTicketTx(tx *gorm.DB, ticketID string, ticket *models.Ticket) error {
	err := tx.Where("ticket_id = ?", ticketID).First(ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NotFound("ticket " + ticketID)
	}
	if err != nil {
		return apierrors.Internal("ticket lookup failed", err)
	}
	return nil
}
