package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// MissionService owns the mission state machine:
// pending → in_progress → completed → validated, with a report side-branch
// that records history and notifications without touching the primary status.
type MissionService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewMissionService creates a new mission service
func NewMissionService(db *gorm.DB, notifications *NotificationService) *MissionService {
	return &MissionService{db: db, notifications: notifications}
}

// Assign puts a technician on a pending mission. The technician must belong
// to the mission's company; assigning the already-assigned technician again is
// an idempotent no-op.
func (s *MissionService) Assign(actor models.ResolvedIdentity, missionID string, req *models.AssignTechnicianRequest) (*models.Mission, error) {
	if req.TechnicianID == "" {
		return nil, apierrors.Validation("technicianId is required")
	}

	var mission models.Mission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadMissionTx(tx, missionID, &mission); err != nil {
			return err
		}
		if err := authorizeMissionCompanyWrite(actor, &mission); err != nil {
			return err
		}

		if mission.TechnicianID != nil && *mission.TechnicianID == req.TechnicianID {
			return nil // idempotent re-assign
		}
		if mission.Status != models.MissionStatusPending {
			return apierrors.InvalidStateTransition("mission", "assign", string(mission.Status))
		}

		var technician models.Technician
		if err := tx.Where("technician_id = ?", req.TechnicianID).First(&technician).Error; err != nil {
			return apierrors.Constraintf("technician %s does not exist", req.TechnicianID)
		}
		if technician.CompanyID != mission.CompanyID {
			return apierrors.Constraintf("technician %s belongs to company %s, not %s",
				technician.TechnicianID, technician.CompanyID, mission.CompanyID)
		}

		result := tx.Model(&models.Mission{}).
			Where("mission_id = ? AND status = ?", missionID, models.MissionStatusPending).
			Update("technician_id", req.TechnicianID)
		if result.Error != nil {
			return fmt.Errorf("failed to assign technician: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("mission", "assign", string(mission.Status))
		}
		mission.TechnicianID = &technician.TechnicianID

		if err := recordHistoryTx(tx, models.EntityTypeMission, missionID,
			string(models.MissionStatusPending), string(models.MissionStatusPending), actor.EntityID,
			"technician assigned: "+technician.TechnicianID); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, MissionParties(tx, &mission),
			models.EntityTypeMission, missionID,
			"Technician assigned",
			fmt.Sprintf("Mission %s assigned to %s", missionID, technician.Name))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Technician assigned", "missionId", missionID, "technicianId", req.TechnicianID)
	return s.reload(missionID)
}

// Start moves an assigned mission to in_progress and stamps the start time.
// Only the assigned technician may start the work.
func (s *MissionService) Start(actor models.ResolvedIdentity, missionID string) (*models.Mission, error) {
	var mission models.Mission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadMissionTx(tx, missionID, &mission); err != nil {
			return err
		}
		if err := authorizeMissionTechnicianWrite(actor, &mission); err != nil {
			return err
		}
		if mission.TechnicianID == nil {
			return apierrors.Constraintf("mission %s has no assigned technician", missionID)
		}

		now := time.Now().UTC()
		result := tx.Model(&models.Mission{}).
			Where("mission_id = ? AND status = ? AND technician_id IS NOT NULL", missionID, models.MissionStatusPending).
			Updates(map[string]interface{}{
				"status":     models.MissionStatusInProgress,
				"started_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to start mission: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("mission", "start", string(mission.Status))
		}

		if err := recordHistoryTx(tx, models.EntityTypeMission, missionID,
			string(models.MissionStatusPending), string(models.MissionStatusInProgress), actor.EntityID, ""); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, MissionParties(tx, &mission),
			models.EntityTypeMission, missionID,
			"Work started",
			fmt.Sprintf("Mission %s is in progress", missionID))
	})
	if err != nil {
		return nil, err
	}

	return s.reload(missionID)
}

// Complete finishes field work, stamps the completion time, and locks the
// parent ticket in the same transaction.
func (s *MissionService) Complete(actor models.ResolvedIdentity, missionID string, req *models.CompleteMissionRequest) (*models.Mission, error) {
	var mission models.Mission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadMissionTx(tx, missionID, &mission); err != nil {
			return err
		}
		if err := authorizeMissionTechnicianWrite(actor, &mission); err != nil {
			return err
		}

		now := time.Now().UTC()
		result := tx.Model(&models.Mission{}).
			Where("mission_id = ? AND status = ?", missionID, models.MissionStatusInProgress).
			Updates(map[string]interface{}{
				"status":       models.MissionStatusCompleted,
				"completed_at": now,
				"notes":        req.Notes,
				"photo_refs":   req.PhotoRefs,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to complete mission: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("mission", "complete", string(mission.Status))
		}

		if err := lockTicketTx(tx, mission.TicketID, actor.EntityID); err != nil {
			return err
		}

		if err := recordHistoryTx(tx, models.EntityTypeMission, missionID,
			string(models.MissionStatusInProgress), string(models.MissionStatusCompleted), actor.EntityID, req.Notes); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, MissionParties(tx, &mission),
			models.EntityTypeMission, missionID,
			"Work completed",
			fmt.Sprintf("Mission %s was completed, awaiting validation", missionID))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Mission completed", "missionId", missionID)
	return s.reload(missionID)
}

// Validate closes the mission. Performed by the owning property manager or the
// owning service company; terminal and a precondition for invoicing.
func (s *MissionService) Validate(actor models.ResolvedIdentity, missionID string) (*models.Mission, error) {
	var mission models.Mission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := loadMissionTx(tx, missionID, &mission); err != nil {
			return err
		}
		if err := authorizeMissionValidate(tx, actor, &mission); err != nil {
			return err
		}

		result := tx.Model(&models.Mission{}).
			Where("mission_id = ? AND status = ?", missionID, models.MissionStatusCompleted).
			Update("status", models.MissionStatusValidated)
		if result.Error != nil {
			return fmt.Errorf("failed to validate mission: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("mission", "validate", string(mission.Status))
		}

		if err := recordHistoryTx(tx, models.EntityTypeMission, missionID,
			string(models.MissionStatusCompleted), string(models.MissionStatusValidated), actor.EntityID, ""); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, MissionParties(tx, &mission),
			models.EntityTypeMission, missionID,
			"Mission validated",
			fmt.Sprintf("Mission %s was validated and may be invoiced", missionID))
	})
	if err != nil {
		return nil, err
	}

	return s.reload(missionID)
}

// Report signals an execution issue (occupant absent, access refused) without
// changing the primary status: one history row, one notification fan-out.
func (s *MissionService) Report(actor models.ResolvedIdentity, missionID string, req *models.ReportMissionRequest) error {
	if req.Message == "" {
		return apierrors.Validation("message is required")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var mission models.Mission
		if err := loadMissionTx(tx, missionID, &mission); err != nil {
			return err
		}
		if err := AuthorizeMissionRead(tx, actor, &mission); err != nil {
			return err
		}

		if err := recordHistoryTx(tx, models.EntityTypeMission, missionID,
			string(mission.Status), string(mission.Status), actor.EntityID, "report: "+req.Message); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, MissionParties(tx, &mission),
			models.EntityTypeMission, missionID,
			"Issue reported", req.Message)
	})
}

// Get returns one mission after the read-side ownership check
func (s *MissionService) Get(actor models.ResolvedIdentity, missionID string) (*models.Mission, error) {
	var mission models.Mission
	err := s.db.Where("mission_id = ?", missionID).First(&mission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.NotFound("mission " + missionID)
	}
	if err != nil {
		return nil, apierrors.Internal("mission lookup failed", err)
	}
	if err := AuthorizeMissionRead(s.db, actor, &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

// List returns the missions visible to the identity. For a technician this is
// exactly the missions assigned to them, nothing broader.
func (s *MissionService) List(actor models.ResolvedIdentity) ([]models.Mission, error) {
	var missions []models.Mission
	if err := ScopeMissions(s.db.Model(&models.Mission{}), actor).
		Order("created_at DESC").Find(&missions).Error; err != nil {
		return nil, apierrors.Internal("mission list failed", err)
	}
	return missions, nil
}

func (s *MissionService) reload(missionID string) (*models.Mission, error) {
	var mission models.Mission
	if err := s.db.Where("mission_id = ?", missionID).First(&mission).Error; err != nil {
		return nil, apierrors.Internal("mission reload failed", err)
	}
	return &mission, nil
}

func loadMissionTx(tx *gorm.DB, missionID string, mission *models.Mission) error {
	err := tx.Where("mission_id = ?", missionID).First(mission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NotFound("mission " + missionID)
	}
	if err != nil {
		return apierrors.Internal("mission lookup failed", err)
	}
	return nil
}

// authorizeMissionCompanyWrite restricts assignment to the owning company
func authorizeMissionCompanyWrite(actor models.ResolvedIdentity, mission *models.Mission) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCompany:
		if mission.CompanyID == actor.EntityID {
			return nil
		}
	}
	return apierrors.Ownership("mission " + mission.MissionID)
}

// authorizeMissionTechnicianWrite restricts start/complete to the assigned
// technician. Company and manager ownership do not grant these operations.
func authorizeMissionTechnicianWrite(actor models.ResolvedIdentity, mission *models.Mission) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTechnician:
		if mission.TechnicianID != nil && *mission.TechnicianID == actor.EntityID {
			return nil
		}
	}
	return apierrors.Ownership("mission " + mission.MissionID)
}

// authorizeMissionValidate allows the owning manager or the owning company
func authorizeMissionValidate(tx *gorm.DB, actor models.ResolvedIdentity, mission *models.Mission) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCompany:
		if mission.CompanyID == actor.EntityID {
			return nil
		}
	case models.RoleManager:
		if missionManagerID(tx, mission) == actor.EntityID {
			return nil
		}
	}
	return apierrors.Ownership("mission " + mission.MissionID)
}
