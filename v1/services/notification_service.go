package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// NotificationService writes outbox rows for state transitions. Enqueue
// happens inside the caller's transaction so the notification intent commits
// atomically with the transition; delivery runs out-of-band in the
// notification worker and can never gate or abort a transition.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

const defaultMaxRetries = 5

// EnqueueTx appends one pending outbox row per recipient entity
func (s *NotificationService) EnqueueTx(tx *gorm.DB, recipientEntityIDs []string, entityType models.EntityType, entityID, subject, body string) error {
	for _, recipientID := range recipientEntityIDs {
		if recipientID == "" {
			continue
		}
		notification := models.Notification{
			NotificationID: "ntf_" + uuid.New().String(),
			RecipientID:    recipientID,
			EntityType:     entityType,
			EntityID:       entityID,
			Subject:        subject,
			Body:           body,
			Status:         models.NotificationStatusPending,
			MaxRetries:     defaultMaxRetries,
		}
		if err := tx.Create(&notification).Error; err != nil {
			return fmt.Errorf("failed to enqueue notification: %w", err)
		}
	}
	return nil
}

// MissionParties resolves the interested parties for a mission: its manager,
// its company, and the assigned technician when there is one.
func MissionParties(tx *gorm.DB, mission *models.Mission) []string {
	parties := []string{mission.CompanyID}
	if managerID := missionManagerID(tx, mission); managerID != "" {
		parties = append(parties, managerID)
	}
	if mission.TechnicianID != nil {
		parties = append(parties, *mission.TechnicianID)
	}
	return parties
}
