package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// recordHistoryTx appends one StatusHistory row inside the caller's
// transaction. History rows are insert-only.
func recordHistoryTx(tx *gorm.DB, entityType models.EntityType, entityID, fromStatus, toStatus, actorID, note string) error {
	history := models.StatusHistory{
		HistoryID:  "his_" + uuid.New().String(),
		EntityType: entityType,
		EntityID:   entityID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		ActorID:    actorID,
		Note:       note,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}
