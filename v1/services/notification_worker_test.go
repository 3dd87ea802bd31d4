package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

type recordingSender struct {
	sent []string
	fail bool
}

func (s *recordingSender) Send(_ context.Context, recipientEmail, _, _ string) error {
	if s.fail {
		return fmt.Errorf("smtp unavailable")
	}
	s.sent = append(s.sent, recipientEmail)
	return nil
}

func TestOutboxEnqueueIsTransactional(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
		Category: models.CategoryPlumbing, Description: "Leak",
	})
	require.NoError(t, err)

	var before int64
	db.Model(&models.Notification{}).Count(&before)

	// Unlinked designated company makes the whole transition roll back
	_, err = tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
		SubCategory: "leak", Priority: models.PriorityNormal,
		DiffusionMode: models.DiffusionRestricted,
		CompanyIDs:    []string{"usr_not_linked"},
	})
	require.Error(t, err)
	assert.True(t, apierrors.IsKind(err, apierrors.KindConstraintViolation))

	var after int64
	db.Model(&models.Notification{}).Count(&after)
	assert.Equal(t, before, after, "a failed transition must enqueue nothing")

	current, err := tickets.Get(f.ManagerActor, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusNew, current.Status)
}

func TestWorkerDeliversPendingBatch(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	_, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
		Category: models.CategoryPlumbing, Description: "Leak",
	})
	require.NoError(t, err)

	sender := &recordingSender{}
	worker := NewNotificationWorker(db, sender)
	worker.ProcessBatch(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "manager@horizon.test", sender.sent[0],
		"delivery address resolves through the recipient's identity")

	var notification models.Notification
	require.NoError(t, db.Where("recipient_id = ?", f.Manager.ManagerID).First(&notification).Error)
	assert.Equal(t, models.NotificationStatusSent, notification.Status)
	require.NotNil(t, notification.ProcessedAt)
	assert.Nil(t, notification.Error)
	assert.Nil(t, notification.NextRetryAt)
}

func TestWorkerRetriesWithBackoff(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	_, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
		Category: models.CategoryElectrical, Description: "Sparks",
	})
	require.NoError(t, err)

	sender := &recordingSender{fail: true}
	worker := NewNotificationWorker(db, sender)
	worker.ProcessBatch(context.Background())

	var notification models.Notification
	require.NoError(t, db.Where("recipient_id = ?", f.Manager.ManagerID).First(&notification).Error)
	assert.Equal(t, models.NotificationStatusPending, notification.Status)
	assert.Equal(t, 1, notification.RetryCount)
	require.NotNil(t, notification.Error)
	assert.Contains(t, *notification.Error, "smtp unavailable")
	require.NotNil(t, notification.NextRetryAt)
	assert.True(t, notification.NextRetryAt.After(time.Now().Add(30*time.Second)),
		"first retry is scheduled about a minute out")

	// The scheduled retry is in the future, so the next pass skips the row
	worker.ProcessBatch(context.Background())
	var unchanged models.Notification
	require.NoError(t, db.Where("notification_id = ?", notification.NotificationID).First(&unchanged).Error)
	assert.Equal(t, 1, unchanged.RetryCount)
}

func TestWorkerFailsAfterMaxRetries(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)

	notification := models.Notification{
		NotificationID: "ntf_exhausted",
		RecipientID:    f.Manager.ManagerID,
		EntityType:     models.EntityTypeTicket,
		EntityID:       "tkt_x",
		Subject:        "Retry casualty",
		Body:           "body",
		Status:         models.NotificationStatusPending,
		RetryCount:     5,
		MaxRetries:     5,
	}
	require.NoError(t, db.Create(&notification).Error)

	worker := NewNotificationWorker(db, &recordingSender{fail: true})
	worker.ProcessBatch(context.Background())

	var final models.Notification
	require.NoError(t, db.Where("notification_id = ?", notification.NotificationID).First(&final).Error)
	assert.Equal(t, models.NotificationStatusFailed, final.Status)
	assert.Equal(t, 6, final.RetryCount)
	assert.Nil(t, final.NextRetryAt)
}

func TestWorkerHandlesUnknownRecipient(t *testing.T) {
	db := setupTestDB(t)
	seedWorkflowFixture(t, db)

	notification := models.Notification{
		NotificationID: "ntf_ghost",
		RecipientID:    "ent_ghost",
		EntityType:     models.EntityTypeMission,
		EntityID:       "msn_x",
		Subject:        "Lost",
		Body:           "body",
		Status:         models.NotificationStatusPending,
		MaxRetries:     5,
	}
	require.NoError(t, db.Create(&notification).Error)

	sender := &recordingSender{}
	worker := NewNotificationWorker(db, sender)
	worker.ProcessBatch(context.Background())

	assert.Empty(t, sender.sent)
	var final models.Notification
	require.NoError(t, db.Where("notification_id = ?", notification.NotificationID).First(&final).Error)
	assert.Equal(t, models.NotificationStatusPending, final.Status)
	require.NotNil(t, final.Error)
	assert.Contains(t, *final.Error, "no identity for recipient entity")
}

func TestWorkerRecoversStuckRows(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)

	stuck := models.Notification{
		NotificationID: "ntf_stuck",
		RecipientID:    f.Manager.ManagerID,
		EntityType:     models.EntityTypeTicket,
		EntityID:       "tkt_y",
		Subject:        "Orphaned by a crash",
		Body:           "body",
		Status:         models.NotificationStatusProcessing,
		MaxRetries:     5,
	}
	require.NoError(t, db.Create(&stuck).Error)
	// Age the row past the stuck threshold
	require.NoError(t, db.Model(&models.Notification{}).
		Where("notification_id = ?", stuck.NotificationID).
		Update("updated_at", time.Now().Add(-10*time.Minute)).Error)

	sender := &recordingSender{}
	worker := NewNotificationWorker(db, sender)
	worker.ProcessBatch(context.Background())

	var final models.Notification
	require.NoError(t, db.Where("notification_id = ?", stuck.NotificationID).First(&final).Error)
	assert.Equal(t, models.NotificationStatusSent, final.Status)
	require.Len(t, sender.sent, 1)
}
