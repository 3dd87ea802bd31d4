package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// Sender delivers one notification to a recipient address. The workflow core
// treats the transport (email, SMS, webhook) as an external collaborator.
type Sender interface {
	Send(ctx context.Context, recipientEmail, subject, body string) error
}

// LogSender is the default Sender: it writes deliveries to the structured log.
// Useful for development and as the fallback when no transport is configured.
type LogSender struct{}

// Send implements Sender
func (LogSender) Send(_ context.Context, recipientEmail, subject, body string) error {
	slog.Info("Notification delivered", "recipient", recipientEmail, "subject", subject, "body", body)
	return nil
}

// NotificationWorker drains the notification outbox. Delivery runs strictly
// out-of-band: a failed delivery is retried with exponential backoff and can
// never surface as a failure of the state transition that enqueued it.
type NotificationWorker struct {
	db           *gorm.DB
	sender       Sender
	pollInterval time.Duration
	batchSize    int
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(db *gorm.DB, sender Sender) *NotificationWorker {
	return &NotificationWorker{
		db:           db,
		sender:       sender,
		pollInterval: 10 * time.Second,
		batchSize:    20,
	}
}

// Start starts the background worker loop until the context is cancelled
func (w *NotificationWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Notification worker started", "pollInterval", w.pollInterval, "batchSize", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Notification worker stopped")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch claims and delivers one batch of pending notifications.
// Exported so tests and a drain-on-shutdown path can run a single pass.
func (w *NotificationWorker) ProcessBatch(ctx context.Context) {
	now := time.Now()

	// Recover rows stuck in processing, e.g. from a crashed worker
	stuckThreshold := now.Add(-5 * time.Minute)
	if err := w.db.Model(&models.Notification{}).
		Where("status = ?", models.NotificationStatusProcessing).
		Where("updated_at < ?", stuckThreshold).
		Update("status", models.NotificationStatusPending).Error; err != nil {
		slog.Warn("Failed to recover stuck notifications", "error", err)
	}

	var batch []models.Notification
	err := w.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("status = ?", models.NotificationStatusPending).
			Where("(next_retry_at IS NULL OR next_retry_at <= ?)", now).
			Order("created_at ASC").
			Limit(w.batchSize)
		// Row locking keeps concurrent workers from claiming the same batch;
		// SQLite serializes writes anyway and ignores the clause
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := query.Find(&batch).Error; err != nil {
			return err
		}

		if len(batch) > 0 {
			ids := make([]string, len(batch))
			for i := range batch {
				ids[i] = batch[i].NotificationID
			}
			if err := tx.Model(&models.Notification{}).
				Where("notification_id IN ?", ids).
				Update("status", models.NotificationStatusProcessing).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to claim pending notifications", "error", err)
		return
	}

	for i := range batch {
		w.deliver(ctx, &batch[i])
	}
}

// deliver sends one notification and records the outcome
func (w *NotificationWorker) deliver(ctx context.Context, notification *models.Notification) {
	now := time.Now()

	email, err := w.recipientEmail(notification.RecipientID)
	if err == nil {
		err = w.sender.Send(ctx, email, notification.Subject, notification.Body)
	}

	newRetryCount := notification.RetryCount + 1
	updates := map[string]interface{}{
		"processed_at": now,
		"retry_count":  newRetryCount,
	}

	if err != nil {
		errorMsg := err.Error()
		updates["error"] = &errorMsg

		if newRetryCount > notification.MaxRetries {
			updates["status"] = models.NotificationStatusFailed
			updates["next_retry_at"] = nil
			slog.Error("Notification failed after max retries",
				"notificationId", notification.NotificationID,
				"recipientId", notification.RecipientID,
				"retryCount", newRetryCount,
				"error", err)
		} else {
			// Exponential backoff: base delay 1 minute, doubled per retry
			backoffDelay := time.Minute * time.Duration(1<<notification.RetryCount)
			nextRetryAt := now.Add(backoffDelay)
			updates["next_retry_at"] = &nextRetryAt
			updates["status"] = models.NotificationStatusPending
			slog.Warn("Notification delivery failed, will retry",
				"notificationId", notification.NotificationID,
				"retryCount", newRetryCount,
				"nextRetryAt", nextRetryAt,
				"error", err)
		}
	} else {
		updates["status"] = models.NotificationStatusSent
		updates["error"] = nil
		updates["next_retry_at"] = nil
	}

	if updateErr := w.db.Model(notification).Updates(updates).Error; updateErr != nil {
		slog.Error("Failed to update notification status",
			"notificationId", notification.NotificationID,
			"error", updateErr)
	}
}

// recipientEmail resolves the delivery address for a tenant entity through its
// identity row
func (w *NotificationWorker) recipientEmail(entityID string) (string, error) {
	var identity models.Identity
	if err := w.db.Where("entity_id = ?", entityID).First(&identity).Error; err != nil {
		return "", fmt.Errorf("no identity for recipient entity %s: %w", entityID, err)
	}
	return identity.Email, nil
}
