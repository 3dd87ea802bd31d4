package models

import "time"

// StatusHistory is an append-only audit record of a state transition. Rows are
// only ever inserted, never mutated.
type StatusHistory struct {
	HistoryID  string     `gorm:"primarykey;column:history_id" json:"historyId"`
	EntityType EntityType `gorm:"column:entity_type;not null;index:idx_history_entity" json:"entityType"`
	EntityID   string     `gorm:"column:entity_id;not null;index:idx_history_entity" json:"entityId"`
	FromStatus string     `gorm:"column:from_status" json:"fromStatus"`
	ToStatus   string     `gorm:"column:to_status;not null" json:"toStatus"`
	ActorID    string     `gorm:"column:actor_id" json:"actorId"`
	Note       string     `gorm:"column:note" json:"note"`
	BaseModel
}

// TableName sets the table name for GORM
func (StatusHistory) TableName() string {
	return "status_histories"
}

// Notification is a transactional outbox row. It is written inside the same
// transaction as the state transition that triggers it and delivered
// out-of-band by the notification worker; delivery failures never roll back
// into the originating transition.
type Notification struct {
	NotificationID string             `gorm:"primarykey;column:notification_id" json:"notificationId"`
	RecipientID    string             `gorm:"column:recipient_id;not null;index" json:"recipientId"`
	EntityType     EntityType         `gorm:"column:entity_type;not null" json:"entityType"`
	EntityID       string             `gorm:"column:entity_id;not null" json:"entityId"`
	Subject        string             `gorm:"column:subject;not null" json:"subject"`
	Body           string             `gorm:"column:body" json:"body"`
	Status         NotificationStatus `gorm:"column:status;not null;default:'pending';index" json:"status"`
	RetryCount     int                `gorm:"column:retry_count;not null;default:0" json:"retryCount"`
	MaxRetries     int                `gorm:"column:max_retries;not null;default:5" json:"maxRetries"`
	NextRetryAt    *time.Time         `gorm:"column:next_retry_at" json:"nextRetryAt"`
	ProcessedAt    *time.Time         `gorm:"column:processed_at" json:"processedAt"`
	Error          *string            `gorm:"column:error" json:"error,omitempty"`
	BaseModel
}

// TableName sets the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
