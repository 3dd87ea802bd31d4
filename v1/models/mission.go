package models

import "time"

// Mission represents the unit of assigned field work derived from an accepted
// ticket. Exactly one mission exists per ticket, enforced by the unique index
// on ticket_id. The assigned technician must belong to the owning company.
type Mission struct {
	MissionID    string        `gorm:"primarykey;column:mission_id" json:"missionId"`
	TicketID     string        `gorm:"column:ticket_id;not null;uniqueIndex" json:"ticketId"`
	CompanyID    string        `gorm:"column:company_id;not null;index" json:"companyId"`
	TechnicianID *string       `gorm:"column:technician_id;index" json:"technicianId"`
	Currency     string        `gorm:"column:currency;not null" json:"currency"`
	Status       MissionStatus `gorm:"column:status;not null;default:'pending';check:status IN ('pending','in_progress','completed','validated')" json:"status"`
	Notes        string        `gorm:"column:notes" json:"notes"`
	PhotoRefs    PhotoRefs     `gorm:"column:photo_refs;type:text" json:"photoRefs"`
	StartedAt    *time.Time    `gorm:"column:started_at" json:"startedAt"`
	CompletedAt  *time.Time    `gorm:"column:completed_at" json:"completedAt"`
	BaseModel
}

// TableName sets the table name for GORM
func (Mission) TableName() string {
	return "missions"
}
