package models

import "time"

// BaseModel holds the timestamp columns shared by every table
type BaseModel struct {
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}
