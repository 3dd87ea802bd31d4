package models

// Ticket represents a reported maintenance request. Currency is inherited from
// the owning property manager at creation and immutable thereafter. Technician
// assignment is never duplicated here; the mission is the sole source of truth.
type Ticket struct {
	TicketID      string         `gorm:"primarykey;column:ticket_id" json:"ticketId"`
	Category      TicketCategory `gorm:"column:category;not null" json:"category"`
	SubCategory   string         `gorm:"column:sub_category" json:"subCategory"`
	Room          string         `gorm:"column:room" json:"room"`
	Description   string         `gorm:"column:description" json:"description"`
	Priority      TicketPriority `gorm:"column:priority;not null;default:'normal'" json:"priority"`
	DiffusionMode DiffusionMode  `gorm:"column:diffusion_mode;not null;default:'general'" json:"diffusionMode"`
	Currency      string         `gorm:"column:currency;not null" json:"currency"`
	ManagerID     string         `gorm:"column:manager_id;not null;index" json:"managerId"`
	OccupantID    string         `gorm:"column:occupant_id;not null;index" json:"occupantId"`
	HousingUnit   string         `gorm:"column:housing_unit;not null" json:"housingUnit"`
	Status        TicketStatus   `gorm:"column:status;not null;default:'new';check:status IN ('new','validated','diffused','accepted','locked','rejected')" json:"status"`
	BaseModel
}

// TableName sets the table name for GORM
func (Ticket) TableName() string {
	return "tickets"
}

// TicketCompanyAccess designates a company allowed to see a ticket diffused in
// restricted mode
type TicketCompanyAccess struct {
	AccessID  string `gorm:"primarykey;column:access_id" json:"accessId"`
	TicketID  string `gorm:"column:ticket_id;not null;uniqueIndex:idx_ticket_company" json:"ticketId"`
	CompanyID string `gorm:"column:company_id;not null;uniqueIndex:idx_ticket_company" json:"companyId"`
	BaseModel
}

// TableName sets the table name for GORM
func (TicketCompanyAccess) TableName() string {
	return "ticket_company_accesses"
}
