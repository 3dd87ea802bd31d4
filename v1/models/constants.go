package models

// Role represents the tenant role carried by an identity
type Role string

const (
	RoleManager    Role = "manager"
	RoleCompany    Role = "company"
	RoleTechnician Role = "technician"
	RoleOccupant   Role = "occupant"
	RoleAdmin      Role = "admin"
)

// IsValid checks if the role is one of the closed set
func (r Role) IsValid() bool {
	switch r {
	case RoleManager, RoleCompany, RoleTechnician, RoleOccupant, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// TicketStatus represents the lifecycle status of a ticket
type TicketStatus string

const (
	TicketStatusNew       TicketStatus = "new"
	TicketStatusValidated TicketStatus = "validated"
	TicketStatusDiffused  TicketStatus = "diffused"
	TicketStatusAccepted  TicketStatus = "accepted"
	TicketStatusLocked    TicketStatus = "locked"
	TicketStatusRejected  TicketStatus = "rejected"
)

// MissionStatus represents the lifecycle status of a mission
type MissionStatus string

const (
	MissionStatusPending    MissionStatus = "pending"
	MissionStatusInProgress MissionStatus = "in_progress"
	MissionStatusCompleted  MissionStatus = "completed"
	MissionStatusValidated  MissionStatus = "validated"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusSent     InvoiceStatus = "sent"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusRejected InvoiceStatus = "rejected"
)

// DiffusionMode controls which service companies see a validated ticket
type DiffusionMode string

const (
	DiffusionGeneral    DiffusionMode = "general"
	DiffusionRestricted DiffusionMode = "restricted"
)

// IsValid checks if the diffusion mode is one of the closed set
func (m DiffusionMode) IsValid() bool {
	return m == DiffusionGeneral || m == DiffusionRestricted
}

// TicketPriority is the urgency classification set at validation time
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// IsValid checks if the priority is one of the closed set
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// LineType classifies an invoice line
type LineType string

const (
	LineTypeMaterial LineType = "material"
	LineTypeLabor    LineType = "labor"
	LineTypeTravel   LineType = "travel"
	LineTypeDiscount LineType = "discount"
	LineTypeOther    LineType = "other"
)

// IsValid checks if the line type is one of the closed set
func (lt LineType) IsValid() bool {
	switch lt {
	case LineTypeMaterial, LineTypeLabor, LineTypeTravel, LineTypeDiscount, LineTypeOther:
		return true
	}
	return false
}

// TicketCategory is the top-level maintenance classification
type TicketCategory string

const (
	CategoryPlumbing   TicketCategory = "plumbing"
	CategoryElectrical TicketCategory = "electrical"
	CategoryHeating    TicketCategory = "heating"
	CategoryLocksmith  TicketCategory = "locksmith"
	CategoryAppliance  TicketCategory = "appliance"
	CategoryOther      TicketCategory = "other"
)

// CategorySubCategories is the closed pairing of categories to their permitted
// sub-categories. A sub-category outside its category's set is rejected at
// validation time.
var CategorySubCategories = map[TicketCategory][]string{
	CategoryPlumbing:   {"leak", "blockage", "water_heater", "faucet"},
	CategoryElectrical: {"outlet", "lighting", "breaker", "intercom"},
	CategoryHeating:    {"radiator", "boiler", "thermostat"},
	CategoryLocksmith:  {"lock", "key", "door"},
	CategoryAppliance:  {"dishwasher", "oven", "washing_machine", "refrigerator"},
	CategoryOther:      {"other"},
}

// IsValid checks if the category is one of the closed set
func (c TicketCategory) IsValid() bool {
	_, ok := CategorySubCategories[c]
	return ok
}

// AllowsSubCategory reports whether sub belongs to the category's permitted set
func (c TicketCategory) AllowsSubCategory(sub string) bool {
	for _, s := range CategorySubCategories[c] {
		if s == sub {
			return true
		}
	}
	return false
}

// NotificationStatus represents the delivery state of an outbox row
type NotificationStatus string

const (
	NotificationStatusPending    NotificationStatus = "pending"
	NotificationStatusProcessing NotificationStatus = "processing"
	NotificationStatusSent       NotificationStatus = "sent"
	NotificationStatusFailed     NotificationStatus = "failed"
)

// EntityType tags a status-history row with the kind of entity it tracks
type EntityType string

const (
	EntityTypeTicket  EntityType = "ticket"
	EntityTypeMission EntityType = "mission"
	EntityTypeInvoice EntityType = "invoice"
)

// Field length constraints
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
	MaxEmailLength       = 320 // RFC 3696
	MaxRoomLength        = 64
)
