package models

// PropertyManager represents a property-management tenant
type PropertyManager struct {
	ManagerID string `gorm:"primarykey;column:manager_id" json:"managerId"`
	Name      string `gorm:"column:name;not null" json:"name"`
	Currency  string `gorm:"column:currency;not null;default:'EUR'" json:"currency"`
	BaseModel
}

// TableName sets the table name for GORM
func (PropertyManager) TableName() string {
	return "property_managers"
}

// ServiceCompany represents a maintenance company tenant. CompanyID equals the
// owning identity id; every ownership predicate on missions and invoices
// depends on that equality.
type ServiceCompany struct {
	CompanyID      string  `gorm:"primarykey;column:company_id" json:"companyId"`
	Name           string  `gorm:"column:name;not null" json:"name"`
	Currency       string  `gorm:"column:currency;not null;default:'EUR'" json:"currency"`
	TaxRate        float64 `gorm:"column:tax_rate;not null;default:0" json:"taxRate"`
	CommissionRate float64 `gorm:"column:commission_rate;not null;default:0" json:"commissionRate"`
	BaseModel
}

// TableName sets the table name for GORM
func (ServiceCompany) TableName() string {
	return "service_companies"
}

// Technician represents a field technician. TechnicianID equals the owning
// identity id and the technician belongs to exactly one service company.
type Technician struct {
	TechnicianID string `gorm:"primarykey;column:technician_id" json:"technicianId"`
	Name         string `gorm:"column:name;not null" json:"name"`
	CompanyID    string `gorm:"column:company_id;not null;index" json:"companyId"`
	BaseModel
}

// TableName sets the table name for GORM
func (Technician) TableName() string {
	return "technicians"
}

// Occupant represents a housing-unit occupant scoped to one property manager
type Occupant struct {
	OccupantID  string `gorm:"primarykey;column:occupant_id" json:"occupantId"`
	Name        string `gorm:"column:name;not null" json:"name"`
	ManagerID   string `gorm:"column:manager_id;not null;index" json:"managerId"`
	HousingUnit string `gorm:"column:housing_unit;not null" json:"housingUnit"`
	BaseModel
}

// TableName sets the table name for GORM
func (Occupant) TableName() string {
	return "occupants"
}

// ManagerCompanyLink links a service company to a property manager. General
// diffusion makes a ticket visible to every company linked to its manager.
type ManagerCompanyLink struct {
	LinkID    string `gorm:"primarykey;column:link_id" json:"linkId"`
	ManagerID string `gorm:"column:manager_id;not null;uniqueIndex:idx_manager_company" json:"managerId"`
	CompanyID string `gorm:"column:company_id;not null;uniqueIndex:idx_manager_company" json:"companyId"`
	BaseModel
}

// TableName sets the table name for GORM
func (ManagerCompanyLink) TableName() string {
	return "manager_company_links"
}
