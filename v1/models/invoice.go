package models

// Invoice represents the billing document derived from one validated mission.
// Totals are always derivable from the invoice lines; they are recomputed and
// persisted atomically with every line mutation while the invoice is in draft.
type Invoice struct {
	InvoiceID       string        `gorm:"primarykey;column:invoice_id" json:"invoiceId"`
	MissionID       string        `gorm:"column:mission_id;not null;uniqueIndex" json:"missionId"`
	CompanyID       string        `gorm:"column:company_id;not null;index" json:"companyId"`
	ManagerID       string        `gorm:"column:manager_id;not null;index" json:"managerId"`
	Currency        string        `gorm:"column:currency;not null" json:"currency"`
	TaxRate         float64       `gorm:"column:tax_rate;not null" json:"taxRate"`
	CommissionRate  float64       `gorm:"column:commission_rate;not null" json:"commissionRate"`
	NetTotal        float64       `gorm:"column:net_total;not null;default:0" json:"netTotal"`
	TaxTotal        float64       `gorm:"column:tax_total;not null;default:0" json:"taxTotal"`
	CommissionTotal float64       `gorm:"column:commission_total;not null;default:0" json:"commissionTotal"`
	GrossTotal      float64       `gorm:"column:gross_total;not null;default:0" json:"grossTotal"`
	Status          InvoiceStatus `gorm:"column:status;not null;default:'draft';check:status IN ('draft','sent','paid','rejected')" json:"status"`
	RejectionReason string        `gorm:"column:rejection_reason" json:"rejectionReason,omitempty"`
	BaseModel
}

// TableName sets the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceLine belongs to one invoice. UnitPrice is signed; discount lines
// carry a negative unit price and participate in the net sum like any other
// line. Lines are created and edited only while the parent invoice is draft.
type InvoiceLine struct {
	LineID      string   `gorm:"primarykey;column:line_id" json:"lineId"`
	InvoiceID   string   `gorm:"column:invoice_id;not null;index" json:"invoiceId"`
	LineType    LineType `gorm:"column:line_type;not null;check:line_type IN ('material','labor','travel','discount','other')" json:"lineType"`
	Description string   `gorm:"column:description;not null" json:"description"`
	Quantity    float64  `gorm:"column:quantity;not null" json:"quantity"`
	Unit        string   `gorm:"column:unit;not null" json:"unit"`
	UnitPrice   float64  `gorm:"column:unit_price;not null" json:"unitPrice"`
	Position    int      `gorm:"column:position;not null" json:"position"`
	BaseModel
}

// TableName sets the table name for GORM
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// Amount returns the signed line amount
func (l InvoiceLine) Amount() float64 {
	return l.Quantity * l.UnitPrice
}
