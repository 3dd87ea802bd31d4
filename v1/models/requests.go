package models

// CreateManagerRequest onboards a property manager with its login identity
type CreateManagerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
}

// CreateCompanyRequest onboards a service company. The company entity's
// primary key is assigned from the created identity id.
type CreateCompanyRequest struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Currency       string   `json:"currency"`
	TaxRate        float64  `json:"taxRate"`
	CommissionRate float64  `json:"commissionRate"`
	ManagerIDs     []string `json:"managerIds"`
}

// CreateTechnicianRequest onboards a technician under a service company
type CreateTechnicianRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CompanyID string `json:"companyId"`
}

// CreateOccupantRequest onboards an occupant under a property manager
type CreateOccupantRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	ManagerID   string `json:"managerId"`
	HousingUnit string `json:"housingUnit"`
}

// CreateTicketRequest reports a maintenance problem. The caller must resolve
// to the occupant; currency is inherited from the occupant's manager.
type CreateTicketRequest struct {
	Category    TicketCategory `json:"category"`
	SubCategory string         `json:"subCategory"`
	Room        string         `json:"room"`
	Description string         `json:"description"`
}

// ValidateTicketRequest moves a new ticket to validated
type ValidateTicketRequest struct {
	SubCategory   string         `json:"subCategory"`
	Priority      TicketPriority `json:"priority"`
	DiffusionMode DiffusionMode  `json:"diffusionMode"`
	CompanyIDs    []string       `json:"companyIds"`
}

// DiffuseTicketRequest publishes a validated ticket to companies. Mode is
// optional; when empty the mode chosen at validation time applies.
type DiffuseTicketRequest struct {
	Mode DiffusionMode `json:"mode"`
}

// AcceptTicketRequest claims a diffused ticket for a company
type AcceptTicketRequest struct {
	CompanyID string `json:"companyId"`
}

// RejectTicketRequest refuses a ticket before it is diffused
type RejectTicketRequest struct {
	Reason string `json:"reason"`
}

// AssignTechnicianRequest assigns a company technician to a pending mission
type AssignTechnicianRequest struct {
	TechnicianID string `json:"technicianId"`
}

// CompleteMissionRequest finishes field work on an in-progress mission
type CompleteMissionRequest struct {
	Notes     string    `json:"notes"`
	PhotoRefs PhotoRefs `json:"photoRefs"`
}

// ReportMissionRequest signals an issue (occupant absent, access problem)
// without changing the mission status
type ReportMissionRequest struct {
	Message string `json:"message"`
}

// GenerateInvoiceRequest creates a draft invoice from a validated mission.
// Rate overrides are optional; company defaults apply when nil.
type GenerateInvoiceRequest struct {
	TaxRate        *float64 `json:"taxRate"`
	CommissionRate *float64 `json:"commissionRate"`
}

// InvoiceLineRequest creates or edits an invoice line
type InvoiceLineRequest struct {
	LineType    LineType `json:"lineType"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	Unit        string   `json:"unit"`
	UnitPrice   float64  `json:"unitPrice"`
}

// RejectInvoiceRequest refuses a sent invoice
type RejectInvoiceRequest struct {
	Reason string `json:"reason"`
}
