package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Identity{},
		&models.PropertyManager{},
		&models.ServiceCompany{},
		&models.Technician{},
		&models.Occupant{},
		&models.ManagerCompanyLink{},
		&models.Ticket{},
		&models.TicketCompanyAccess{},
		&models.Mission{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.StatusHistory{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// SetupMockDB wires gorm to a sqlmock connection for failure injection
func SetupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open gorm over sqlmock: %v", err)
	}

	return db, mock, func() { sqlDB.Close() }
}

// workflowFixture is a fully onboarded tenant graph used by the state-machine
// tests: one manager, two linked companies, one technician per company, one
// occupant, one platform admin.
type workflowFixture struct {
	identities *IdentityService

	Manager    *models.PropertyManager
	CompanyA   *models.ServiceCompany
	CompanyB   *models.ServiceCompany
	TechA      *models.Technician
	TechB      *models.Technician
	Occupant   *models.Occupant
	AdminID    *models.Identity

	ManagerActor  models.ResolvedIdentity
	CompanyAActor models.ResolvedIdentity
	CompanyBActor models.ResolvedIdentity
	TechAActor    models.ResolvedIdentity
	TechBActor    models.ResolvedIdentity
	OccupantActor models.ResolvedIdentity
	AdminActor    models.ResolvedIdentity
}

// seedWorkflowFixture onboards the tenant graph through the identity service
// so every entity satisfies the creation-time invariants.
func seedWorkflowFixture(t *testing.T, db *gorm.DB) *workflowFixture {
	t.Helper()

	identities := NewIdentityService(db)
	f := &workflowFixture{identities: identities}

	var err error
	f.Manager, err = identities.CreateManager(&models.CreateManagerRequest{
		Name: "Habitat Horizon", Email: "manager@horizon.test", Currency: "CHF",
	})
	if err != nil {
		t.Fatalf("Failed to seed manager: %v", err)
	}

	f.CompanyA, err = identities.CreateCompany(&models.CreateCompanyRequest{
		Name: "AquaFix Sanitaires", Email: "contact@aquafix.test", Currency: "CHF",
		TaxRate: 0.081, CommissionRate: 0.02,
		ManagerIDs: []string{f.Manager.ManagerID},
	})
	if err != nil {
		t.Fatalf("Failed to seed company A: %v", err)
	}

	f.CompanyB, err = identities.CreateCompany(&models.CreateCompanyRequest{
		Name: "ElectroPro Services", Email: "contact@electropro.test", Currency: "CHF",
		TaxRate: 0.081, CommissionRate: 0.02,
		ManagerIDs: []string{f.Manager.ManagerID},
	})
	if err != nil {
		t.Fatalf("Failed to seed company B: %v", err)
	}

	f.TechA, err = identities.CreateTechnician(&models.CreateTechnicianRequest{
		Name: "Luc Perrin", Email: "luc@aquafix.test", CompanyID: f.CompanyA.CompanyID,
	})
	if err != nil {
		t.Fatalf("Failed to seed technician A: %v", err)
	}

	f.TechB, err = identities.CreateTechnician(&models.CreateTechnicianRequest{
		Name: "Nina Favre", Email: "nina@electropro.test", CompanyID: f.CompanyB.CompanyID,
	})
	if err != nil {
		t.Fatalf("Failed to seed technician B: %v", err)
	}

	f.Occupant, err = identities.CreateOccupant(&models.CreateOccupantRequest{
		Name: "Marc Dubois", Email: "marc@tenant.test",
		ManagerID: f.Manager.ManagerID, HousingUnit: "B-204",
	})
	if err != nil {
		t.Fatalf("Failed to seed occupant: %v", err)
	}

	f.AdminID, err = identities.CreateAdmin("admin@platform.test")
	if err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}

	f.ManagerActor = resolveActor(t, identities, "manager@horizon.test")
	f.CompanyAActor = resolveActor(t, identities, "contact@aquafix.test")
	f.CompanyBActor = resolveActor(t, identities, "contact@electropro.test")
	f.TechAActor = resolveActor(t, identities, "luc@aquafix.test")
	f.TechBActor = resolveActor(t, identities, "nina@electropro.test")
	f.OccupantActor = resolveActor(t, identities, "marc@tenant.test")
	f.AdminActor = resolveActor(t, identities, "admin@platform.test")

	return f
}

func resolveActor(t *testing.T, identities *IdentityService, principal string) models.ResolvedIdentity {
	t.Helper()
	actor, err := identities.Resolve(principal)
	if err != nil {
		t.Fatalf("Failed to resolve %s: %v", principal, err)
	}
	return *actor
}

// advanceToDiffused walks a fresh ticket to diffused in general mode
func advanceToDiffused(t *testing.T, f *workflowFixture, tickets *TicketService) *models.Ticket {
	t.Helper()

	ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
		Category: models.CategoryPlumbing, SubCategory: "leak", Room: "bathroom",
		Description: "Water under the sink",
	})
	if err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
	}

	if _, err := tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
		SubCategory: "leak", Priority: models.PriorityHigh, DiffusionMode: models.DiffusionGeneral,
	}); err != nil {
		t.Fatalf("Failed to validate ticket: %v", err)
	}

	diffused, err := tickets.Diffuse(f.ManagerActor, ticket.TicketID, &models.DiffuseTicketRequest{})
	if err != nil {
		t.Fatalf("Failed to diffuse ticket: %v", err)
	}
	return diffused
}

// advanceToValidatedMission walks a ticket through acceptance and mission
// execution up to the validated terminal
func advanceToValidatedMission(t *testing.T, f *workflowFixture, tickets *TicketService, missions *MissionService) *models.Mission {
	t.Helper()

	ticket := advanceToDiffused(t, f, tickets)
	mission, err := tickets.Accept(f.CompanyAActor, ticket.TicketID, &models.AcceptTicketRequest{})
	if err != nil {
		t.Fatalf("Failed to accept ticket: %v", err)
	}
	if _, err := missions.Assign(f.CompanyAActor, mission.MissionID, &models.AssignTechnicianRequest{
		TechnicianID: f.TechA.TechnicianID,
	}); err != nil {
		t.Fatalf("Failed to assign technician: %v", err)
	}
	if _, err := missions.Start(f.TechAActor, mission.MissionID); err != nil {
		t.Fatalf("Failed to start mission: %v", err)
	}
	if _, err := missions.Complete(f.TechAActor, mission.MissionID, &models.CompleteMissionRequest{
		Notes: "Replaced the trap seal", PhotoRefs: models.PhotoRefs{"photos/after.jpg"},
	}); err != nil {
		t.Fatalf("Failed to complete mission: %v", err)
	}
	if _, err := missions.Validate(f.ManagerActor, mission.MissionID); err != nil {
		t.Fatalf("Failed to validate mission: %v", err)
	}

	validated, err := missions.Get(f.CompanyAActor, mission.MissionID)
	if err != nil {
		t.Fatalf("Failed to reload mission: %v", err)
	}
	return validated
}
