package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// IdentityService resolves authenticated principals to tenant entities and
// owns the onboarding paths for every tenant entity. Creation enforces the
// entity-id/identity-id equality that all ownership predicates depend on.
type IdentityService struct {
	db *gorm.DB
}

// NewIdentityService creates a new identity service
func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{db: db}
}

// Resolve maps a principal (identity id or email) to its tenant role and
// entity id. A principal without a matching tenant entity is a hard
// authentication failure, never a default-deny.
func (s *IdentityService) Resolve(principal string) (*models.ResolvedIdentity, error) {
	return ResolveIdentity(s.db, principal)
}

// ResolveIdentity is the transaction-scoped resolver. Authorization checks
// re-run it inside the mutating transaction, so resolution is never cached
// across calls.
func ResolveIdentity(db *gorm.DB, principal string) (*models.ResolvedIdentity, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return nil, apierrors.UnresolvedIdentity(principal)
	}

	var identity models.Identity
	err := db.Where("identity_id = ?", principal).Or("email = ?", principal).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.UnresolvedIdentity(principal)
	}
	if err != nil {
		return nil, apierrors.Internal("identity lookup failed", err)
	}

	if !identity.Role.IsValid() {
		return nil, apierrors.UnresolvedIdentity(principal)
	}

	// Admins act on the platform itself and carry no tenant entity
	if identity.Role == models.RoleAdmin {
		return &models.ResolvedIdentity{IdentityID: identity.IdentityID, Role: models.RoleAdmin}, nil
	}

	if identity.EntityID == "" || !tenantEntityExists(db, identity.Role, identity.EntityID) {
		return nil, apierrors.UnresolvedIdentity(principal)
	}

	return &models.ResolvedIdentity{
		IdentityID: identity.IdentityID,
		Role:       identity.Role,
		EntityID:   identity.EntityID,
	}, nil
}

func tenantEntityExists(db *gorm.DB, role models.Role, entityID string) bool {
	var count int64
	switch role {
	case models.RoleManager:
		db.Model(&models.PropertyManager{}).Where("manager_id = ?", entityID).Count(&count)
	case models.RoleCompany:
		db.Model(&models.ServiceCompany{}).Where("company_id = ?", entityID).Count(&count)
	case models.RoleTechnician:
		db.Model(&models.Technician{}).Where("technician_id = ?", entityID).Count(&count)
	case models.RoleOccupant:
		db.Model(&models.Occupant{}).Where("occupant_id = ?", entityID).Count(&count)
	}
	return count > 0
}

// createIdentity inserts the identity row after enforcing the per-row
// ownership invariant: for company and technician roles the linked entity's
// primary key must equal the identity id. A divergent pair is rejected here,
// at creation time, instead of surfacing later as failed authorization.
func createIdentity(tx *gorm.DB, identity *models.Identity) error {
	if identity.Role == models.RoleCompany || identity.Role == models.RoleTechnician {
		if identity.EntityID != identity.IdentityID {
			return apierrors.Constraintf(
				"%s entity id %q must equal identity id %q",
				identity.Role, identity.EntityID, identity.IdentityID)
		}
	}
	if err := tx.Create(identity).Error; err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

// CreateManager onboards a property manager with its login identity
func (s *IdentityService) CreateManager(req *models.CreateManagerRequest) (*models.PropertyManager, error) {
	if req.Name == "" || req.Email == "" {
		return nil, apierrors.Validation("name and email are required")
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	manager := models.PropertyManager{
		ManagerID: "mgr_" + uuid.New().String(),
		Name:      req.Name,
		Currency:  currency,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&manager).Error; err != nil {
			return fmt.Errorf("failed to create property manager: %w", err)
		}
		return createIdentity(tx, &models.Identity{
			IdentityID: "usr_" + uuid.New().String(),
			Email:      req.Email,
			Role:       models.RoleManager,
			EntityID:   manager.ManagerID,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Property manager onboarded", "managerId", manager.ManagerID)
	return &manager, nil
}

// CreateCompany onboards a service company. The company primary key is
// assigned from the identity id, which makes the ownership invariant hold by
// construction.
func (s *IdentityService) CreateCompany(req *models.CreateCompanyRequest) (*models.ServiceCompany, error) {
	if req.Name == "" || req.Email == "" {
		return nil, apierrors.Validation("name and email are required")
	}
	if req.TaxRate < 0 || req.CommissionRate < 0 {
		return nil, apierrors.Validation("tax and commission rates must not be negative")
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	identityID := "usr_" + uuid.New().String()
	company := models.ServiceCompany{
		CompanyID:      identityID,
		Name:           req.Name,
		Currency:       currency,
		TaxRate:        req.TaxRate,
		CommissionRate: req.CommissionRate,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, managerID := range req.ManagerIDs {
			var count int64
			tx.Model(&models.PropertyManager{}).Where("manager_id = ?", managerID).Count(&count)
			if count == 0 {
				return apierrors.Constraintf("property manager %s does not exist", managerID)
			}
		}

		if err := tx.Create(&company).Error; err != nil {
			return fmt.Errorf("failed to create service company: %w", err)
		}

		if err := createIdentity(tx, &models.Identity{
			IdentityID: identityID,
			Email:      req.Email,
			Role:       models.RoleCompany,
			EntityID:   company.CompanyID,
		}); err != nil {
			return err
		}

		for _, managerID := range req.ManagerIDs {
			link := models.ManagerCompanyLink{
				LinkID:    "lnk_" + uuid.New().String(),
				ManagerID: managerID,
				CompanyID: company.CompanyID,
			}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("failed to link company to manager: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Service company onboarded", "companyId", company.CompanyID, "managers", len(req.ManagerIDs))
	return &company, nil
}

// CreateTechnician onboards a technician under an existing service company.
// The technician primary key is assigned from the identity id.
func (s *IdentityService) CreateTechnician(req *models.CreateTechnicianRequest) (*models.Technician, error) {
	if req.Name == "" || req.Email == "" || req.CompanyID == "" {
		return nil, apierrors.Validation("name, email and companyId are required")
	}

	identityID := "usr_" + uuid.New().String()
	technician := models.Technician{
		TechnicianID: identityID,
		Name:         req.Name,
		CompanyID:    req.CompanyID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		tx.Model(&models.ServiceCompany{}).Where("company_id = ?", req.CompanyID).Count(&count)
		if count == 0 {
			return apierrors.Constraintf("service company %s does not exist", req.CompanyID)
		}

		if err := tx.Create(&technician).Error; err != nil {
			return fmt.Errorf("failed to create technician: %w", err)
		}
		return createIdentity(tx, &models.Identity{
			IdentityID: identityID,
			Email:      req.Email,
			Role:       models.RoleTechnician,
			EntityID:   technician.TechnicianID,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Technician onboarded", "technicianId", technician.TechnicianID, "companyId", technician.CompanyID)
	return &technician, nil
}

// CreateOccupant onboards an occupant under an existing property manager
func (s *IdentityService) CreateOccupant(req *models.CreateOccupantRequest) (*models.Occupant, error) {
	if req.Name == "" || req.Email == "" || req.ManagerID == "" || req.HousingUnit == "" {
		return nil, apierrors.Validation("name, email, managerId and housingUnit are required")
	}

	occupant := models.Occupant{
		OccupantID:  "occ_" + uuid.New().String(),
		Name:        req.Name,
		ManagerID:   req.ManagerID,
		HousingUnit: req.HousingUnit,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		tx.Model(&models.PropertyManager{}).Where("manager_id = ?", req.ManagerID).Count(&count)
		if count == 0 {
			return apierrors.Constraintf("property manager %s does not exist", req.ManagerID)
		}

		if err := tx.Create(&occupant).Error; err != nil {
			return fmt.Errorf("failed to create occupant: %w", err)
		}
		return createIdentity(tx, &models.Identity{
			IdentityID: "usr_" + uuid.New().String(),
			Email:      req.Email,
			Role:       models.RoleOccupant,
			EntityID:   occupant.OccupantID,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Occupant onboarded", "occupantId", occupant.OccupantID, "managerId", occupant.ManagerID)
	return &occupant, nil
}

// CreateAdmin onboards a platform-admin identity with no tenant entity
func (s *IdentityService) CreateAdmin(email string) (*models.Identity, error) {
	if email == "" {
		return nil, apierrors.Validation("email is required")
	}
	identity := models.Identity{
		IdentityID: "usr_" + uuid.New().String(),
		Email:      email,
		Role:       models.RoleAdmin,
	}
	if err := s.db.Create(&identity).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin identity: %w", err)
	}
	return &identity, nil
}
