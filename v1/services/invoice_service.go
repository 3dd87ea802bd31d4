package services

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

// InvoiceService owns the invoice engine: the line ledger, the deterministic
// totals recomputation, and the draft → sent → (paid | rejected) state
// machine. Totals are recomputed and persisted in the same transaction as
// every line mutation, so a committed line write can never leave totals stale.
type InvoiceService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(db *gorm.DB, notifications *NotificationService) *InvoiceService {
	return &InvoiceService{db: db, notifications: notifications}
}

// InvoiceTotals is the result of one recomputation pass
type InvoiceTotals struct {
	Net        float64 `json:"net"`
	Tax        float64 `json:"tax"`
	Commission float64 `json:"commission"`
	Gross      float64 `json:"gross"`
}

// ComputeTotals derives the four total stages from the line set. Discount
// lines carry a negative unit price and participate in the net sum like any
// other line. The computation is deterministic: re-running it on an unchanged
// line set yields identical values.
func ComputeTotals(lines []models.InvoiceLine, taxRate, commissionRate float64) InvoiceTotals {
	var net float64
	for _, line := range lines {
		net += line.Amount()
	}
	net = round2(net)
	tax := round2(net * taxRate)
	commission := round2(net * commissionRate)
	return InvoiceTotals{
		Net:        net,
		Tax:        tax,
		Commission: commission,
		Gross:      round2(net + tax + commission),
	}
}

// round2 rounds half away from zero to 2 decimals
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GenerateFromMission creates an empty draft invoice from a validated
// mission. Currency comes from the mission; tax and commission rates default
// to the owning company's configured rates unless overridden.
func (s *InvoiceService) GenerateFromMission(actor models.ResolvedIdentity, missionID string, req *models.GenerateInvoiceRequest) (*models.Invoice, error) {
	if req == nil {
		req = &models.GenerateInvoiceRequest{}
	}
	if req.TaxRate != nil && *req.TaxRate < 0 {
		return nil, apierrors.Validation("tax rate must not be negative")
	}
	if req.CommissionRate != nil && *req.CommissionRate < 0 {
		return nil, apierrors.Validation("commission rate must not be negative")
	}

	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var mission models.Mission
		if err := loadMissionTx(tx, missionID, &mission); err != nil {
			return err
		}
		if err := authorizeMissionCompanyWrite(actor, &mission); err != nil {
			return err
		}
		if mission.Status != models.MissionStatusValidated {
			return apierrors.MissionNotReady(missionID, string(mission.Status))
		}

		var existing int64
		tx.Model(&models.Invoice{}).Where("mission_id = ?", missionID).Count(&existing)
		if existing > 0 {
			return apierrors.Constraintf("mission %s already has an invoice", missionID)
		}

		var company models.ServiceCompany
		if err := tx.Where("company_id = ?", mission.CompanyID).First(&company).Error; err != nil {
			return apierrors.Constraintf("service company %s does not exist", mission.CompanyID)
		}
		managerID := missionManagerID(tx, &mission)
		if managerID == "" {
			return apierrors.Constraintf("mission %s has no owning manager chain", missionID)
		}

		taxRate := company.TaxRate
		if req.TaxRate != nil {
			taxRate = *req.TaxRate
		}
		commissionRate := company.CommissionRate
		if req.CommissionRate != nil {
			commissionRate = *req.CommissionRate
		}

		invoice = models.Invoice{
			InvoiceID:      "inv_" + uuid.New().String(),
			MissionID:      missionID,
			CompanyID:      mission.CompanyID,
			ManagerID:      managerID,
			Currency:       mission.Currency,
			TaxRate:        taxRate,
			CommissionRate: commissionRate,
			Status:         models.InvoiceStatusDraft,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		if err := recordHistoryTx(tx, models.EntityTypeInvoice, invoice.InvoiceID,
			"", string(models.InvoiceStatusDraft), actor.EntityID, ""); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, []string{managerID},
			models.EntityTypeInvoice, invoice.InvoiceID,
			"Invoice drafted",
			fmt.Sprintf("Invoice %s was generated from mission %s", invoice.InvoiceID, missionID))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Invoice generated", "invoiceId", invoice.InvoiceID, "missionId", missionID)
	return &invoice, nil
}

// AddLine appends a line to a draft invoice and recomputes totals atomically
func (s *InvoiceService) AddLine(actor models.ResolvedIdentity, invoiceID string, req *models.InvoiceLineRequest) (*models.Invoice, error) {
	if err := validateLineRequest(req); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.editableInvoiceTx(tx, actor, invoiceID)
		if err != nil {
			return err
		}

		var maxPosition int
		row := tx.Model(&models.InvoiceLine{}).
			Where("invoice_id = ?", invoiceID).
			Select("COALESCE(MAX(position), 0)").Row()
		if err := row.Scan(&maxPosition); err != nil {
			return fmt.Errorf("failed to determine line position: %w", err)
		}

		line := models.InvoiceLine{
			LineID:      "lin_" + uuid.New().String(),
			InvoiceID:   invoiceID,
			LineType:    req.LineType,
			Description: req.Description,
			Quantity:    req.Quantity,
			Unit:        req.Unit,
			UnitPrice:   req.UnitPrice,
			Position:    maxPosition + 1,
		}
		if err := tx.Create(&line).Error; err != nil {
			return fmt.Errorf("failed to create invoice line: %w", err)
		}

		return s.recomputeTx(tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(invoiceID)
}

// EditLine updates a line of a draft invoice and recomputes totals atomically
func (s *InvoiceService) EditLine(actor models.ResolvedIdentity, invoiceID, lineID string, req *models.InvoiceLineRequest) (*models.Invoice, error) {
	if err := validateLineRequest(req); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.editableInvoiceTx(tx, actor, invoiceID)
		if err != nil {
			return err
		}

		result := tx.Model(&models.InvoiceLine{}).
			Where("line_id = ? AND invoice_id = ?", lineID, invoiceID).
			Updates(map[string]interface{}{
				"line_type":   req.LineType,
				"description": req.Description,
				"quantity":    req.Quantity,
				"unit":        req.Unit,
				"unit_price":  req.UnitPrice,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to edit invoice line: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.NotFound("invoice line " + lineID)
		}

		return s.recomputeTx(tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(invoiceID)
}

// RemoveLine deletes a line from a draft invoice and recomputes totals
func (s *InvoiceService) RemoveLine(actor models.ResolvedIdentity, invoiceID, lineID string) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		invoice, err := s.editableInvoiceTx(tx, actor, invoiceID)
		if err != nil {
			return err
		}

		result := tx.Where("line_id = ? AND invoice_id = ?", lineID, invoiceID).
			Delete(&models.InvoiceLine{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove invoice line: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.NotFound("invoice line " + lineID)
		}

		return s.recomputeTx(tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(invoiceID)
}

// Send freezes the line set and moves the invoice to sent
func (s *InvoiceService) Send(actor models.ResolvedIdentity, invoiceID string) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := loadInvoiceTx(tx, invoiceID, &invoice); err != nil {
			return err
		}
		if err := AuthorizeInvoiceEdit(actor, &invoice); err != nil {
			return err
		}

		result := tx.Model(&models.Invoice{}).
			Where("invoice_id = ? AND status = ?", invoiceID, models.InvoiceStatusDraft).
			Update("status", models.InvoiceStatusSent)
		if result.Error != nil {
			return fmt.Errorf("failed to send invoice: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("invoice", "send", string(invoice.Status))
		}

		if err := recordHistoryTx(tx, models.EntityTypeInvoice, invoiceID,
			string(models.InvoiceStatusDraft), string(models.InvoiceStatusSent), actor.EntityID, ""); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, []string{invoice.ManagerID},
			models.EntityTypeInvoice, invoiceID,
			"Invoice received",
			fmt.Sprintf("Invoice %s (%.2f %s) awaits settlement", invoiceID, invoice.GrossTotal, invoice.Currency))
	})
	if err != nil {
		return nil, err
	}

	return s.reload(invoiceID)
}

// MarkPaid settles a sent invoice. Only the billed property manager or the
// platform admin may settle.
func (s *InvoiceService) MarkPaid(actor models.ResolvedIdentity, invoiceID string) (*models.Invoice, error) {
	return s.settle(actor, invoiceID, models.InvoiceStatusPaid, "")
}

// Reject refuses a sent invoice with a reason. Same callers as MarkPaid.
func (s *InvoiceService) Reject(actor models.ResolvedIdentity, invoiceID string, req *models.RejectInvoiceRequest) (*models.Invoice, error) {
	return s.settle(actor, invoiceID, models.InvoiceStatusRejected, req.Reason)
}

func (s *InvoiceService) settle(actor models.ResolvedIdentity, invoiceID string, target models.InvoiceStatus, reason string) (*models.Invoice, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := loadInvoiceTx(tx, invoiceID, &invoice); err != nil {
			return err
		}
		if err := AuthorizeInvoiceSettlement(actor, &invoice); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": target}
		if target == models.InvoiceStatusRejected {
			updates["rejection_reason"] = reason
		}
		result := tx.Model(&models.Invoice{}).
			Where("invoice_id = ? AND status = ?", invoiceID, models.InvoiceStatusSent).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to settle invoice: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apierrors.InvalidStateTransition("invoice", string(target), string(invoice.Status))
		}

		if err := recordHistoryTx(tx, models.EntityTypeInvoice, invoiceID,
			string(models.InvoiceStatusSent), string(target), actor.EntityID, reason); err != nil {
			return err
		}
		return s.notifications.EnqueueTx(tx, []string{invoice.CompanyID},
			models.EntityTypeInvoice, invoiceID,
			fmt.Sprintf("Invoice %s", target), reason)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(invoiceID)
}

// Get returns one invoice after the read-side ownership check
func (s *InvoiceService) Get(actor models.ResolvedIdentity, invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Where("invoice_id = ?", invoiceID).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierrors.NotFound("invoice " + invoiceID)
	}
	if err != nil {
		return nil, apierrors.Internal("invoice lookup failed", err)
	}
	if err := AuthorizeInvoiceRead(actor, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Lines returns the ordered line set of an invoice
func (s *InvoiceService) Lines(actor models.ResolvedIdentity, invoiceID string) ([]models.InvoiceLine, error) {
	if _, err := s.Get(actor, invoiceID); err != nil {
		return nil, err
	}
	var lines []models.InvoiceLine
	if err := s.db.Where("invoice_id = ?", invoiceID).
		Order("position ASC").Find(&lines).Error; err != nil {
		return nil, apierrors.Internal("invoice line list failed", err)
	}
	return lines, nil
}

// List returns the invoices visible to the identity
func (s *InvoiceService) List(actor models.ResolvedIdentity) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := ScopeInvoices(s.db.Model(&models.Invoice{}), actor).
		Order("created_at DESC").Find(&invoices).Error; err != nil {
		return nil, apierrors.Internal("invoice list failed", err)
	}
	return invoices, nil
}

// editableInvoiceTx loads the invoice inside the transaction and enforces the
// edit-lock: only a draft invoice accepts line mutations.
func (s *InvoiceService) editableInvoiceTx(tx *gorm.DB, actor models.ResolvedIdentity, invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := loadInvoiceTx(tx, invoiceID, &invoice); err != nil {
		return nil, err
	}
	if err := AuthorizeInvoiceEdit(actor, &invoice); err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return nil, apierrors.InvoiceNotEditable(invoiceID, string(invoice.Status))
	}
	return &invoice, nil
}

// recomputeTx re-derives all four totals from the current line set and
// persists them in the caller's transaction. A net driven negative by
// discounts is rejected, rolling back the triggering line mutation.
func (s *InvoiceService) recomputeTx(tx *gorm.DB, invoice *models.Invoice) error {
	var lines []models.InvoiceLine
	if err := tx.Where("invoice_id = ?", invoice.InvoiceID).Find(&lines).Error; err != nil {
		return fmt.Errorf("failed to load invoice lines: %w", err)
	}

	totals := ComputeTotals(lines, invoice.TaxRate, invoice.CommissionRate)
	if totals.Net < 0 {
		return apierrors.Validationf("discounts exceed the invoice net (%.2f)", totals.Net)
	}

	result := tx.Model(&models.Invoice{}).
		Where("invoice_id = ?", invoice.InvoiceID).
		Updates(map[string]interface{}{
			"net_total":        totals.Net,
			"tax_total":        totals.Tax,
			"commission_total": totals.Commission,
			"gross_total":      totals.Gross,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to persist invoice totals: %w", result.Error)
	}
	return nil
}

func validateLineRequest(req *models.InvoiceLineRequest) error {
	if !req.LineType.IsValid() {
		return apierrors.Validationf("unknown line type %q", req.LineType)
	}
	if req.Description == "" {
		return apierrors.Validation("description is required")
	}
	if req.Quantity <= 0 {
		return apierrors.Validation("quantity must be positive")
	}
	if req.LineType != models.LineTypeDiscount && req.UnitPrice < 0 {
		return apierrors.Validation("only discount lines may carry a negative unit price")
	}
	return nil
}

func (s *InvoiceService) reload(invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.Where("invoice_id = ?", invoiceID).First(&invoice).Error; err != nil {
		return nil, apierrors.Internal("invoice reload failed", err)
	}
	return &invoice, nil
}

func loadInvoiceTx(tx *gorm.DB, invoiceID string, invoice *models.Invoice) error {
	err := tx.Where("invoice_id = ?", invoiceID).First(invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NotFound("invoice " + invoiceID)
	}
	if err != nil {
		return apierrors.Internal("invoice lookup failed", err)
	}
	return nil
}
