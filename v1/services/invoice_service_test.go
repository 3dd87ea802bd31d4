package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

func TestComputeTotals(t *testing.T) {
	t.Run("mixed line set with a discount", func(t *testing.T) {
		lines := []models.InvoiceLine{
			{LineType: models.LineTypeMaterial, Quantity: 10, UnitPrice: 25.50},
			{LineType: models.LineTypeLabor, Quantity: 4.5, UnitPrice: 80.00},
			{LineType: models.LineTypeTravel, Quantity: 62, UnitPrice: 0.70},
			{LineType: models.LineTypeDiscount, Quantity: 1, UnitPrice: -50.00},
		}
		totals := ComputeTotals(lines, 0.081, 0.02)

		assert.Equal(t, 608.40, totals.Net)
		assert.Equal(t, 49.28, totals.Tax)
		assert.Equal(t, 12.17, totals.Commission)
		assert.Equal(t, 669.85, totals.Gross)
	})

	t.Run("recomputation is deterministic", func(t *testing.T) {
		lines := []models.InvoiceLine{
			{LineType: models.LineTypeLabor, Quantity: 3, UnitPrice: 33.33},
			{LineType: models.LineTypeMaterial, Quantity: 7, UnitPrice: 1.01},
		}
		first := ComputeTotals(lines, 0.077, 0.015)
		second := ComputeTotals(lines, 0.077, 0.015)
		assert.Equal(t, first, second)
	})

	t.Run("empty line set yields zero totals", func(t *testing.T) {
		totals := ComputeTotals(nil, 0.2, 0.05)
		assert.Zero(t, totals.Net)
		assert.Zero(t, totals.Gross)
	})

	t.Run("rounding is half away from zero", func(t *testing.T) {
		lines := []models.InvoiceLine{
			{LineType: models.LineTypeLabor, Quantity: 1, UnitPrice: 0.125},
		}
		totals := ComputeTotals(lines, 0, 0)
		assert.Equal(t, 0.13, totals.Net)
	})
}

func newInvoiceFixture(t *testing.T) (*workflowFixture, *InvoiceService, *models.Invoice) {
	t.Helper()
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	notifications := NewNotificationService(db)
	tickets := NewTicketService(db, notifications)
	missions := NewMissionService(db, notifications)
	invoices := NewInvoiceService(db, notifications)

	mission := advanceToValidatedMission(t, f, tickets, missions)
	invoice, err := invoices.GenerateFromMission(f.CompanyAActor, mission.MissionID, nil)
	require.NoError(t, err)
	return f, invoices, invoice
}

func TestInvoiceGenerate(t *testing.T) {
	t.Run("draft inherits company rates and mission currency", func(t *testing.T) {
		f, _, invoice := newInvoiceFixture(t)
		assert.Equal(t, models.InvoiceStatusDraft, invoice.Status)
		assert.Equal(t, f.CompanyA.CompanyID, invoice.CompanyID)
		assert.Equal(t, f.Manager.ManagerID, invoice.ManagerID)
		assert.Equal(t, "CHF", invoice.Currency)
		assert.Equal(t, 0.081, invoice.TaxRate)
		assert.Equal(t, 0.02, invoice.CommissionRate)
		assert.Zero(t, invoice.GrossTotal)
	})

	t.Run("rate overrides apply", func(t *testing.T) {
		db := setupTestDB(t)
		f := seedWorkflowFixture(t, db)
		notifications := NewNotificationService(db)
		tickets := NewTicketService(db, notifications)
		missions := NewMissionService(db, notifications)
		invoices := NewInvoiceService(db, notifications)
		mission := advanceToValidatedMission(t, f, tickets, missions)

		taxRate, commissionRate := 0.0, 0.03
		invoice, err := invoices.GenerateFromMission(f.CompanyAActor, mission.MissionID,
			&models.GenerateInvoiceRequest{TaxRate: &taxRate, CommissionRate: &commissionRate})
		require.NoError(t, err)
		assert.Zero(t, invoice.TaxRate)
		assert.Equal(t, 0.03, invoice.CommissionRate)
	})

	t.Run("requires a validated mission", func(t *testing.T) {
		db := setupTestDB(t)
		f := seedWorkflowFixture(t, db)
		notifications := NewNotificationService(db)
		tickets := NewTicketService(db, notifications)
		invoices := NewInvoiceService(db, notifications)

		ticket := advanceToDiffused(t, f, tickets)
		mission, err := tickets.Accept(f.CompanyAActor, ticket.TicketID, &models.AcceptTicketRequest{})
		require.NoError(t, err)

		_, err = invoices.GenerateFromMission(f.CompanyAActor, mission.MissionID, nil)
		require.Error(t, err)
		assert.True(t, apierrors.IsKind(err, apierrors.KindMissionNotReady))
	})

	t.Run("one invoice per mission", func(t *testing.T) {
		f, invoices, invoice := newInvoiceFixture(t)
		_, err := invoices.GenerateFromMission(f.CompanyAActor, invoice.MissionID, nil)
		require.Error(t, err)
		assert.True(t, apierrors.IsKind(err, apierrors.KindConstraintViolation))
	})

	t.Run("manager cannot generate", func(t *testing.T) {
		db := setupTestDB(t)
		f := seedWorkflowFixture(t, db)
		notifications := NewNotificationService(db)
		tickets := NewTicketService(db, notifications)
		missions := NewMissionService(db, notifications)
		invoices := NewInvoiceService(db, notifications)
		mission := advanceToValidatedMission(t, f, tickets, missions)

		_, err := invoices.GenerateFromMission(f.ManagerActor, mission.MissionID, nil)
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})
}

func TestInvoiceLines(t *testing.T) {
	f, invoices, invoice := newInvoiceFixture(t)

	t.Run("lines accumulate with recomputed totals", func(t *testing.T) {
		_, err := invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeMaterial, Description: "PVC pipe 32mm",
			Quantity: 10, Unit: "pc", UnitPrice: 25.50,
		})
		require.NoError(t, err)
		_, err = invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeLabor, Description: "Plumbing work",
			Quantity: 4.5, Unit: "h", UnitPrice: 80.00,
		})
		require.NoError(t, err)
		_, err = invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeTravel, Description: "Mileage",
			Quantity: 62, Unit: "km", UnitPrice: 0.70,
		})
		require.NoError(t, err)
		updated, err := invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeDiscount, Description: "Loyalty discount",
			Quantity: 1, Unit: "pc", UnitPrice: -50.00,
		})
		require.NoError(t, err)

		assert.Equal(t, 608.40, updated.NetTotal)
		assert.Equal(t, 49.28, updated.TaxTotal)
		assert.Equal(t, 12.17, updated.CommissionTotal)
		assert.Equal(t, 669.85, updated.GrossTotal)

		lines, err := invoices.Lines(f.CompanyAActor, invoice.InvoiceID)
		require.NoError(t, err)
		require.Len(t, lines, 4)
		assert.Equal(t, []int{1, 2, 3, 4}, []int{
			lines[0].Position, lines[1].Position, lines[2].Position, lines[3].Position,
		})
	})

	t.Run("editing a line recomputes totals", func(t *testing.T) {
		lines, err := invoices.Lines(f.CompanyAActor, invoice.InvoiceID)
		require.NoError(t, err)

		updated, err := invoices.EditLine(f.CompanyAActor, invoice.InvoiceID, lines[0].LineID,
			&models.InvoiceLineRequest{
				LineType: models.LineTypeMaterial, Description: "PVC pipe 40mm",
				Quantity: 10, Unit: "pc", UnitPrice: 30.00,
			})
		require.NoError(t, err)
		assert.Equal(t, 653.40, updated.NetTotal)
	})

	t.Run("removing a line recomputes totals", func(t *testing.T) {
		lines, err := invoices.Lines(f.CompanyAActor, invoice.InvoiceID)
		require.NoError(t, err)
		var discountID string
		for _, line := range lines {
			if line.LineType == models.LineTypeDiscount {
				discountID = line.LineID
			}
		}
		require.NotEmpty(t, discountID)

		updated, err := invoices.RemoveLine(f.CompanyAActor, invoice.InvoiceID, discountID)
		require.NoError(t, err)
		assert.Equal(t, 703.40, updated.NetTotal)
	})

	t.Run("unknown line is not found", func(t *testing.T) {
		_, err := invoices.RemoveLine(f.CompanyAActor, invoice.InvoiceID, "lin_missing")
		assert.True(t, apierrors.IsKind(err, apierrors.KindNotFound))
	})

	t.Run("manager cannot touch the line ledger", func(t *testing.T) {
		_, err := invoices.AddLine(f.ManagerActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeLabor, Description: "Sneaky", Quantity: 1, UnitPrice: 1,
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})
}

func TestInvoiceLineValidation(t *testing.T) {
	f, invoices, invoice := newInvoiceFixture(t)

	cases := []struct {
		name string
		req  models.InvoiceLineRequest
	}{
		{"unknown line type", models.InvoiceLineRequest{
			LineType: models.LineType("fees"), Description: "x", Quantity: 1, UnitPrice: 1}},
		{"missing description", models.InvoiceLineRequest{
			LineType: models.LineTypeLabor, Quantity: 1, UnitPrice: 1}},
		{"zero quantity", models.InvoiceLineRequest{
			LineType: models.LineTypeLabor, Description: "x", Quantity: 0, UnitPrice: 1}},
		{"negative price outside discount", models.InvoiceLineRequest{
			LineType: models.LineTypeLabor, Description: "x", Quantity: 1, UnitPrice: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &req)
			require.Error(t, err)
			assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))
		})
	}

	t.Run("discount driving the net negative rolls back", func(t *testing.T) {
		_, err := invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeLabor, Description: "Work", Quantity: 1, UnitPrice: 100,
		})
		require.NoError(t, err)

		_, err = invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeDiscount, Description: "Too generous", Quantity: 1, UnitPrice: -500,
		})
		require.Error(t, err)
		assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))

		lines, err := invoices.Lines(f.CompanyAActor, invoice.InvoiceID)
		require.NoError(t, err)
		assert.Len(t, lines, 1, "the rejected line must not persist")

		current, err := invoices.Get(f.CompanyAActor, invoice.InvoiceID)
		require.NoError(t, err)
		assert.Equal(t, 100.00, current.NetTotal)
	})
}

func TestInvoiceLifecycle(t *testing.T) {
	f, invoices, invoice := newInvoiceFixture(t)
	_, err := invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
		LineType: models.LineTypeLabor, Description: "Repair", Quantity: 2, UnitPrice: 120,
	})
	require.NoError(t, err)

	t.Run("manager cannot send", func(t *testing.T) {
		_, err := invoices.Send(f.ManagerActor, invoice.InvoiceID)
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})

	t.Run("company sends the draft", func(t *testing.T) {
		sent, err := invoices.Send(f.CompanyAActor, invoice.InvoiceID)
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceStatusSent, sent.Status)
	})

	t.Run("sent invoice rejects line mutations", func(t *testing.T) {
		_, err := invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
			LineType: models.LineTypeLabor, Description: "Late addition", Quantity: 1, UnitPrice: 10,
		})
		require.Error(t, err)
		assert.True(t, apierrors.IsKind(err, apierrors.KindInvoiceNotEditable))
	})

	t.Run("company cannot settle", func(t *testing.T) {
		_, err := invoices.MarkPaid(f.CompanyAActor, invoice.InvoiceID)
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})

	t.Run("manager settles as paid", func(t *testing.T) {
		paid, err := invoices.MarkPaid(f.ManagerActor, invoice.InvoiceID)
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	})

	t.Run("paid is terminal", func(t *testing.T) {
		_, err := invoices.Reject(f.ManagerActor, invoice.InvoiceID, &models.RejectInvoiceRequest{Reason: "late"})
		assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidStateTransition))
	})
}

func TestInvoiceReject(t *testing.T) {
	f, invoices, invoice := newInvoiceFixture(t)
	_, err := invoices.AddLine(f.CompanyAActor, invoice.InvoiceID, &models.InvoiceLineRequest{
		LineType: models.LineTypeLabor, Description: "Repair", Quantity: 1, UnitPrice: 90,
	})
	require.NoError(t, err)
	_, err = invoices.Send(f.CompanyAActor, invoice.InvoiceID)
	require.NoError(t, err)

	rejected, err := invoices.Reject(f.ManagerActor, invoice.InvoiceID, &models.RejectInvoiceRequest{
		Reason: "hours billed exceed the report",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusRejected, rejected.Status)
	assert.Equal(t, "hours billed exceed the report", rejected.RejectionReason)
}
