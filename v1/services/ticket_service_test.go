package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/v1/models"
)

func TestTicketCreate(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	t.Run("occupant creates with inherited ownership", func(t *testing.T) {
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryPlumbing, SubCategory: "leak",
			Room: "bathroom", Description: "Dripping pipe",
		})
		require.NoError(t, err)

		assert.Equal(t, models.TicketStatusNew, ticket.Status)
		assert.Equal(t, f.Manager.ManagerID, ticket.ManagerID)
		assert.Equal(t, f.Occupant.OccupantID, ticket.OccupantID)
		assert.Equal(t, "B-204", ticket.HousingUnit)
		assert.Equal(t, "CHF", ticket.Currency, "currency inherited from the manager")
		assert.Equal(t, models.PriorityNormal, ticket.Priority)

		history, err := tickets.History(f.OccupantActor, ticket.TicketID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, string(models.TicketStatusNew), history[0].ToStatus)

		var notified int64
		db.Model(&models.Notification{}).
			Where("recipient_id = ? AND entity_id = ?", f.Manager.ManagerID, ticket.TicketID).
			Count(&notified)
		assert.EqualValues(t, 1, notified, "manager is notified of the new request")
	})

	t.Run("only occupants create", func(t *testing.T) {
		_, err := tickets.Create(f.ManagerActor, &models.CreateTicketRequest{
			Category: models.CategoryPlumbing, Description: "Nope",
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		_, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.TicketCategory("gardening"), Description: "Hedge",
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))
	})

	t.Run("sub-category must belong to the category", func(t *testing.T) {
		_, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryPlumbing, SubCategory: "breaker", Description: "Mixed up",
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))
	})
}

func TestTicketValidate(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	newTicket := func(t *testing.T) *models.Ticket {
		t.Helper()
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryHeating, Room: "living room", Description: "Cold radiator",
		})
		require.NoError(t, err)
		return ticket
	}

	t.Run("fixes sub-category, priority and mode", func(t *testing.T) {
		ticket := newTicket(t)
		validated, err := tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
			SubCategory: "radiator", Priority: models.PriorityUrgent,
			DiffusionMode: models.DiffusionGeneral,
		})
		require.NoError(t, err)
		assert.Equal(t, models.TicketStatusValidated, validated.Status)
		assert.Equal(t, "radiator", validated.SubCategory)
		assert.Equal(t, models.PriorityUrgent, validated.Priority)
	})

	t.Run("restricted mode requires designated companies", func(t *testing.T) {
		ticket := newTicket(t)
		_, err := tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
			SubCategory: "radiator", Priority: models.PriorityHigh,
			DiffusionMode: models.DiffusionRestricted,
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))
	})

	t.Run("designated companies must be linked to the manager", func(t *testing.T) {
		_, err := f.identities.CreateManager(&models.CreateManagerRequest{
			Name: "Elsewhere Regie", Email: "elsewhere@regie.test",
		})
		require.NoError(t, err)
		foreign, err := f.identities.CreateCompany(&models.CreateCompanyRequest{
			Name: "Foreign Works", Email: "foreign@works.test",
		})
		require.NoError(t, err)

		ticket := newTicket(t)
		_, err = tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
			SubCategory: "radiator", Priority: models.PriorityHigh,
			DiffusionMode: models.DiffusionRestricted,
			CompanyIDs:    []string{foreign.CompanyID},
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindConstraintViolation))
	})

	t.Run("validating twice is an invalid transition", func(t *testing.T) {
		ticket := newTicket(t)
		req := &models.ValidateTicketRequest{
			SubCategory: "boiler", Priority: models.PriorityNormal,
			DiffusionMode: models.DiffusionGeneral,
		}
		_, err := tickets.Validate(f.ManagerActor, ticket.TicketID, req)
		require.NoError(t, err)
		_, err = tickets.Validate(f.ManagerActor, ticket.TicketID, req)
		assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidStateTransition))
	})
}

func TestTicketDiffuse(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	t.Run("general diffusion notifies every linked company", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		assert.Equal(t, models.TicketStatusDiffused, ticket.Status)

		var recipients []string
		db.Model(&models.Notification{}).
			Where("entity_id = ? AND subject = ?", ticket.TicketID, "Work available").
			Pluck("recipient_id", &recipients)
		assert.ElementsMatch(t, []string{f.CompanyA.CompanyID, f.CompanyB.CompanyID}, recipients)
	})

	t.Run("mode override applies at diffusion", func(t *testing.T) {
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryLocksmith, Description: "Stuck lock",
		})
		require.NoError(t, err)
		_, err = tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
			SubCategory: "lock", Priority: models.PriorityNormal,
			DiffusionMode: models.DiffusionRestricted,
			CompanyIDs:    []string{f.CompanyA.CompanyID},
		})
		require.NoError(t, err)

		diffused, err := tickets.Diffuse(f.ManagerActor, ticket.TicketID, &models.DiffuseTicketRequest{
			Mode: models.DiffusionGeneral,
		})
		require.NoError(t, err)
		assert.Equal(t, models.DiffusionGeneral, diffused.DiffusionMode)
	})

	t.Run("diffusing a new ticket is an invalid transition", func(t *testing.T) {
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryOther, Description: "Misc",
		})
		require.NoError(t, err)
		_, err = tickets.Diffuse(f.ManagerActor, ticket.TicketID, &models.DiffuseTicketRequest{})
		assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidStateTransition))
	})
}

func TestTicketAccept(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	t.Run("first writer wins, loser gets already accepted", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)

		mission, err := tickets.Accept(f.CompanyAActor, ticket.TicketID, &models.AcceptTicketRequest{})
		require.NoError(t, err)
		assert.Equal(t, models.MissionStatusPending, mission.Status)
		assert.Equal(t, f.CompanyA.CompanyID, mission.CompanyID)
		assert.Equal(t, ticket.Currency, mission.Currency)

		_, err = tickets.Accept(f.CompanyBActor, ticket.TicketID, &models.AcceptTicketRequest{})
		require.Error(t, err)
		assert.True(t, apierrors.IsKind(err, apierrors.KindAlreadyAccepted))

		var missionCount int64
		db.Model(&models.Mission{}).Where("ticket_id = ?", ticket.TicketID).Count(&missionCount)
		assert.EqualValues(t, 1, missionCount, "exactly one mission per ticket")
	})

	t.Run("company cannot accept on behalf of another", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		_, err := tickets.Accept(f.CompanyAActor, ticket.TicketID, &models.AcceptTicketRequest{
			CompanyID: f.CompanyB.CompanyID,
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})

	t.Run("occupant cannot accept", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		_, err := tickets.Accept(f.OccupantActor, ticket.TicketID, &models.AcceptTicketRequest{})
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})

	t.Run("undesignated company cannot accept a restricted ticket", func(t *testing.T) {
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryAppliance, Description: "Broken oven",
		})
		require.NoError(t, err)
		_, err = tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
			SubCategory: "oven", Priority: models.PriorityNormal,
			DiffusionMode: models.DiffusionRestricted,
			CompanyIDs:    []string{f.CompanyB.CompanyID},
		})
		require.NoError(t, err)
		_, err = tickets.Diffuse(f.ManagerActor, ticket.TicketID, &models.DiffuseTicketRequest{})
		require.NoError(t, err)

		_, err = tickets.Accept(f.CompanyAActor, ticket.TicketID, &models.AcceptTicketRequest{})
		assert.True(t, apierrors.IsKind(err, apierrors.KindOwnership))
	})

	t.Run("designated company losing the race gets already accepted", func(t *testing.T) {
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryHeating, Description: "Cold radiator",
		})
		require.NoError(t, err)
		_, err = tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
			SubCategory: "radiator", Priority: models.PriorityNormal,
			DiffusionMode: models.DiffusionRestricted,
			CompanyIDs:    []string{f.CompanyA.CompanyID, f.CompanyB.CompanyID},
		})
		require.NoError(t, err)
		_, err = tickets.Diffuse(f.ManagerActor, ticket.TicketID, &models.DiffuseTicketRequest{})
		require.NoError(t, err)

		_, err = tickets.Accept(f.CompanyBActor, ticket.TicketID, &models.AcceptTicketRequest{})
		require.NoError(t, err)

		_, err = tickets.Accept(f.CompanyAActor, ticket.TicketID, &models.AcceptTicketRequest{})
		assert.True(t, apierrors.IsKind(err, apierrors.KindAlreadyAccepted),
			"a designated company must see the race outcome, not an ownership denial")
	})

	t.Run("admin accepts on behalf of a named company", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		mission, err := tickets.Accept(f.AdminActor, ticket.TicketID, &models.AcceptTicketRequest{
			CompanyID: f.CompanyB.CompanyID,
		})
		require.NoError(t, err)
		assert.Equal(t, f.CompanyB.CompanyID, mission.CompanyID)
	})

	t.Run("admin must name a company", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		_, err := tickets.Accept(f.AdminActor, ticket.TicketID, &models.AcceptTicketRequest{})
		assert.True(t, apierrors.IsKind(err, apierrors.KindValidation))

		var missionCount int64
		db.Model(&models.Mission{}).Where("ticket_id = ?", ticket.TicketID).Count(&missionCount)
		assert.EqualValues(t, 0, missionCount, "no mission without an owning company")
	})

	t.Run("admin cannot name an unknown company", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		_, err := tickets.Accept(f.AdminActor, ticket.TicketID, &models.AcceptTicketRequest{
			CompanyID: "cmp_does_not_exist",
		})
		assert.True(t, apierrors.IsKind(err, apierrors.KindConstraintViolation))
	})

	t.Run("acceptance notifies manager and occupant", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		_, err := tickets.Accept(f.CompanyAActor, ticket.TicketID, &models.AcceptTicketRequest{})
		require.NoError(t, err)

		var recipients []string
		db.Model(&models.Notification{}).
			Where("entity_id = ? AND subject = ?", ticket.TicketID, "Request accepted").
			Pluck("recipient_id", &recipients)
		assert.ElementsMatch(t, []string{f.Manager.ManagerID, f.Occupant.OccupantID}, recipients)
	})
}

func TestTicketReject(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	tickets := NewTicketService(db, NewNotificationService(db))

	t.Run("rejects from new", func(t *testing.T) {
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryOther, Description: "Noise complaint",
		})
		require.NoError(t, err)

		rejected, err := tickets.Reject(f.ManagerActor, ticket.TicketID, &models.RejectTicketRequest{
			Reason: "not a maintenance matter",
		})
		require.NoError(t, err)
		assert.Equal(t, models.TicketStatusRejected, rejected.Status)
	})

	t.Run("rejects from validated", func(t *testing.T) {
		ticket, err := tickets.Create(f.OccupantActor, &models.CreateTicketRequest{
			Category: models.CategoryPlumbing, Description: "Small drip",
		})
		require.NoError(t, err)
		_, err = tickets.Validate(f.ManagerActor, ticket.TicketID, &models.ValidateTicketRequest{
			SubCategory: "leak", Priority: models.PriorityLow, DiffusionMode: models.DiffusionGeneral,
		})
		require.NoError(t, err)

		_, err = tickets.Reject(f.ManagerActor, ticket.TicketID, &models.RejectTicketRequest{Reason: "duplicate"})
		assert.NoError(t, err)
	})

	t.Run("cannot reject after diffusion", func(t *testing.T) {
		ticket := advanceToDiffused(t, f, tickets)
		_, err := tickets.Reject(f.ManagerActor, ticket.TicketID, &models.RejectTicketRequest{Reason: "too late"})
		assert.True(t, apierrors.IsKind(err, apierrors.KindInvalidStateTransition))
	})
}

func TestTicketHistoryChain(t *testing.T) {
	db := setupTestDB(t)
	f := seedWorkflowFixture(t, db)
	notifications := NewNotificationService(db)
	tickets := NewTicketService(db, notifications)
	missions := NewMissionService(db, notifications)

	mission := advanceToValidatedMission(t, f, tickets, missions)

	history, err := tickets.History(f.ManagerActor, mission.TicketID)
	require.NoError(t, err)
	require.Len(t, history, 5)

	transitions := make([][2]string, 0, len(history))
	for _, entry := range history {
		transitions = append(transitions, [2]string{entry.FromStatus, entry.ToStatus})
	}
	assert.Equal(t, [][2]string{
		{"", "new"},
		{"new", "validated"},
		{"validated", "diffused"},
		{"diffused", "accepted"},
		{"accepted", "locked"},
	}, transitions)
}
