package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
	"github.com/supplyline/datagate/modules/sharing/services"
	"github.com/supplyline/datagate/pkg/composables"
)

func TestLogEvent_SanitizesSnapshotsAndComputesDiff(t *testing.T) {
	repo := &auditRepoFake{}
	svc := services.NewAuditTrailService(repo)

	event, err := svc.LogEvent(context.Background(), services.LogEventParams{
		EventType:  auditevent.EventPOUpdated,
		EntityType: "purchase_order",
		Action:     "update_po",
		OldValues: map[string]any{
			"status":   "draft",
			"password": "hunter2",
		},
		NewValues: map[string]any{
			"status":   "confirmed",
			"password": "hunter2",
			"api_key":  "sk-123",
		},
	})
	require.NoError(t, err)

	require.Equal(t, auditevent.Redacted, event.OldValues["password"])
	require.Equal(t, auditevent.Redacted, event.NewValues["password"])
	require.Equal(t, auditevent.Redacted, event.NewValues["api_key"])
	require.Equal(t, []string{"api_key", "status"}, event.ChangedFields)

	// Zero-value severity defaults to MEDIUM.
	require.Equal(t, auditevent.SeverityMedium, event.Severity)
	require.Len(t, repo.events, 1)
}

func TestLogEvent_EnrichesFromRequestParams(t *testing.T) {
	repo := &auditRepoFake{}
	svc := services.NewAuditTrailService(repo)

	ctx := composables.WithParams(context.Background(), &composables.Params{
		IP:        "203.0.113.9",
		UserAgent: "integration-client/2.1",
		Endpoint:  "/api/v1/purchase-orders/42",
		Method:    "PATCH",
		RequestID: "req-abc",
		SessionID: "sess-def",
	})

	event, err := svc.LogEvent(ctx, services.LogEventParams{
		EventType:  auditevent.EventPOUpdated,
		EntityType: "purchase_order",
		Action:     "update_po",
	})
	require.NoError(t, err)
	require.Equal(t, "203.0.113.9", event.ActorIPAddress)
	require.Equal(t, "PATCH", event.HTTPMethod)
	require.Equal(t, "req-abc", event.RequestID)
	require.Equal(t, "sess-def", event.SessionID)
}

func TestLogEvent_RejectsInvalidInput(t *testing.T) {
	svc := services.NewAuditTrailService(&auditRepoFake{})

	_, err := svc.LogEvent(context.Background(), services.LogEventParams{
		EventType:  "SOMETHING_ELSE",
		EntityType: "purchase_order",
		Action:     "update_po",
	})
	require.Error(t, err)

	_, err = svc.LogEvent(context.Background(), services.LogEventParams{
		EventType:  auditevent.EventPOUpdated,
		EntityType: "purchase_order",
	})
	require.Error(t, err)
}

func TestLogEvent_WriteFailurePropagates(t *testing.T) {
	repo := &auditRepoFake{createErr: errors.New("disk full")}
	svc := services.NewAuditTrailService(repo)

	_, err := svc.LogEvent(context.Background(), services.LogEventParams{
		EventType:  auditevent.EventPOCreated,
		EntityType: "purchase_order",
		Action:     "create_po",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}

func TestWithAudit_CapturesBeforeAndAfterState(t *testing.T) {
	repo := &auditRepoFake{}
	svc := services.NewAuditTrailService(repo)

	entityID := uuid.New()
	state := map[string]any{"status": "draft"}
	svc.RegisterCapturer("purchase_order", func(_ context.Context, id uuid.UUID) (map[string]any, error) {
		require.Equal(t, entityID, id)
		return map[string]any{"status": state["status"]}, nil
	})

	err := svc.WithAudit(context.Background(), services.AuditScope{
		EntityType:   "purchase_order",
		EntityID:     entityID,
		EventType:    auditevent.EventPOConfirmed,
		Action:       "confirm_po",
		CaptureState: true,
	}, func(context.Context) error {
		state["status"] = "confirmed"
		return nil
	})
	require.NoError(t, err)

	require.Len(t, repo.events, 1)
	event := repo.events[0]
	require.Equal(t, "draft", event.OldValues["status"])
	require.Equal(t, "confirmed", event.NewValues["status"])
	require.Equal(t, []string{"status"}, event.ChangedFields)
}

func TestWithAudit_OperationFailureRecordsAuditFailure(t *testing.T) {
	repo := &auditRepoFake{}
	svc := services.NewAuditTrailService(repo)
	cause := errors.New("constraint violation")

	err := svc.WithAudit(context.Background(), services.AuditScope{
		EntityType: "purchase_order",
		EntityID:   uuid.New(),
		EventType:  auditevent.EventPOUpdated,
		Action:     "update_po",
	}, func(context.Context) error {
		return cause
	})
	require.ErrorIs(t, err, cause)

	failures := repo.byType(auditevent.EventAuditFailure)
	require.Len(t, failures, 1)
	require.Equal(t, auditevent.SeverityCritical, failures[0].Severity)
	require.Contains(t, failures[0].Description, "constraint violation")
	// No success event alongside the failure record.
	require.Empty(t, repo.byType(auditevent.EventPOUpdated))
}

func TestWithAudit_AuditWriteFailureFailsOperation(t *testing.T) {
	repo := &auditRepoFake{createErr: errors.New("disk full")}
	svc := services.NewAuditTrailService(repo)

	err := svc.WithAudit(context.Background(), services.AuditScope{
		EntityType: "purchase_order",
		EntityID:   uuid.New(),
		EventType:  auditevent.EventPOUpdated,
		Action:     "update_po",
	}, func(context.Context) error {
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}

func TestEntityTrail_FiltersByEntity(t *testing.T) {
	repo := &auditRepoFake{}
	svc := services.NewAuditTrailService(repo)
	entityID := uuid.New()
	otherID := uuid.New()

	for _, id := range []uuid.UUID{entityID, otherID, entityID} {
		target := id
		_, err := svc.LogEvent(context.Background(), services.LogEventParams{
			EventType:  auditevent.EventPOUpdated,
			EntityType: "purchase_order",
			EntityID:   &target,
			Action:     "update_po",
		})
		require.NoError(t, err)
	}

	trail, err := svc.EntityTrail(context.Background(), "purchase_order", entityID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
}

func TestQueryEvents_ReturnsTotalCount(t *testing.T) {
	repo := &auditRepoFake{}
	svc := services.NewAuditTrailService(repo)

	for i := 0; i < 3; i++ {
		_, err := svc.LogEvent(context.Background(), services.LogEventParams{
			EventType:  auditevent.EventDataExported,
			EntityType: "purchase_order",
			Action:     "export",
		})
		require.NoError(t, err)
	}

	events, total, err := svc.QueryEvents(context.Background(), &auditevent.FindParams{
		EventTypes: []auditevent.EventType{auditevent.EventDataExported},
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.EqualValues(t, 3, total)
}
