package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
	"github.com/supplyline/datagate/pkg/composables"
	"github.com/supplyline/datagate/pkg/metrics"
)

// StateCapturer snapshots the current persisted field values of one entity.
// Capturers are registered per entity type by the subsystems that own those
// entities.
type StateCapturer func(ctx context.Context, entityID uuid.UUID) (map[string]any, error)

// AuditTrailService writes the immutable compliance record. Unlike access
// attempts, a failed audit write always propagates and aborts the triggering
// operation.
type AuditTrailService struct {
	events auditevent.Repository

	mu        sync.RWMutex
	capturers map[string]StateCapturer
}

func NewAuditTrailService(events auditevent.Repository) *AuditTrailService {
	return &AuditTrailService{
		events:    events,
		capturers: map[string]StateCapturer{},
	}
}

// RegisterCapturer installs the state-snapshot function for an entity type.
func (s *AuditTrailService) RegisterCapturer(entityType string, capture StateCapturer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturers[entityType] = capture
}

// LogEventParams carries everything LogEvent needs. Zero-value Severity
// defaults to MEDIUM.
type LogEventParams struct {
	EventType      auditevent.EventType
	EntityType     string
	EntityID       *uuid.UUID
	Action         string
	Description    string
	ActorUserID    *uuid.UUID
	ActorCompanyID *uuid.UUID
	OldValues      map[string]any
	NewValues      map[string]any
	// ChangedFields overrides the computed old/new diff when set.
	ChangedFields   []string
	Severity        auditevent.Severity
	Metadata        map[string]any
	BusinessContext string
	IsSensitive     bool
	ComplianceTags  []string
}

// LogEvent sanitizes the snapshots, computes the changed-field diff and writes
// one audit event. The write error, if any, is returned to the caller: audit
// failure must abort the operation being audited.
func (s *AuditTrailService) LogEvent(ctx context.Context, params LogEventParams) (*auditevent.AuditEvent, error) {
	if !params.EventType.Valid() {
		return nil, fmt.Errorf("invalid audit event type %q", params.EventType)
	}
	severity := params.Severity
	if severity == "" {
		severity = auditevent.SeverityMedium
	}
	if !severity.Valid() {
		return nil, fmt.Errorf("invalid audit severity %q", params.Severity)
	}
	if params.Action == "" {
		return nil, fmt.Errorf("audit action is required")
	}

	oldValues := auditevent.Sanitize(params.OldValues)
	newValues := auditevent.Sanitize(params.NewValues)

	changedFields := params.ChangedFields
	if changedFields == nil {
		changedFields = auditevent.ChangedFields(oldValues, newValues)
	}

	event := &auditevent.AuditEvent{
		EventType:       params.EventType,
		Severity:        severity,
		EntityType:      params.EntityType,
		EntityID:        params.EntityID,
		ActorUserID:     params.ActorUserID,
		ActorCompanyID:  params.ActorCompanyID,
		Action:          params.Action,
		Description:     params.Description,
		OldValues:       oldValues,
		NewValues:       newValues,
		ChangedFields:   changedFields,
		Metadata:        params.Metadata,
		BusinessContext: params.BusinessContext,
		IsSensitive:     params.IsSensitive,
		ComplianceTags:  params.ComplianceTags,
	}

	if requestParams, ok := composables.UseParams(ctx); ok {
		event.ActorIPAddress = requestParams.IP
		event.ActorUserAgent = requestParams.UserAgent
		event.APIEndpoint = requestParams.Endpoint
		event.HTTPMethod = requestParams.Method
		event.RequestID = requestParams.RequestID
		event.SessionID = requestParams.SessionID
	}

	if err := s.events.Create(ctx, event); err != nil {
		metrics.AuditWriteFailures.Inc()
		return nil, errors.Wrap(err, "write audit event")
	}
	metrics.AuditEventsWritten.WithLabelValues(event.EventType.String()).Inc()
	return event, nil
}

// AuditScope describes the unit of work WithAudit wraps.
type AuditScope struct {
	EntityType     string
	EntityID       uuid.UUID
	EventType      auditevent.EventType
	Action         string
	Description    string
	ActorUserID    *uuid.UUID
	ActorCompanyID *uuid.UUID
	Severity       auditevent.Severity
	// CaptureState snapshots the entity before and after the work using the
	// registered capturer for its entity type.
	CaptureState bool
}

// WithAudit runs fn and records one audit event with before/after snapshots of
// the entity. If fn or the audit write fails, a CRITICAL audit-failure event
// is recorded outside the caller's transaction and the original error is
// returned; the operation never succeeds silently without its audit record.
func (s *AuditTrailService) WithAudit(ctx context.Context, scope AuditScope, fn func(context.Context) error) error {
	var before map[string]any
	if scope.CaptureState {
		before = s.captureState(ctx, scope.EntityType, scope.EntityID)
	}

	cause := fn(ctx)
	if cause == nil {
		var after map[string]any
		if scope.CaptureState {
			after = s.captureState(ctx, scope.EntityType, scope.EntityID)
		}
		entityID := scope.EntityID
		_, err := s.LogEvent(ctx, LogEventParams{
			EventType:      scope.EventType,
			EntityType:     scope.EntityType,
			EntityID:       &entityID,
			Action:         scope.Action,
			Description:    scope.Description,
			ActorUserID:    scope.ActorUserID,
			ActorCompanyID: scope.ActorCompanyID,
			OldValues:      before,
			NewValues:      after,
			Severity:       scope.Severity,
		})
		if err == nil {
			return nil
		}
		cause = err
	}

	s.recordAuditFailure(ctx, scope, cause)
	return cause
}

// captureState returns nil for entity types without a registered capturer and
// for snapshot errors: an unavailable snapshot degrades the event, it does not
// block the operation.
func (s *AuditTrailService) captureState(ctx context.Context, entityType string, entityID uuid.UUID) map[string]any {
	s.mu.RLock()
	capture, ok := s.capturers[entityType]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	state, err := capture(ctx, entityID)
	if err != nil {
		composables.UseLogger(ctx).WithError(err).
			WithField("entity_type", entityType).
			Warn("failed to capture entity state for audit")
		return nil
	}
	return state
}

func (s *AuditTrailService) recordAuditFailure(ctx context.Context, scope AuditScope, cause error) {
	// The caller's transaction is about to roll back; the failure record has
	// to survive it, so it is written through the pool.
	_, err := s.LogEvent(composables.WithoutTx(ctx), LogEventParams{
		EventType:   auditevent.EventAuditFailure,
		EntityType:  "audit_system",
		Action:      "audit_failure",
		Description: fmt.Sprintf("audited operation %q on %s %s failed: %v", scope.Action, scope.EntityType, scope.EntityID, cause),
		Severity:    auditevent.SeverityCritical,
		Metadata: map[string]any{
			"original_event_type": scope.EventType.String(),
			"original_action":     scope.Action,
			"error":               cause.Error(),
		},
		ActorUserID:    scope.ActorUserID,
		ActorCompanyID: scope.ActorCompanyID,
	})
	if err != nil {
		composables.UseLogger(ctx).WithError(err).
			WithField("original_error", cause.Error()).
			Error("audit failure event could not be written")
	}
}

// QueryEvents returns matching audit events, newest first, with the total
// count for pagination.
func (s *AuditTrailService) QueryEvents(ctx context.Context, params *auditevent.FindParams) ([]*auditevent.AuditEvent, int64, error) {
	if params == nil {
		params = &auditevent.FindParams{}
	}
	events, err := s.events.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.events.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return events, count, nil
}

// EntityTrail returns the full audit history of one entity, newest first.
func (s *AuditTrailService) EntityTrail(ctx context.Context, entityType string, entityID uuid.UUID) ([]*auditevent.AuditEvent, error) {
	return s.events.List(ctx, &auditevent.FindParams{
		EntityType: entityType,
		EntityID:   &entityID,
	})
}
