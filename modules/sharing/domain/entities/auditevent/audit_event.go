package auditevent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of auditable state changes.
type EventType string

const (
	EventPOCreated            EventType = "PO_CREATED"
	EventPOUpdated            EventType = "PO_UPDATED"
	EventPOConfirmed          EventType = "PO_CONFIRMED"
	EventPermissionGranted    EventType = "PERMISSION_GRANTED"
	EventPermissionRevoked    EventType = "PERMISSION_REVOKED"
	EventUnauthorizedAccess   EventType = "UNAUTHORIZED_ACCESS_ATTEMPT"
	EventSystemConfigChanged  EventType = "SYSTEM_CONFIGURATION_CHANGED"
	EventDataExported         EventType = "DATA_EXPORTED"
	EventAuditFailure         EventType = "AUDIT_FAILURE"
)

func (t EventType) Valid() bool {
	switch t {
	case EventPOCreated, EventPOUpdated, EventPOConfirmed,
		EventPermissionGranted, EventPermissionRevoked,
		EventUnauthorizedAccess, EventSystemConfigChanged,
		EventDataExported, EventAuditFailure:
		return true
	default:
		return false
	}
}

func (t EventType) String() string {
	return string(t)
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// AuditEvent is one immutable compliance record of a state-changing action.
// Once written, its created_at, actor and event_type fields are never mutated
// by application code.
type AuditEvent struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	EventType  EventType
	Severity   Severity
	EntityType string
	EntityID   *uuid.UUID

	ActorUserID    *uuid.UUID
	ActorCompanyID *uuid.UUID
	ActorIPAddress string
	ActorUserAgent string

	Action      string
	Description string

	// OldValues/NewValues hold sanitized snapshots taken around the change.
	OldValues     map[string]any
	NewValues     map[string]any
	ChangedFields []string

	RequestID   string
	SessionID   string
	APIEndpoint string
	HTTPMethod  string

	Metadata        map[string]any
	BusinessContext string
	IsSensitive     bool
	ComplianceTags  []string
	CreatedAt       time.Time
}

type FindParams struct {
	EventTypes     []EventType
	Severity       Severity
	EntityType     string
	EntityID       *uuid.UUID
	ActorUserID    *uuid.UUID
	ActorCompanyID *uuid.UUID
	OnlySensitive  bool
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// Repository exposes append and query only. Audit events are never updated or
// deleted through application code.
type Repository interface {
	Create(ctx context.Context, event *AuditEvent) error
	List(ctx context.Context, params *FindParams) ([]*AuditEvent, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
