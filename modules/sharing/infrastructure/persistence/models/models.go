package models

import (
	"encoding/json"
	"time"
)

type AccessPermission struct {
	ID                     string
	TenantID               string
	GrantorCompanyID       string
	GranteeCompanyID       string
	BusinessRelationshipID string
	DataCategory           string
	SensitivityLevel       string
	AccessTypes            json.RawMessage
	EntityFilters          json.RawMessage
	FieldRestrictions      json.RawMessage
	GrantedByUserID        string
	Justification          string
	ExpiresAt              *time.Time
	IsActive               bool
	AutoGranted            bool
	RevokedAt              *time.Time
	RevokedByUserID        *string
	CreatedAt              time.Time
}

// EntityFilters is the JSON shape of the access_permissions.entity_filters
// column.
type EntityFilters struct {
	EntityTypes []string `json:"entity_types,omitempty"`
	EntityIDs   []string `json:"entity_ids,omitempty"`
}

type AccessAttempt struct {
	ID                  string
	TenantID            string
	RequestingUserID    string
	RequestingCompanyID string
	TargetCompanyID     *string
	DataCategory        string
	AccessType          string
	EntityType          string
	EntityID            *string
	IPAddress           string
	UserAgent           string
	APIEndpoint         string
	HTTPMethod          string
	RequestID           string
	AccessResult        string
	PermissionID        *string
	DenialReason        *string
	FilteredFields      json.RawMessage
	CreatedAt           time.Time
}

type DataClassificationRule struct {
	ID               string
	TenantID         string
	EntityType       string
	FieldPattern     string
	DataCategory     string
	SensitivityLevel string
	RuleName         string
	Priority         int
	IsActive         bool
	CreatedAt        time.Time
}

type BusinessRelationship struct {
	ID               string
	TenantID         string
	BuyerCompanyID   string
	SellerCompanyID  string
	RelationshipType string
	Status           string
	DataSharing      json.RawMessage
}

type AuditEvent struct {
	ID              string
	TenantID        string
	EventType       string
	Severity        string
	EntityType      string
	EntityID        *string
	ActorUserID     *string
	ActorCompanyID  *string
	ActorIPAddress  string
	ActorUserAgent  string
	Action          string
	Description     string
	OldValues       json.RawMessage
	NewValues       json.RawMessage
	ChangedFields   json.RawMessage
	RequestID       string
	SessionID       string
	APIEndpoint     string
	HTTPMethod      string
	Metadata        json.RawMessage
	BusinessContext string
	IsSensitive     bool
	ComplianceTags  json.RawMessage
	CreatedAt       time.Time
}
