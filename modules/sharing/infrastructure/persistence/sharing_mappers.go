package persistence

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/accessattempt"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/classification"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/permission"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/relationship"
	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
	"github.com/supplyline/datagate/modules/sharing/infrastructure/persistence/models"
)

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseUUIDPtr(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

func uuidStringPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func marshalJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal json column")
	}
	return raw, nil
}

func toDBPermission(p *permission.AccessPermission) (*models.AccessPermission, error) {
	accessTypes, err := marshalJSON(p.AccessTypes.Strings())
	if err != nil {
		return nil, err
	}

	var entityFilters json.RawMessage
	if len(p.EntityTypes) > 0 || len(p.EntityIDs) > 0 {
		ids := make([]string, len(p.EntityIDs))
		for i, id := range p.EntityIDs {
			ids[i] = id.String()
		}
		entityFilters, err = marshalJSON(models.EntityFilters{
			EntityTypes: p.EntityTypes,
			EntityIDs:   ids,
		})
		if err != nil {
			return nil, err
		}
	}

	var fieldRestrictions json.RawMessage
	if len(p.FieldRestrictions) > 0 {
		fieldRestrictions, err = marshalJSON(p.FieldRestrictions)
		if err != nil {
			return nil, err
		}
	}

	return &models.AccessPermission{
		ID:                     p.ID.String(),
		TenantID:               p.TenantID.String(),
		GrantorCompanyID:       p.GrantorCompanyID.String(),
		GranteeCompanyID:       p.GranteeCompanyID.String(),
		BusinessRelationshipID: p.BusinessRelationshipID.String(),
		DataCategory:           p.DataCategory.String(),
		SensitivityLevel:       p.SensitivityLevel.String(),
		AccessTypes:            accessTypes,
		EntityFilters:          entityFilters,
		FieldRestrictions:      fieldRestrictions,
		GrantedByUserID:        p.GrantedByUserID.String(),
		Justification:          p.Justification,
		ExpiresAt:              p.ExpiresAt,
		IsActive:               p.IsActive,
		AutoGranted:            p.AutoGranted,
		RevokedAt:              p.RevokedAt,
		RevokedByUserID:        uuidStringPtr(p.RevokedByUserID),
		CreatedAt:              p.CreatedAt,
	}, nil
}

func toDomainPermission(row *models.AccessPermission) (*permission.AccessPermission, error) {
	category, err := access.ParseDataCategory(row.DataCategory)
	if err != nil {
		return nil, errors.Wrapf(err, "permission %s", row.ID)
	}
	level, err := access.ParseSensitivityLevel(row.SensitivityLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "permission %s", row.ID)
	}

	var typeStrings []string
	if len(row.AccessTypes) > 0 {
		if err := json.Unmarshal(row.AccessTypes, &typeStrings); err != nil {
			return nil, errors.Wrapf(err, "permission %s access_types", row.ID)
		}
	}
	accessTypes := make(access.Types, 0, len(typeStrings))
	for _, s := range typeStrings {
		t, err := access.ParseType(s)
		if err != nil {
			return nil, errors.Wrapf(err, "permission %s access_types", row.ID)
		}
		accessTypes = append(accessTypes, t)
	}

	var entityTypes []string
	var entityIDs []uuid.UUID
	if len(row.EntityFilters) > 0 {
		var filters models.EntityFilters
		if err := json.Unmarshal(row.EntityFilters, &filters); err != nil {
			return nil, errors.Wrapf(err, "permission %s entity_filters", row.ID)
		}
		entityTypes = filters.EntityTypes
		for _, raw := range filters.EntityIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "permission %s entity_filters", row.ID)
			}
			entityIDs = append(entityIDs, id)
		}
	}

	var fieldRestrictions []string
	if len(row.FieldRestrictions) > 0 {
		if err := json.Unmarshal(row.FieldRestrictions, &fieldRestrictions); err != nil {
			return nil, errors.Wrapf(err, "permission %s field_restrictions", row.ID)
		}
	}

	return &permission.AccessPermission{
		ID:                     parseUUID(row.ID),
		TenantID:               parseUUID(row.TenantID),
		GrantorCompanyID:       parseUUID(row.GrantorCompanyID),
		GranteeCompanyID:       parseUUID(row.GranteeCompanyID),
		BusinessRelationshipID: parseUUID(row.BusinessRelationshipID),
		DataCategory:           category,
		SensitivityLevel:       level,
		AccessTypes:            accessTypes,
		EntityTypes:            entityTypes,
		EntityIDs:              entityIDs,
		FieldRestrictions:      fieldRestrictions,
		GrantedByUserID:        parseUUID(row.GrantedByUserID),
		Justification:          row.Justification,
		ExpiresAt:              row.ExpiresAt,
		IsActive:               row.IsActive,
		AutoGranted:            row.AutoGranted,
		RevokedAt:              row.RevokedAt,
		RevokedByUserID:        parseUUIDPtr(row.RevokedByUserID),
		CreatedAt:              row.CreatedAt,
	}, nil
}

func toDBAccessAttempt(a *accessattempt.AccessAttempt) (*models.AccessAttempt, error) {
	var filteredFields json.RawMessage
	if len(a.FilteredFields) > 0 {
		var err error
		filteredFields, err = marshalJSON(a.FilteredFields)
		if err != nil {
			return nil, err
		}
	}

	var denialReason *string
	if a.DenialReason != "" {
		reason := a.DenialReason
		denialReason = &reason
	}

	return &models.AccessAttempt{
		ID:                  a.ID.String(),
		TenantID:            a.TenantID.String(),
		RequestingUserID:    a.RequestingUserID.String(),
		RequestingCompanyID: a.RequestingCompanyID.String(),
		TargetCompanyID:     uuidStringPtr(a.TargetCompanyID),
		DataCategory:        a.DataCategory.String(),
		AccessType:          a.AccessType.String(),
		EntityType:          a.EntityType,
		EntityID:            uuidStringPtr(a.EntityID),
		IPAddress:           a.IPAddress,
		UserAgent:           a.UserAgent,
		APIEndpoint:         a.APIEndpoint,
		HTTPMethod:          a.HTTPMethod,
		RequestID:           a.RequestID,
		AccessResult:        a.AccessResult.String(),
		PermissionID:        uuidStringPtr(a.PermissionID),
		DenialReason:        denialReason,
		FilteredFields:      filteredFields,
		CreatedAt:           a.CreatedAt,
	}, nil
}

func toDomainAccessAttempt(row *models.AccessAttempt) (*accessattempt.AccessAttempt, error) {
	category, err := access.ParseDataCategory(row.DataCategory)
	if err != nil {
		return nil, errors.Wrapf(err, "access attempt %s", row.ID)
	}
	accessType, err := access.ParseType(row.AccessType)
	if err != nil {
		return nil, errors.Wrapf(err, "access attempt %s", row.ID)
	}

	var filteredFields []string
	if len(row.FilteredFields) > 0 {
		if err := json.Unmarshal(row.FilteredFields, &filteredFields); err != nil {
			return nil, errors.Wrapf(err, "access attempt %s filtered_fields", row.ID)
		}
	}

	denialReason := ""
	if row.DenialReason != nil {
		denialReason = *row.DenialReason
	}

	return &accessattempt.AccessAttempt{
		ID:                  parseUUID(row.ID),
		TenantID:            parseUUID(row.TenantID),
		RequestingUserID:    parseUUID(row.RequestingUserID),
		RequestingCompanyID: parseUUID(row.RequestingCompanyID),
		TargetCompanyID:     parseUUIDPtr(row.TargetCompanyID),
		DataCategory:        category,
		AccessType:          accessType,
		EntityType:          row.EntityType,
		EntityID:            parseUUIDPtr(row.EntityID),
		IPAddress:           row.IPAddress,
		UserAgent:           row.UserAgent,
		APIEndpoint:         row.APIEndpoint,
		HTTPMethod:          row.HTTPMethod,
		RequestID:           row.RequestID,
		AccessResult:        access.Result(row.AccessResult),
		PermissionID:        parseUUIDPtr(row.PermissionID),
		DenialReason:        denialReason,
		FilteredFields:      filteredFields,
		CreatedAt:           row.CreatedAt,
	}, nil
}

func toDomainRule(row *models.DataClassificationRule) (*classification.Rule, error) {
	category, err := access.ParseDataCategory(row.DataCategory)
	if err != nil {
		return nil, errors.Wrapf(err, "classification rule %s", row.ID)
	}
	level, err := access.ParseSensitivityLevel(row.SensitivityLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "classification rule %s", row.ID)
	}

	return &classification.Rule{
		ID:               parseUUID(row.ID),
		TenantID:         parseUUID(row.TenantID),
		EntityType:       row.EntityType,
		FieldPattern:     row.FieldPattern,
		DataCategory:     category,
		SensitivityLevel: level,
		RuleName:         row.RuleName,
		Priority:         row.Priority,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt,
	}, nil
}

func toDomainRelationship(row *models.BusinessRelationship) (*relationship.BusinessRelationship, error) {
	sharing := map[relationship.SharingKey]bool{}
	if len(row.DataSharing) > 0 {
		if err := json.Unmarshal(row.DataSharing, &sharing); err != nil {
			return nil, errors.Wrapf(err, "relationship %s data_sharing_permissions", row.ID)
		}
	}

	return &relationship.BusinessRelationship{
		ID:               parseUUID(row.ID),
		TenantID:         parseUUID(row.TenantID),
		BuyerCompanyID:   parseUUID(row.BuyerCompanyID),
		SellerCompanyID:  parseUUID(row.SellerCompanyID),
		RelationshipType: row.RelationshipType,
		Status:           row.Status,
		DataSharing:      sharing,
	}, nil
}

func toDBAuditEvent(e *auditevent.AuditEvent) (*models.AuditEvent, error) {
	// Sanitize is idempotent; applying it here keeps direct repository writes
	// redacted and serializable even when a caller skipped the audit service.
	oldValues, err := marshalJSON(auditevent.Sanitize(e.OldValues))
	if err != nil {
		return nil, err
	}
	newValues, err := marshalJSON(auditevent.Sanitize(e.NewValues))
	if err != nil {
		return nil, err
	}
	metadata, err := marshalJSON(auditevent.Sanitize(e.Metadata))
	if err != nil {
		return nil, err
	}

	var changedFields json.RawMessage
	if len(e.ChangedFields) > 0 {
		changedFields, err = marshalJSON(e.ChangedFields)
		if err != nil {
			return nil, err
		}
	}
	var complianceTags json.RawMessage
	if len(e.ComplianceTags) > 0 {
		complianceTags, err = marshalJSON(e.ComplianceTags)
		if err != nil {
			return nil, err
		}
	}

	return &models.AuditEvent{
		ID:              e.ID.String(),
		TenantID:        e.TenantID.String(),
		EventType:       e.EventType.String(),
		Severity:        string(e.Severity),
		EntityType:      e.EntityType,
		EntityID:        uuidStringPtr(e.EntityID),
		ActorUserID:     uuidStringPtr(e.ActorUserID),
		ActorCompanyID:  uuidStringPtr(e.ActorCompanyID),
		ActorIPAddress:  e.ActorIPAddress,
		ActorUserAgent:  e.ActorUserAgent,
		Action:          e.Action,
		Description:     e.Description,
		OldValues:       oldValues,
		NewValues:       newValues,
		ChangedFields:   changedFields,
		RequestID:       e.RequestID,
		SessionID:       e.SessionID,
		APIEndpoint:     e.APIEndpoint,
		HTTPMethod:      e.HTTPMethod,
		Metadata:        metadata,
		BusinessContext: e.BusinessContext,
		IsSensitive:     e.IsSensitive,
		ComplianceTags:  complianceTags,
		CreatedAt:       e.CreatedAt,
	}, nil
}

func toDomainAuditEvent(row *models.AuditEvent) (*auditevent.AuditEvent, error) {
	var oldValues, newValues, metadata map[string]any
	if len(row.OldValues) > 0 {
		if err := json.Unmarshal(row.OldValues, &oldValues); err != nil {
			return nil, errors.Wrapf(err, "audit event %s old_values", row.ID)
		}
	}
	if len(row.NewValues) > 0 {
		if err := json.Unmarshal(row.NewValues, &newValues); err != nil {
			return nil, errors.Wrapf(err, "audit event %s new_values", row.ID)
		}
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, errors.Wrapf(err, "audit event %s metadata", row.ID)
		}
	}

	var changedFields, complianceTags []string
	if len(row.ChangedFields) > 0 {
		if err := json.Unmarshal(row.ChangedFields, &changedFields); err != nil {
			return nil, errors.Wrapf(err, "audit event %s changed_fields", row.ID)
		}
	}
	if len(row.ComplianceTags) > 0 {
		if err := json.Unmarshal(row.ComplianceTags, &complianceTags); err != nil {
			return nil, errors.Wrapf(err, "audit event %s compliance_tags", row.ID)
		}
	}

	return &auditevent.AuditEvent{
		ID:              parseUUID(row.ID),
		TenantID:        parseUUID(row.TenantID),
		EventType:       auditevent.EventType(row.EventType),
		Severity:        auditevent.Severity(row.Severity),
		EntityType:      row.EntityType,
		EntityID:        parseUUIDPtr(row.EntityID),
		ActorUserID:     parseUUIDPtr(row.ActorUserID),
		ActorCompanyID:  parseUUIDPtr(row.ActorCompanyID),
		ActorIPAddress:  row.ActorIPAddress,
		ActorUserAgent:  row.ActorUserAgent,
		Action:          row.Action,
		Description:     row.Description,
		OldValues:       oldValues,
		NewValues:       newValues,
		ChangedFields:   changedFields,
		RequestID:       row.RequestID,
		SessionID:       row.SessionID,
		APIEndpoint:     row.APIEndpoint,
		HTTPMethod:      row.HTTPMethod,
		Metadata:        metadata,
		BusinessContext: row.BusinessContext,
		IsSensitive:     row.IsSensitive,
		ComplianceTags:  complianceTags,
		CreatedAt:       row.CreatedAt,
	}, nil
}
