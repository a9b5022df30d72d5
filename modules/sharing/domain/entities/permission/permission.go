package permission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
)

// AccessPermission is an explicit, directional, revocable grant of access from
// one company to another, scoped to a data category, sensitivity level and set
// of access types.
type AccessPermission struct {
	ID                     uuid.UUID
	TenantID               uuid.UUID
	GrantorCompanyID       uuid.UUID
	GranteeCompanyID       uuid.UUID
	BusinessRelationshipID uuid.UUID
	DataCategory           access.DataCategory
	SensitivityLevel       access.SensitivityLevel
	AccessTypes            access.Types
	// EntityTypes/EntityIDs restrict the grant to specific entities when set.
	EntityTypes       []string
	EntityIDs         []uuid.UUID
	FieldRestrictions []string
	GrantedByUserID   uuid.UUID
	Justification     string
	ExpiresAt         *time.Time
	IsActive          bool
	AutoGranted       bool
	RevokedAt         *time.Time
	RevokedByUserID   *uuid.UUID
	CreatedAt         time.Time
}

// IsExpired reports whether the permission has a past expiry. Expired
// permissions are treated as inactive without requiring a write.
func (p *AccessPermission) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// Usable reports whether the permission may be consulted at all.
func (p *AccessPermission) Usable(now time.Time) bool {
	return p.IsActive && !p.IsExpired(now)
}

// Allows reports whether the grant includes the given access type.
func (p *AccessPermission) Allows(t access.Type) bool {
	return p.AccessTypes.Contains(t)
}

// CoversLevel reports whether the grant's level covers the requested level.
func (p *AccessPermission) CoversLevel(requested access.SensitivityLevel) bool {
	return p.SensitivityLevel.Covers(requested)
}

// CoversEntity reports whether the grant applies to the given entity. A grant
// without entity filters covers everything in its category; otherwise both the
// entity-type list and, when an id is supplied, the entity-id list must match.
func (p *AccessPermission) CoversEntity(entityType string, entityID *uuid.UUID) bool {
	if len(p.EntityTypes) == 0 && len(p.EntityIDs) == 0 {
		return true
	}
	if len(p.EntityTypes) > 0 {
		found := false
		for _, et := range p.EntityTypes {
			if et == entityType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(p.EntityIDs) > 0 && entityID != nil {
		found := false
		for _, id := range p.EntityIDs {
			if id == *entityID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// RestrictsField reports whether the grant explicitly withholds a field even
// though its level and category are otherwise covered.
func (p *AccessPermission) RestrictsField(field string) bool {
	for _, restricted := range p.FieldRestrictions {
		if restricted == field {
			return true
		}
	}
	return false
}

// FindParams narrows FindActive to a directional grantor→grantee pair and
// category. Now bounds the expiry check.
type FindParams struct {
	GranteeCompanyID uuid.UUID
	GrantorCompanyID uuid.UUID
	DataCategory     access.DataCategory
	Now              time.Time
}

// ListParams pages a company's grants (both directions), newest first.
type ListParams struct {
	CompanyID   uuid.UUID
	IncludeIdle bool
	Limit       int
	Offset      int
}

type Repository interface {
	Create(ctx context.Context, p *AccessPermission) error
	GetByID(ctx context.Context, id uuid.UUID) (*AccessPermission, error)
	// FindActive returns usable candidate permissions ordered newest first.
	// Access-type and level compatibility are filtered in memory by callers.
	FindActive(ctx context.Context, params FindParams) ([]*AccessPermission, error)
	// Revoke deactivates the permission with a compare-and-set on is_active so
	// a concurrent revoke cannot be lost. It reports whether the row was
	// transitioned by this call.
	Revoke(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, at time.Time) (bool, error)
	ListForCompany(ctx context.Context, params ListParams) ([]*AccessPermission, error)
}
