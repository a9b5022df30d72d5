package relationship

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
)

// ErrNotFound is returned when no active relationship links two companies.
var ErrNotFound = errors.New("business relationship not found")

const StatusActive = "active"

// SharingKey selects one boolean flag in a relationship's declared
// data-sharing permissions.
type SharingKey string

const (
	KeyOperationalData  SharingKey = "operational_data"
	KeyTraceabilityData SharingKey = "traceability_data"
	KeyQualityData      SharingKey = "quality_data"
	KeyLocationData     SharingKey = "location_data"
	KeyCommercialData   SharingKey = "commercial_data"
)

// BusinessRelationship is the bilateral agreement between two companies. It is
// owned by the relationship-management subsystem; this module only reads it.
type BusinessRelationship struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	BuyerCompanyID   uuid.UUID
	SellerCompanyID  uuid.UUID
	RelationshipType string
	Status           string
	DataSharing      map[SharingKey]bool
}

func (r *BusinessRelationship) IsActive() bool {
	return r.Status == StatusActive
}

// Links reports whether the relationship connects the two companies in either
// direction.
func (r *BusinessRelationship) Links(a, b uuid.UUID) bool {
	return (r.BuyerCompanyID == a && r.SellerCompanyID == b) ||
		(r.BuyerCompanyID == b && r.SellerCompanyID == a)
}

// Permits reports whether the relationship's declared sharing flags include
// the given key. Absent keys count as false.
func (r *BusinessRelationship) Permits(key SharingKey) bool {
	return r.DataSharing[key]
}

// SharingKeyFor maps a (category, level) pair to the relationship flag that
// governs it. Commercial-level data is always gated by commercial_data
// regardless of category; otherwise the category picks the flag, and anything
// unmapped falls back to operational_data.
func SharingKeyFor(category access.DataCategory, level access.SensitivityLevel) SharingKey {
	if level == access.LevelCommercial {
		return KeyCommercialData
	}
	switch category {
	case access.CategoryTraceability:
		return KeyTraceabilityData
	case access.CategoryQualityData:
		return KeyQualityData
	case access.CategoryLocationData:
		return KeyLocationData
	}
	return KeyOperationalData
}

// Resolve derives the default decision a relationship grants for the request,
// absent any explicit permission. Reads follow the sharing flag directly;
// writes and deletes additionally require the data to be at operational
// sensitivity or below.
func Resolve(rel *BusinessRelationship, category access.DataCategory, accessType access.Type, level access.SensitivityLevel) access.Decision {
	if rel == nil || !rel.IsActive() {
		return access.Denied("no active business relationship")
	}

	key := SharingKeyFor(category, level)
	if !rel.Permits(key) {
		return access.Denied(fmt.Sprintf("relationship does not permit %s access", key))
	}

	if accessType.Mutates() && level > access.LevelOperational {
		return access.Denied(fmt.Sprintf("relationship does not permit %s access for %s operations", key, accessType))
	}
	return access.Granted()
}

type Repository interface {
	// FindActiveBetween returns an active relationship linking the two
	// companies in either direction, or ErrNotFound.
	FindActiveBetween(ctx context.Context, companyA, companyB uuid.UUID) (*BusinessRelationship, error)
}
