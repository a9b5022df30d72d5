package classification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
)

// Rule is a declarative sensitivity mapping: the highest-priority active rule
// whose field pattern matches a field name decides its sensitivity.
type Rule struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	EntityType string
	// FieldPattern is a regular expression matched case-insensitively against
	// the field name.
	FieldPattern     string
	DataCategory     access.DataCategory
	SensitivityLevel access.SensitivityLevel
	RuleName         string
	Priority         int
	IsActive         bool
	CreatedAt        time.Time
}

type Repository interface {
	// ListActiveForEntityType returns active rules ordered by descending
	// priority. Inactive rules never participate in the ordering.
	ListActiveForEntityType(ctx context.Context, entityType string) ([]*Rule, error)
	Create(ctx context.Context, rule *Rule) error
}
