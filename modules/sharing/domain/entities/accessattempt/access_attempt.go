package accessattempt

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
)

// AccessAttempt records one authorization decision check for security
// monitoring. Attempts are telemetry: a failure to record one never blocks
// the decision itself.
type AccessAttempt struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	RequestingUserID    uuid.UUID
	RequestingCompanyID uuid.UUID
	// TargetCompanyID is nil when the caller accesses its own data.
	TargetCompanyID *uuid.UUID
	DataCategory    access.DataCategory
	AccessType      access.Type
	EntityType      string
	EntityID        *uuid.UUID

	IPAddress   string
	UserAgent   string
	APIEndpoint string
	HTTPMethod  string
	RequestID   string

	AccessResult access.Result
	// PermissionID is set when an explicit permission justified the grant.
	PermissionID   *uuid.UUID
	DenialReason   string
	FilteredFields []string
	CreatedAt      time.Time
}

type FindParams struct {
	RequestingUserID    *uuid.UUID
	RequestingCompanyID *uuid.UUID
	TargetCompanyID     *uuid.UUID
	DataCategory        access.DataCategory
	AccessResult        access.Result
	EntityType          string
	From                *time.Time
	To                  *time.Time
	Limit               int
	Offset              int
}

type Repository interface {
	Create(ctx context.Context, attempt *AccessAttempt) error
	List(ctx context.Context, params *FindParams) ([]*AccessAttempt, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
