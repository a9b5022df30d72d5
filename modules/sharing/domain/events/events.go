// Package events defines the payloads published on the event bus when
// cross-company grants change.
package events

import (
	"github.com/google/uuid"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/permission"
)

type PermissionGranted struct {
	Permission *permission.AccessPermission
}

type PermissionRevoked struct {
	PermissionID     uuid.UUID
	GrantorCompanyID uuid.UUID
	GranteeCompanyID uuid.UUID
	RevokedByUserID  uuid.UUID
	Reason           string
}

func NewPermissionGranted(p *permission.AccessPermission) PermissionGranted {
	return PermissionGranted{Permission: p}
}

func NewPermissionRevoked(p *permission.AccessPermission, revokedBy uuid.UUID, reason string) PermissionRevoked {
	return PermissionRevoked{
		PermissionID:     p.ID,
		GrantorCompanyID: p.GrantorCompanyID,
		GranteeCompanyID: p.GranteeCompanyID,
		RevokedByUserID:  revokedBy,
		Reason:           reason,
	}
}
