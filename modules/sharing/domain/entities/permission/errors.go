package permission

import (
	"errors"

	"github.com/supplyline/datagate/pkg/serrors"
)

var (
	// ErrNotFound is returned by repositories for an unknown permission id.
	ErrNotFound = errors.New("permission not found")

	// ErrRelationshipNotFound rejects a grant between companies that have no
	// active business relationship.
	ErrRelationshipNotFound = serrors.NewError(
		"SHARING_RELATIONSHIP_NOT_FOUND",
		"no active business relationship between grantor and grantee",
		"Sharing.Errors.RelationshipNotFound",
	)

	// ErrUnauthorizedRevocation rejects a revoke issued by a company that is
	// neither the grantor nor the grantee.
	ErrUnauthorizedRevocation = serrors.NewError(
		"SHARING_UNAUTHORIZED_REVOCATION",
		"only the grantor or grantee company may revoke a permission",
		"Sharing.Errors.UnauthorizedRevocation",
	)

	// ErrInvalidGrant rejects a malformed grant request before any store access.
	ErrInvalidGrant = serrors.NewError(
		"SHARING_INVALID_GRANT",
		"invalid permission grant request",
		"Sharing.Errors.InvalidGrant",
	)
)
