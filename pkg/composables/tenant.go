package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/supplyline/datagate/pkg/constants"
)

var ErrNoTenantID = errors.New("no tenant id found in context")

func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, ErrNoTenantID
	}
	return tenantID, nil
}
