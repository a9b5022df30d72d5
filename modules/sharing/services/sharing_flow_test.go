package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
	"github.com/supplyline/datagate/modules/sharing/services"
	"github.com/supplyline/datagate/pkg/eventbus"
)

// flowFixture wires the permission and access services over the same stores,
// the way a host application composes them.
type flowFixture struct {
	perms       *permRepoFake
	rels        *relRepoFake
	attempts    *attemptRepoFake
	rules       *ruleRepoFake
	audit       *auditRepoFake
	permissions *services.PermissionService
	access      *services.AccessService
}

func newFlowFixture() *flowFixture {
	f := &flowFixture{
		perms:    newPermRepoFake(),
		rels:     &relRepoFake{},
		attempts: &attemptRepoFake{},
		rules:    &ruleRepoFake{},
		audit:    &auditRepoFake{},
	}
	auditSvc := services.NewAuditTrailService(f.audit)
	f.permissions = services.NewPermissionService(f.perms, f.rels, auditSvc, eventbus.NewEventPublisher(logrus.New()))
	f.access = services.NewAccessService(f.perms, f.rels, f.attempts, f.rules, auditSvc)
	return f
}

func TestGrantThenCheck_ReadGrantedWriteDenied(t *testing.T) {
	f := newFlowFixture()
	grantor, grantee := uuid.New(), uuid.New()
	f.rels.rels = append(f.rels.rels, activeRelationship(grantor, grantee, nil))

	dto := validGrantDTO(grantor, grantee)
	dto.DataCategory = access.CategoryTraceability
	dto.SensitivityLevel = access.LevelOperational
	dto.Justification = "supply audit"
	granted, err := f.permissions.Grant(txContext(), dto)
	require.NoError(t, err)

	user := uuid.New()
	read := f.access.CheckAccess(context.Background(), services.CheckAccessRequest{
		RequestingUserID:    user,
		RequestingCompanyID: grantee,
		TargetCompanyID:     &grantor,
		DataCategory:        access.CategoryTraceability,
		AccessType:          access.TypeRead,
		EntityType:          "shipment",
	})
	require.True(t, read.Allowed())
	require.NotNil(t, read.Permission)
	require.Equal(t, granted.ID, read.Permission.ID)

	// The same grant carries READ only.
	write := f.access.CheckAccess(context.Background(), services.CheckAccessRequest{
		RequestingUserID:    user,
		RequestingCompanyID: grantee,
		TargetCompanyID:     &grantor,
		DataCategory:        access.CategoryTraceability,
		AccessType:          access.TypeWrite,
		EntityType:          "shipment",
	})
	require.False(t, write.Allowed())
}

func TestRevokeTakesEffectImmediately(t *testing.T) {
	f := newFlowFixture()
	grantor, grantee := uuid.New(), uuid.New()
	f.rels.rels = append(f.rels.rels, activeRelationship(grantor, grantee, nil))

	granted, err := f.permissions.Grant(txContext(), validGrantDTO(grantor, grantee))
	require.NoError(t, err)

	req := services.CheckAccessRequest{
		RequestingUserID:    uuid.New(),
		RequestingCompanyID: grantee,
		TargetCompanyID:     &grantor,
		DataCategory:        access.CategoryPurchaseOrder,
		AccessType:          access.TypeRead,
		EntityType:          "purchase_order",
		SensitivityLevel:    levelPtr(access.LevelCommercial),
	}
	require.True(t, f.access.CheckAccess(context.Background(), req).Allowed())

	ok, err := f.permissions.Revoke(txContext(), services.RevokeDTO{
		PermissionID:       granted.ID,
		RevokedByUserID:    uuid.New(),
		RevokedByCompanyID: grantor,
		Reason:             "relationship terminated",
	})
	require.NoError(t, err)
	require.True(t, ok)

	// No caching layer sits between revoke and the next decision.
	decision := f.access.CheckAccess(context.Background(), req)
	require.False(t, decision.Allowed())
}

func TestFilterSensitiveData_IsIdempotent(t *testing.T) {
	f := newFlowFixture()
	req := services.FilterRequest{
		RequestingCompanyID: uuid.New(),
		OwnerCompanyID:      uuid.New(),
		DataCategory:        access.CategoryPurchaseOrder,
		EntityType:          "purchase_order",
		Data: map[string]any{
			"po_number":  "PO-1",
			"unit_price": 800.0,
		},
	}

	first := f.access.FilterSensitiveData(context.Background(), req)
	require.Equal(t, "PO-1", first.Data["po_number"])
	require.Equal(t, "[COMMERCIAL_DATA_FILTERED]", first.Data["unit_price"])
	require.Equal(t, []string{"unit_price"}, first.FilteredFields)

	req.Data = first.Data
	second := f.access.FilterSensitiveData(context.Background(), req)
	require.Equal(t, first.Data, second.Data)
	require.Equal(t, first.FilteredFields, second.FilteredFields)
}
