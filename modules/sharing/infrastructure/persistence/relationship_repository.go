package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/relationship"
	"github.com/supplyline/datagate/modules/sharing/infrastructure/persistence/models"
	"github.com/supplyline/datagate/pkg/composables"
)

// BusinessRelationshipRepository reads the relationship-management subsystem's
// table. This module never writes to it.
type BusinessRelationshipRepository struct{}

func NewBusinessRelationshipRepository() relationship.Repository {
	return &BusinessRelationshipRepository{}
}

func (r *BusinessRelationshipRepository) FindActiveBetween(ctx context.Context, companyA, companyB uuid.UUID) (*relationship.BusinessRelationship, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, buyer_company_id, seller_company_id, relationship_type, status, data_sharing_permissions
		FROM business_relationships
		WHERE tenant_id = $1
			AND status = $2
			AND (
				(buyer_company_id = $3 AND seller_company_id = $4)
				OR (buyer_company_id = $4 AND seller_company_id = $3)
			)
		LIMIT 1
	`, tenantID, relationship.StatusActive, companyA.String(), companyB.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, relationship.ErrNotFound
	}

	var row models.BusinessRelationship
	if err := rows.Scan(
		&row.ID,
		&row.TenantID,
		&row.BuyerCompanyID,
		&row.SellerCompanyID,
		&row.RelationshipType,
		&row.Status,
		&row.DataSharing,
	); err != nil {
		return nil, err
	}
	return toDomainRelationship(&row)
}
