package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/permission"
	"github.com/supplyline/datagate/modules/sharing/infrastructure/persistence/models"
	"github.com/supplyline/datagate/pkg/composables"
	"github.com/supplyline/datagate/pkg/repo"
)

const permissionColumns = `
	id, tenant_id, grantor_company_id, grantee_company_id, business_relationship_id,
	data_category, sensitivity_level, access_types, entity_filters, field_restrictions,
	granted_by_user_id, justification, expires_at, is_active, auto_granted,
	revoked_at, revoked_by_user_id, created_at`

type PermissionRepository struct{}

func NewPermissionRepository() permission.Repository {
	return &PermissionRepository{}
}

func (r *PermissionRepository) Create(ctx context.Context, p *permission.AccessPermission) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.TenantID == uuid.Nil {
		p.TenantID = tenantID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	row, err := toDBPermission(p)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO access_permissions (`+permissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		row.ID,
		row.TenantID,
		row.GrantorCompanyID,
		row.GranteeCompanyID,
		row.BusinessRelationshipID,
		row.DataCategory,
		row.SensitivityLevel,
		row.AccessTypes,
		row.EntityFilters,
		row.FieldRestrictions,
		row.GrantedByUserID,
		row.Justification,
		row.ExpiresAt,
		row.IsActive,
		row.AutoGranted,
		row.RevokedAt,
		row.RevokedByUserID,
		row.CreatedAt,
	)
	return errors.Wrap(err, "create access permission")
}

func (r *PermissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*permission.AccessPermission, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM access_permissions
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := scanPermissions(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, permission.ErrNotFound
	}
	return results[0], nil
}

func (r *PermissionRepository) FindActive(ctx context.Context, params permission.FindParams) ([]*permission.AccessPermission, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	// Newest-first keeps the first-match pick in the decision engine
	// deterministic.
	rows, err := tx.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM access_permissions
		WHERE tenant_id = $1
			AND grantor_company_id = $2
			AND grantee_company_id = $3
			AND data_category = $4
			AND is_active = true
			AND (expires_at IS NULL OR expires_at > $5)
		ORDER BY created_at DESC, id DESC
	`,
		tenantID,
		params.GrantorCompanyID.String(),
		params.GranteeCompanyID.String(),
		params.DataCategory.String(),
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPermissions(rows)
}

func (r *PermissionRepository) Revoke(ctx context.Context, id uuid.UUID, revokedBy uuid.UUID, at time.Time) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}

	// Compare-and-set on is_active: a concurrent revoke loses the race cleanly
	// instead of overwriting revoked_at/revoked_by.
	tag, err := tx.Exec(ctx, `
		UPDATE access_permissions
		SET is_active = false, revoked_at = $3, revoked_by_user_id = $4
		WHERE tenant_id = $1 AND id = $2 AND is_active = true
	`, tenantID, id.String(), at, revokedBy.String())
	if err != nil {
		return false, errors.Wrap(err, "revoke access permission")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PermissionRepository) ListForCompany(ctx context.Context, params permission.ListParams) ([]*permission.AccessPermission, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + permissionColumns + `
		FROM access_permissions
		WHERE tenant_id = $1 AND (grantor_company_id = $2 OR grantee_company_id = $2)
	`
	if !params.IncludeIdle {
		query += " AND is_active = true"
	}
	query += " ORDER BY created_at DESC, id DESC"
	if clause := repo.FormatLimitOffset(params.Limit, params.Offset); clause != "" {
		query += " " + clause
	}

	rows, err := tx.Query(ctx, query, tenantID, params.CompanyID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPermissions(rows)
}

func scanPermissions(rows pgx.Rows) ([]*permission.AccessPermission, error) {
	var results []*permission.AccessPermission
	for rows.Next() {
		var row models.AccessPermission
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.GrantorCompanyID,
			&row.GranteeCompanyID,
			&row.BusinessRelationshipID,
			&row.DataCategory,
			&row.SensitivityLevel,
			&row.AccessTypes,
			&row.EntityFilters,
			&row.FieldRestrictions,
			&row.GrantedByUserID,
			&row.Justification,
			&row.ExpiresAt,
			&row.IsActive,
			&row.AutoGranted,
			&row.RevokedAt,
			&row.RevokedByUserID,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		p, err := toDomainPermission(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
