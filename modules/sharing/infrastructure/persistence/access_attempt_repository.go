package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/accessattempt"
	"github.com/supplyline/datagate/modules/sharing/infrastructure/persistence/models"
	"github.com/supplyline/datagate/pkg/composables"
	"github.com/supplyline/datagate/pkg/repo"
)

const accessAttemptColumns = `
	id, tenant_id, requesting_user_id, requesting_company_id, target_company_id,
	data_category, access_type, entity_type, entity_id,
	ip_address, user_agent, api_endpoint, http_method, request_id,
	access_result, permission_id, denial_reason, filtered_fields, created_at`

type AccessAttemptRepository struct{}

func NewAccessAttemptRepository() accessattempt.Repository {
	return &AccessAttemptRepository{}
}

func (r *AccessAttemptRepository) Create(ctx context.Context, attempt *accessattempt.AccessAttempt) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.TenantID == uuid.Nil {
		attempt.TenantID = tenantID
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	row, err := toDBAccessAttempt(attempt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO access_attempts (`+accessAttemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		row.ID,
		row.TenantID,
		row.RequestingUserID,
		row.RequestingCompanyID,
		row.TargetCompanyID,
		row.DataCategory,
		row.AccessType,
		row.EntityType,
		row.EntityID,
		row.IPAddress,
		row.UserAgent,
		row.APIEndpoint,
		row.HTTPMethod,
		row.RequestID,
		row.AccessResult,
		row.PermissionID,
		row.DenialReason,
		row.FilteredFields,
		row.CreatedAt,
	)
	return errors.Wrap(err, "create access attempt")
}

func (r *AccessAttemptRepository) List(ctx context.Context, params *accessattempt.FindParams) ([]*accessattempt.AccessAttempt, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildAccessAttemptFilters(params, tenantID)
	query := `
		SELECT ` + accessAttemptColumns + `
		FROM access_attempts
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
	`
	if params != nil {
		if clause := repo.FormatLimitOffset(params.Limit, params.Offset); clause != "" {
			query += " " + clause
		}
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*accessattempt.AccessAttempt
	for rows.Next() {
		var row models.AccessAttempt
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.RequestingUserID,
			&row.RequestingCompanyID,
			&row.TargetCompanyID,
			&row.DataCategory,
			&row.AccessType,
			&row.EntityType,
			&row.EntityID,
			&row.IPAddress,
			&row.UserAgent,
			&row.APIEndpoint,
			&row.HTTPMethod,
			&row.RequestID,
			&row.AccessResult,
			&row.PermissionID,
			&row.DenialReason,
			&row.FilteredFields,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		attempt, err := toDomainAccessAttempt(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AccessAttemptRepository) Count(ctx context.Context, params *accessattempt.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}

	where, args := buildAccessAttemptFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM access_attempts
		WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildAccessAttemptFilters(params *accessattempt.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argPos := 2
	if params == nil {
		return where, args
	}

	if params.RequestingUserID != nil {
		where = append(where, fmt.Sprintf("requesting_user_id = $%d", argPos))
		args = append(args, params.RequestingUserID.String())
		argPos++
	}
	if params.RequestingCompanyID != nil {
		where = append(where, fmt.Sprintf("requesting_company_id = $%d", argPos))
		args = append(args, params.RequestingCompanyID.String())
		argPos++
	}
	if params.TargetCompanyID != nil {
		where = append(where, fmt.Sprintf("target_company_id = $%d", argPos))
		args = append(args, params.TargetCompanyID.String())
		argPos++
	}
	if params.DataCategory != "" {
		where = append(where, fmt.Sprintf("data_category = $%d", argPos))
		args = append(args, params.DataCategory.String())
		argPos++
	}
	if params.AccessResult != "" {
		where = append(where, fmt.Sprintf("access_result = $%d", argPos))
		args = append(args, params.AccessResult.String())
		argPos++
	}
	if entityType := strings.TrimSpace(params.EntityType); entityType != "" {
		where = append(where, fmt.Sprintf("entity_type = $%d", argPos))
		args = append(args, entityType)
		argPos++
	}
	if params.From != nil && !params.From.IsZero() {
		where = append(where, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *params.From)
		argPos++
	}
	if params.To != nil && !params.To.IsZero() {
		where = append(where, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *params.To)
	}
	return where, args
}
