package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
	"github.com/supplyline/datagate/modules/sharing/infrastructure/persistence/models"
	"github.com/supplyline/datagate/pkg/composables"
	"github.com/supplyline/datagate/pkg/repo"
)

const auditEventColumns = `
	id, tenant_id, event_type, severity, entity_type, entity_id,
	actor_user_id, actor_company_id, actor_ip_address, actor_user_agent,
	action, description, old_values, new_values, changed_fields,
	request_id, session_id, api_endpoint, http_method,
	metadata, business_context, is_sensitive, compliance_tags, created_at`

// AuditEventRepository is append-only: audit events are never updated or
// deleted through application code.
type AuditEventRepository struct{}

func NewAuditEventRepository() auditevent.Repository {
	return &AuditEventRepository{}
}

func (r *AuditEventRepository) Create(ctx context.Context, event *auditevent.AuditEvent) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.TenantID == uuid.Nil {
		event.TenantID = tenantID
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	row, err := toDBAuditEvent(event)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_events (`+auditEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`,
		row.ID,
		row.TenantID,
		row.EventType,
		row.Severity,
		row.EntityType,
		row.EntityID,
		row.ActorUserID,
		row.ActorCompanyID,
		row.ActorIPAddress,
		row.ActorUserAgent,
		row.Action,
		row.Description,
		row.OldValues,
		row.NewValues,
		row.ChangedFields,
		row.RequestID,
		row.SessionID,
		row.APIEndpoint,
		row.HTTPMethod,
		row.Metadata,
		row.BusinessContext,
		row.IsSensitive,
		row.ComplianceTags,
		row.CreatedAt,
	)
	return errors.Wrap(err, "create audit event")
}

func (r *AuditEventRepository) List(ctx context.Context, params *auditevent.FindParams) ([]*auditevent.AuditEvent, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildAuditEventFilters(params, tenantID)
	query := `
		SELECT ` + auditEventColumns + `
		FROM audit_events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
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

	var results []*auditevent.AuditEvent
	for rows.Next() {
		var row models.AuditEvent
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.EventType,
			&row.Severity,
			&row.EntityType,
			&row.EntityID,
			&row.ActorUserID,
			&row.ActorCompanyID,
			&row.ActorIPAddress,
			&row.ActorUserAgent,
			&row.Action,
			&row.Description,
			&row.OldValues,
			&row.NewValues,
			&row.ChangedFields,
			&row.RequestID,
			&row.SessionID,
			&row.APIEndpoint,
			&row.HTTPMethod,
			&row.Metadata,
			&row.BusinessContext,
			&row.IsSensitive,
			&row.ComplianceTags,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		event, err := toDomainAuditEvent(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *AuditEventRepository) Count(ctx context.Context, params *auditevent.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}

	where, args := buildAuditEventFilters(params, tenantID)

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_events
		WHERE `+strings.Join(where, " AND "),
		args...,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildAuditEventFilters(params *auditevent.FindParams, tenantID uuid.UUID) ([]string, []interface{}) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	argPos := 2
	if params == nil {
		return where, args
	}

	if len(params.EventTypes) > 0 {
		placeholders := make([]string, len(params.EventTypes))
		for i, eventType := range params.EventTypes {
			placeholders[i] = fmt.Sprintf("$%d", argPos)
			args = append(args, eventType.String())
			argPos++
		}
		where = append(where, "event_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if params.Severity != "" {
		where = append(where, fmt.Sprintf("severity = $%d", argPos))
		args = append(args, string(params.Severity))
		argPos++
	}
	if entityType := strings.TrimSpace(params.EntityType); entityType != "" {
		where = append(where, fmt.Sprintf("entity_type = $%d", argPos))
		args = append(args, entityType)
		argPos++
	}
	if params.EntityID != nil {
		where = append(where, fmt.Sprintf("entity_id = $%d", argPos))
		args = append(args, params.EntityID.String())
		argPos++
	}
	if params.ActorUserID != nil {
		where = append(where, fmt.Sprintf("actor_user_id = $%d", argPos))
		args = append(args, params.ActorUserID.String())
		argPos++
	}
	if params.ActorCompanyID != nil {
		where = append(where, fmt.Sprintf("actor_company_id = $%d", argPos))
		args = append(args, params.ActorCompanyID.String())
		argPos++
	}
	if params.OnlySensitive {
		where = append(where, "is_sensitive = true")
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
