package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/classification"
	"github.com/supplyline/datagate/modules/sharing/infrastructure/persistence/models"
	"github.com/supplyline/datagate/pkg/composables"
)

const classificationRuleColumns = `
	id, tenant_id, entity_type, field_pattern, data_category, sensitivity_level,
	rule_name, priority, is_active, created_at`

type ClassificationRuleRepository struct{}

func NewClassificationRuleRepository() classification.Repository {
	return &ClassificationRuleRepository{}
}

func (r *ClassificationRuleRepository) ListActiveForEntityType(ctx context.Context, entityType string) ([]*classification.Rule, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+classificationRuleColumns+`
		FROM data_classification_rules
		WHERE tenant_id = $1 AND entity_type = $2 AND is_active = true
		ORDER BY priority DESC, created_at DESC
	`, tenantID, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*classification.Rule
	for rows.Next() {
		var row models.DataClassificationRule
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.EntityType,
			&row.FieldPattern,
			&row.DataCategory,
			&row.SensitivityLevel,
			&row.RuleName,
			&row.Priority,
			&row.IsActive,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		rule, err := toDomainRule(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ClassificationRuleRepository) Create(ctx context.Context, rule *classification.Rule) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.TenantID == uuid.Nil {
		rule.TenantID = tenantID
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO data_classification_rules (`+classificationRuleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rule.ID.String(),
		rule.TenantID.String(),
		rule.EntityType,
		rule.FieldPattern,
		rule.DataCategory.String(),
		rule.SensitivityLevel.String(),
		rule.RuleName,
		rule.Priority,
		rule.IsActive,
		rule.CreatedAt,
	)
	return errors.Wrap(err, "create classification rule")
}
