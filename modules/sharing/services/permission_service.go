package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/permission"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/relationship"
	"github.com/supplyline/datagate/modules/sharing/domain/events"
	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
	"github.com/supplyline/datagate/pkg/composables"
	"github.com/supplyline/datagate/pkg/constants"
	"github.com/supplyline/datagate/pkg/eventbus"
	"github.com/supplyline/datagate/pkg/serrors"
)

// PermissionService manages explicit cross-company grants. Every grant and
// revoke writes its audit event in the same transaction, so a failed audit
// write rolls the change back.
type PermissionService struct {
	perms     permission.Repository
	rels      relationship.Repository
	audit     *AuditTrailService
	publisher eventbus.EventBus
}

func NewPermissionService(
	perms permission.Repository,
	rels relationship.Repository,
	audit *AuditTrailService,
	publisher eventbus.EventBus,
) *PermissionService {
	return &PermissionService{
		perms:     perms,
		rels:      rels,
		audit:     audit,
		publisher: publisher,
	}
}

type GrantDTO struct {
	GrantorCompanyID  uuid.UUID `validate:"required"`
	GranteeCompanyID  uuid.UUID `validate:"required"`
	DataCategory      access.DataCategory
	SensitivityLevel  access.SensitivityLevel
	AccessTypes       access.Types `validate:"required,min=1"`
	GrantedByUserID   uuid.UUID    `validate:"required"`
	Justification     string       `validate:"required"`
	ExpiresAt         *time.Time
	EntityTypes       []string
	EntityIDs         []uuid.UUID
	FieldRestrictions []string
	AutoGranted       bool
}

func (d *GrantDTO) Normalize() {
	d.Justification = strings.TrimSpace(d.Justification)
}

func (d *GrantDTO) Ok() error {
	d.Normalize()
	if err := constants.Validate.Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			processed := serrors.ProcessValidatorErrors(fieldErrs, func(field string) string {
				return "sharing.grant." + strings.ToLower(field)
			})
			fields := make([]string, 0, len(processed))
			for field := range processed {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			return permission.ErrInvalidGrant.WithDetails("invalid fields: %s", strings.Join(fields, ", "))
		}
		return permission.ErrInvalidGrant.WithDetails("%v", err)
	}
	if !d.DataCategory.Valid() {
		return permission.ErrInvalidGrant.WithDetails("unknown data category %q", d.DataCategory)
	}
	if !d.SensitivityLevel.Valid() {
		return permission.ErrInvalidGrant.WithDetails("unknown sensitivity level %d", d.SensitivityLevel)
	}
	if !d.AccessTypes.Valid() {
		return permission.ErrInvalidGrant.WithDetails("invalid access types %v", d.AccessTypes)
	}
	if d.GrantorCompanyID == d.GranteeCompanyID {
		return permission.ErrInvalidGrant.WithDetails("grantor and grantee must differ")
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(time.Now()) {
		return permission.ErrInvalidGrant.WithDetails("expires_at must be in the future")
	}
	return nil
}

// Grant creates an explicit permission. It fails with ErrRelationshipNotFound
// when no active business relationship links the two companies, and with
// ErrInvalidGrant before any store access for malformed requests.
func (s *PermissionService) Grant(ctx context.Context, dto GrantDTO) (*permission.AccessPermission, error) {
	if err := dto.Ok(); err != nil {
		return nil, err
	}

	rel, err := s.rels.FindActiveBetween(ctx, dto.GrantorCompanyID, dto.GranteeCompanyID)
	if err != nil {
		if errors.Is(err, relationship.ErrNotFound) {
			return nil, permission.ErrRelationshipNotFound
		}
		return nil, err
	}

	p, err := composables.InTxResult(ctx, func(txCtx context.Context) (*permission.AccessPermission, error) {
		p := &permission.AccessPermission{
			GrantorCompanyID:       dto.GrantorCompanyID,
			GranteeCompanyID:       dto.GranteeCompanyID,
			BusinessRelationshipID: rel.ID,
			DataCategory:           dto.DataCategory,
			SensitivityLevel:       dto.SensitivityLevel,
			AccessTypes:            dto.AccessTypes,
			EntityTypes:            dto.EntityTypes,
			EntityIDs:              dto.EntityIDs,
			FieldRestrictions:      dto.FieldRestrictions,
			GrantedByUserID:        dto.GrantedByUserID,
			Justification:          dto.Justification,
			ExpiresAt:              dto.ExpiresAt,
			IsActive:               true,
			AutoGranted:            dto.AutoGranted,
		}
		if err := s.perms.Create(txCtx, p); err != nil {
			return nil, err
		}
		if _, err := s.audit.LogEvent(txCtx, LogEventParams{
			EventType:      auditevent.EventPermissionGranted,
			EntityType:     "access_permission",
			EntityID:       &p.ID,
			Action:         "grant_permission",
			Description:    grantDescription(p),
			ActorUserID:    &p.GrantedByUserID,
			ActorCompanyID: &p.GrantorCompanyID,
			NewValues:      grantSnapshot(p),
			ComplianceTags: []string{"access-control"},
		}); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(events.NewPermissionGranted(p))
	return p, nil
}

type RevokeDTO struct {
	PermissionID       uuid.UUID `validate:"required"`
	RevokedByUserID    uuid.UUID `validate:"required"`
	RevokedByCompanyID uuid.UUID `validate:"required"`
	Reason             string
}

// Revoke deactivates a permission. Only the grantor or grantee company may
// revoke. An unknown permission id is a no-op returning false; an already
// revoked permission returns true, making retries safe.
func (s *PermissionService) Revoke(ctx context.Context, dto RevokeDTO) (bool, error) {
	if err := constants.Validate.Struct(&dto); err != nil {
		return false, permission.ErrInvalidGrant.WithDetails("%v", err)
	}

	p, err := s.perms.GetByID(ctx, dto.PermissionID)
	if err != nil {
		if errors.Is(err, permission.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if dto.RevokedByCompanyID != p.GrantorCompanyID && dto.RevokedByCompanyID != p.GranteeCompanyID {
		return false, permission.ErrUnauthorizedRevocation.WithTemplateData(map[string]string{
			"permission_id": p.ID.String(),
			"company_id":    dto.RevokedByCompanyID.String(),
		})
	}

	revokedAt := time.Now()
	var transitioned bool
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		transitioned, err = s.perms.Revoke(txCtx, p.ID, dto.RevokedByUserID, revokedAt)
		if err != nil {
			return err
		}
		if !transitioned {
			// Lost a race against a concurrent revoke; their audit event
			// already records the transition.
			return nil
		}
		_, err = s.audit.LogEvent(txCtx, LogEventParams{
			EventType:      auditevent.EventPermissionRevoked,
			EntityType:     "access_permission",
			EntityID:       &p.ID,
			Action:         "revoke_permission",
			Description:    "permission revoked: " + dto.Reason,
			ActorUserID:    &dto.RevokedByUserID,
			ActorCompanyID: &dto.RevokedByCompanyID,
			OldValues:      map[string]any{"is_active": true, "revoked_at": nil},
			NewValues:      map[string]any{"is_active": false, "revoked_at": revokedAt.Format(time.RFC3339)},
			Metadata:       map[string]any{"reason": dto.Reason},
			ComplianceTags: []string{"access-control"},
		})
		return err
	})
	if err != nil {
		return false, err
	}

	if transitioned {
		s.publisher.Publish(events.NewPermissionRevoked(p, dto.RevokedByUserID, dto.Reason))
	}
	return true, nil
}

// ListForCompany returns a company's grants in both directions, newest first.
func (s *PermissionService) ListForCompany(ctx context.Context, params permission.ListParams) ([]*permission.AccessPermission, error) {
	return s.perms.ListForCompany(ctx, params)
}

func grantDescription(p *permission.AccessPermission) string {
	return "granted " + strings.Join(p.AccessTypes.Strings(), "/") +
		" on " + p.DataCategory.String() +
		" at " + p.SensitivityLevel.String() +
		" to company " + p.GranteeCompanyID.String()
}

func grantSnapshot(p *permission.AccessPermission) map[string]any {
	snapshot := map[string]any{
		"grantor_company_id": p.GrantorCompanyID.String(),
		"grantee_company_id": p.GranteeCompanyID.String(),
		"data_category":      p.DataCategory.String(),
		"sensitivity_level":  p.SensitivityLevel.String(),
		"access_types":       p.AccessTypes.Strings(),
		"justification":      p.Justification,
		"auto_granted":       p.AutoGranted,
	}
	if p.ExpiresAt != nil {
		snapshot["expires_at"] = p.ExpiresAt.Format(time.RFC3339)
	}
	return snapshot
}
