package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/accessattempt"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/classification"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/permission"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/relationship"
	"github.com/supplyline/datagate/modules/sharing/domain/value_objects/access"
	"github.com/supplyline/datagate/pkg/composables"
	"github.com/supplyline/datagate/pkg/metrics"
)

// AccessService decides whether one company may touch another company's data
// and filters response payloads field by field. Its decisions never surface
// errors: anything that prevents a confident GRANTED comes back as DENIED.
type AccessService struct {
	perms    permission.Repository
	rels     relationship.Repository
	attempts accessattempt.Repository
	rules    classification.Repository
	audit    *AuditTrailService
}

func NewAccessService(
	perms permission.Repository,
	rels relationship.Repository,
	attempts accessattempt.Repository,
	rules classification.Repository,
	audit *AuditTrailService,
) *AccessService {
	return &AccessService{
		perms:    perms,
		rels:     rels,
		attempts: attempts,
		rules:    rules,
		audit:    audit,
	}
}

// CheckAccessRequest describes one access check. A nil SensitivityLevel means
// the caller did not classify the request and OPERATIONAL is assumed.
type CheckAccessRequest struct {
	RequestingUserID    uuid.UUID
	RequestingCompanyID uuid.UUID
	// TargetCompanyID is nil when the caller reads its own data.
	TargetCompanyID  *uuid.UUID
	DataCategory     access.DataCategory
	AccessType       access.Type
	EntityType       string
	EntityID         *uuid.UUID
	SensitivityLevel *access.SensitivityLevel
}

// AccessDecision is the answer to one check plus the evidence behind it.
type AccessDecision struct {
	Result access.Result
	Reason string
	// Permission is the explicit grant that justified a GRANTED result, nil
	// when access came from ownership or a relationship default.
	Permission *permission.AccessPermission
	// AttemptID identifies the recorded attempt, zero when recording failed.
	AttemptID uuid.UUID
}

func (d AccessDecision) Allowed() bool {
	return d.Result == access.ResultGranted
}

// CheckAccess resolves one access request. It does not return an error:
// invalid input, a cancelled context or a store failure all produce a DENIED
// decision with the cause in Reason. Every call records an access attempt on
// a best-effort basis.
func (s *AccessService) CheckAccess(ctx context.Context, req CheckAccessRequest) AccessDecision {
	decision, grant := s.decide(ctx, req)

	attemptID := s.recordAttempt(ctx, req, decision, grant)

	metrics.AccessDecisions.WithLabelValues(decision.Result.String()).Inc()
	if !decision.Allowed() && req.TargetCompanyID != nil && *req.TargetCompanyID != req.RequestingCompanyID {
		metrics.UnauthorizedAttempts.Inc()
		s.recordUnauthorizedEvent(ctx, req, decision)
	}

	return AccessDecision{
		Result:     decision.Result,
		Reason:     decision.Reason,
		Permission: grant,
		AttemptID:  attemptID,
	}
}

func (s *AccessService) decide(ctx context.Context, req CheckAccessRequest) (access.Decision, *permission.AccessPermission) {
	if err := ctx.Err(); err != nil {
		return access.Denied("request cancelled"), nil
	}
	if req.RequestingCompanyID == uuid.Nil {
		return access.Denied("requesting company is required"), nil
	}
	if !req.DataCategory.Valid() {
		return access.Denied("unknown data category"), nil
	}
	if !req.AccessType.Valid() {
		return access.Denied("unknown access type"), nil
	}
	level := access.LevelOperational
	if req.SensitivityLevel != nil {
		if !req.SensitivityLevel.Valid() {
			return access.Denied("unknown sensitivity level"), nil
		}
		level = *req.SensitivityLevel
	}

	// A company always has full access to its own data.
	if req.TargetCompanyID == nil || *req.TargetCompanyID == req.RequestingCompanyID {
		return access.Granted(), nil
	}

	candidates, err := s.perms.FindActive(ctx, permission.FindParams{
		GranteeCompanyID: req.RequestingCompanyID,
		GrantorCompanyID: *req.TargetCompanyID,
		DataCategory:     req.DataCategory,
		Now:              time.Now(),
	})
	if err != nil {
		composables.UseLogger(ctx).WithError(err).Error("permission lookup failed, denying")
		return access.Denied("permission lookup failed: " + err.Error()), nil
	}
	for _, candidate := range candidates {
		if candidate.Allows(req.AccessType) &&
			candidate.CoversLevel(level) &&
			candidate.CoversEntity(req.EntityType, req.EntityID) {
			return access.Granted(), candidate
		}
	}

	rel, err := s.rels.FindActiveBetween(ctx, *req.TargetCompanyID, req.RequestingCompanyID)
	if err != nil && !errorsIsNotFound(err) {
		composables.UseLogger(ctx).WithError(err).Error("relationship lookup failed, denying")
		return access.Denied("relationship lookup failed: " + err.Error()), nil
	}
	return relationship.Resolve(rel, req.DataCategory, req.AccessType, level), nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, relationship.ErrNotFound)
}

// recordAttempt persists the attempt row. Telemetry must not interfere with
// the decision, so failures are counted and logged but swallowed.
func (s *AccessService) recordAttempt(
	ctx context.Context,
	req CheckAccessRequest,
	decision access.Decision,
	grant *permission.AccessPermission,
) uuid.UUID {
	attempt := &accessattempt.AccessAttempt{
		RequestingUserID:    req.RequestingUserID,
		RequestingCompanyID: req.RequestingCompanyID,
		TargetCompanyID:     req.TargetCompanyID,
		DataCategory:        req.DataCategory,
		AccessType:          req.AccessType,
		EntityType:          req.EntityType,
		EntityID:            req.EntityID,
		AccessResult:        decision.Result,
		DenialReason:        decision.Reason,
	}
	if grant != nil {
		id := grant.ID
		attempt.PermissionID = &id
	}
	return s.persistAttempt(ctx, attempt)
}

func (s *AccessService) persistAttempt(ctx context.Context, attempt *accessattempt.AccessAttempt) uuid.UUID {
	if params, ok := composables.UseParams(ctx); ok {
		attempt.IPAddress = params.IP
		attempt.UserAgent = params.UserAgent
		attempt.APIEndpoint = params.Endpoint
		attempt.HTTPMethod = params.Method
		attempt.RequestID = params.RequestID
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		metrics.AttemptLogFailures.Inc()
		composables.UseLogger(ctx).WithError(err).Warn("failed to record access attempt")
		return uuid.Nil
	}
	return attempt.ID
}

// recordUnauthorizedEvent writes the high-severity audit trail entry for a
// denied cross-company attempt. Unlike operation audits this runs outside any
// caller transaction and is best-effort: the denial stands either way.
func (s *AccessService) recordUnauthorizedEvent(ctx context.Context, req CheckAccessRequest, decision access.Decision) {
	metadata := map[string]any{
		"data_category": req.DataCategory.String(),
		"access_type":   req.AccessType.String(),
		"denial_reason": decision.Reason,
	}
	if req.TargetCompanyID != nil {
		metadata["target_company_id"] = req.TargetCompanyID.String()
	}
	actorUserID := req.RequestingUserID
	actorCompanyID := req.RequestingCompanyID
	_, err := s.audit.LogEvent(composables.WithoutTx(ctx), LogEventParams{
		EventType:      auditevent.EventUnauthorizedAccess,
		Severity:       auditevent.SeverityHigh,
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		Action:         "access_denied",
		Description:    "unauthorized cross-company access attempt: " + decision.Reason,
		ActorUserID:    &actorUserID,
		ActorCompanyID: &actorCompanyID,
		Metadata:       metadata,
		IsSensitive:    true,
		ComplianceTags: []string{"access-control"},
	})
	if err != nil {
		composables.UseLogger(ctx).WithError(err).Error("failed to record unauthorized access event")
	}
}

// FilterRequest describes one payload-filtering pass.
type FilterRequest struct {
	RequestingUserID    uuid.UUID
	RequestingCompanyID uuid.UUID
	OwnerCompanyID      uuid.UUID
	DataCategory        access.DataCategory
	EntityType          string
	EntityID            *uuid.UUID
	Data                map[string]any
}

// FilterResult carries the filtered payload plus the sorted names of the
// fields that were replaced with placeholders.
type FilterResult struct {
	Data           map[string]any
	FilteredFields []string
}

// FilterSensitiveData replaces every field the requesting company may not see
// with a placeholder naming the withheld level. The input map is not
// modified. When classification state cannot be loaded the whole payload is
// withheld rather than passed through. Cross-company passes record an access
// attempt carrying the names of the filtered fields.
func (s *AccessService) FilterSensitiveData(ctx context.Context, req FilterRequest) FilterResult {
	if req.Data == nil {
		return FilterResult{Data: map[string]any{}, FilteredFields: []string{}}
	}
	if req.OwnerCompanyID == req.RequestingCompanyID {
		out := make(map[string]any, len(req.Data))
		for k, v := range req.Data {
			out[k] = v
		}
		return FilterResult{Data: out, FilteredFields: []string{}}
	}

	rules, err := s.rules.ListActiveForEntityType(ctx, req.EntityType)
	if err != nil {
		composables.UseLogger(ctx).WithError(err).Error("rule lookup failed, withholding payload")
		return s.withholdAll(ctx, req, "classification rules unavailable")
	}

	candidates, err := s.perms.FindActive(ctx, permission.FindParams{
		GranteeCompanyID: req.RequestingCompanyID,
		GrantorCompanyID: req.OwnerCompanyID,
		DataCategory:     req.DataCategory,
		Now:              time.Now(),
	})
	if err != nil {
		composables.UseLogger(ctx).WithError(err).Error("permission lookup failed, withholding payload")
		return s.withholdAll(ctx, req, "permission state unavailable")
	}

	rel, err := s.rels.FindActiveBetween(ctx, req.OwnerCompanyID, req.RequestingCompanyID)
	if err != nil && !errorsIsNotFound(err) {
		composables.UseLogger(ctx).WithError(err).Error("relationship lookup failed, withholding payload")
		return s.withholdAll(ctx, req, "relationship state unavailable")
	}

	out := make(map[string]any, len(req.Data))
	filtered := make([]string, 0)
	for field, value := range req.Data {
		level := classification.Classify(req.EntityType, field, rules)
		if level == access.LevelPublic {
			out[field] = value
			continue
		}
		if s.fieldVisible(req, candidates, rel, field, level) {
			out[field] = value
			continue
		}
		out[field] = level.FilteredPlaceholder()
		filtered = append(filtered, field)
	}
	sort.Strings(filtered)
	s.recordFilterAttempt(ctx, req, access.ResultGranted, "", filtered)
	return FilterResult{Data: out, FilteredFields: filtered}
}

func (s *AccessService) fieldVisible(
	req FilterRequest,
	candidates []*permission.AccessPermission,
	rel *relationship.BusinessRelationship,
	field string,
	level access.SensitivityLevel,
) bool {
	for _, candidate := range candidates {
		if !candidate.Allows(access.TypeRead) ||
			!candidate.CoversLevel(level) ||
			!candidate.CoversEntity(req.EntityType, req.EntityID) {
			continue
		}
		if candidate.RestrictsField(field) {
			continue
		}
		return true
	}
	return relationship.Resolve(rel, req.DataCategory, access.TypeRead, level).Allowed()
}

// withholdAll is the internal-error fallback: an empty payload with every
// field reported as filtered, recorded as a denied attempt.
func (s *AccessService) withholdAll(ctx context.Context, req FilterRequest, reason string) FilterResult {
	filtered := make([]string, 0, len(req.Data))
	for field := range req.Data {
		filtered = append(filtered, field)
	}
	sort.Strings(filtered)
	s.recordFilterAttempt(ctx, req, access.ResultDenied, reason, filtered)
	return FilterResult{Data: map[string]any{}, FilteredFields: filtered}
}

func (s *AccessService) recordFilterAttempt(
	ctx context.Context,
	req FilterRequest,
	result access.Result,
	denialReason string,
	filteredFields []string,
) {
	owner := req.OwnerCompanyID
	s.persistAttempt(ctx, &accessattempt.AccessAttempt{
		RequestingUserID:    req.RequestingUserID,
		RequestingCompanyID: req.RequestingCompanyID,
		TargetCompanyID:     &owner,
		DataCategory:        req.DataCategory,
		AccessType:          access.TypeRead,
		EntityType:          req.EntityType,
		EntityID:            req.EntityID,
		AccessResult:        result,
		DenialReason:        denialReason,
		FilteredFields:      filteredFields,
	})
}

// ListAttempts pages recorded access attempts for security review.
func (s *AccessService) ListAttempts(ctx context.Context, params *accessattempt.FindParams) ([]*accessattempt.AccessAttempt, int64, error) {
	items, err := s.attempts.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.attempts.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
