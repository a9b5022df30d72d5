package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/supplyline/datagate/modules/sharing/domain/entities/accessattempt"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/auditevent"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/classification"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/permission"
	"github.com/supplyline/datagate/modules/sharing/domain/entities/relationship"
	"github.com/supplyline/datagate/pkg/composables"
)

// nopTx satisfies pgx.Tx so transactional service paths can run against the
// in-memory repositories without a database.
type nopTx struct{}

func (nopTx) Begin(_ context.Context) (pgx.Tx, error) { return nopTx{}, nil }
func (nopTx) Commit(_ context.Context) error          { return nil }
func (nopTx) Rollback(_ context.Context) error        { return nil }
func (nopTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (nopTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (nopTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (nopTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (nopTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (nopTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return nil, nil }
func (nopTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row        { return nil }
func (nopTx) Conn() *pgx.Conn                                               { return nil }

func txContext() context.Context {
	return composables.WithTx(context.Background(), nopTx{})
}

type permRepoFake struct {
	mu        sync.Mutex
	items     []*permission.AccessPermission
	clock     time.Time
	createErr error
	findErr   error
}

func newPermRepoFake() *permRepoFake {
	return &permRepoFake{clock: time.Now().Add(-time.Hour)}
}

func (f *permRepoFake) Create(_ context.Context, p *permission.AccessPermission) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		f.clock = f.clock.Add(time.Second)
		p.CreatedAt = f.clock
	}
	f.items = append(f.items, p)
	return nil
}

func (f *permRepoFake) GetByID(_ context.Context, id uuid.UUID) (*permission.AccessPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, permission.ErrNotFound
}

func (f *permRepoFake) FindActive(_ context.Context, params permission.FindParams) ([]*permission.AccessPermission, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*permission.AccessPermission
	for _, p := range f.items {
		if !p.Usable(params.Now) {
			continue
		}
		if p.GrantorCompanyID != params.GrantorCompanyID ||
			p.GranteeCompanyID != params.GranteeCompanyID ||
			p.DataCategory != params.DataCategory {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *permRepoFake) Revoke(_ context.Context, id uuid.UUID, revokedBy uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ID != id {
			continue
		}
		if !p.IsActive {
			return false, nil
		}
		p.IsActive = false
		p.RevokedAt = &at
		p.RevokedByUserID = &revokedBy
		return true, nil
	}
	return false, nil
}

func (f *permRepoFake) ListForCompany(_ context.Context, params permission.ListParams) ([]*permission.AccessPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*permission.AccessPermission
	for _, p := range f.items {
		if p.GrantorCompanyID != params.CompanyID && p.GranteeCompanyID != params.CompanyID {
			continue
		}
		if !params.IncludeIdle && !p.Usable(time.Now()) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type relRepoFake struct {
	rels    []*relationship.BusinessRelationship
	findErr error
}

func (f *relRepoFake) FindActiveBetween(_ context.Context, a, b uuid.UUID) (*relationship.BusinessRelationship, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, rel := range f.rels {
		if rel.IsActive() && rel.Links(a, b) {
			return rel, nil
		}
	}
	return nil, relationship.ErrNotFound
}

type attemptRepoFake struct {
	mu        sync.Mutex
	attempts  []*accessattempt.AccessAttempt
	createErr error
}

func (f *attemptRepoFake) Create(_ context.Context, attempt *accessattempt.AccessAttempt) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	attempt.CreatedAt = time.Now()
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *attemptRepoFake) List(_ context.Context, _ *accessattempt.FindParams) ([]*accessattempt.AccessAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*accessattempt.AccessAttempt, len(f.attempts))
	copy(out, f.attempts)
	return out, nil
}

func (f *attemptRepoFake) Count(_ context.Context, _ *accessattempt.FindParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.attempts)), nil
}

func (f *attemptRepoFake) last() *accessattempt.AccessAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.attempts) == 0 {
		return nil
	}
	return f.attempts[len(f.attempts)-1]
}

type ruleRepoFake struct {
	rules   []*classification.Rule
	listErr error
}

func (f *ruleRepoFake) ListActiveForEntityType(_ context.Context, entityType string) ([]*classification.Rule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*classification.Rule
	for _, rule := range f.rules {
		if rule.IsActive && rule.EntityType == entityType {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *ruleRepoFake) Create(_ context.Context, rule *classification.Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	f.rules = append(f.rules, rule)
	return nil
}

type auditRepoFake struct {
	mu        sync.Mutex
	events    []*auditevent.AuditEvent
	createErr error
}

func (f *auditRepoFake) Create(_ context.Context, event *auditevent.AuditEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	f.events = append(f.events, event)
	return nil
}

func (f *auditRepoFake) List(_ context.Context, params *auditevent.FindParams) ([]*auditevent.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*auditevent.AuditEvent
	for _, event := range f.events {
		if params.EntityType != "" && event.EntityType != params.EntityType {
			continue
		}
		if params.EntityID != nil && (event.EntityID == nil || *event.EntityID != *params.EntityID) {
			continue
		}
		if len(params.EventTypes) > 0 && !containsEventType(params.EventTypes, event.EventType) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (f *auditRepoFake) Count(_ context.Context, params *auditevent.FindParams) (int64, error) {
	events, _ := f.List(context.Background(), params)
	return int64(len(events)), nil
}

func (f *auditRepoFake) byType(t auditevent.EventType) []*auditevent.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*auditevent.AuditEvent
	for _, event := range f.events {
		if event.EventType == t {
			out = append(out, event)
		}
	}
	return out
}

func containsEventType(types []auditevent.EventType, t auditevent.EventType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func activeRelationship(a, b uuid.UUID, sharing map[relationship.SharingKey]bool) *relationship.BusinessRelationship {
	return &relationship.BusinessRelationship{
		ID:              uuid.New(),
		BuyerCompanyID:  a,
		SellerCompanyID: b,
		Status:          relationship.StatusActive,
		DataSharing:     sharing,
	}
}
