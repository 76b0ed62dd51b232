package tenants

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/internal/ids"
	"github.com/jrsteele09/go-iam-server/organizations"
	"github.com/rs/zerolog/log"
)

const dbPasswordLength = 32

type CreateInput struct {
	Name string `json:"name"`
	Tag  Tag    `json:"tag"`
}

type Service struct {
	repo  Repo
	roles RoleManager
	orgs  organizations.Repo
	newID func() (string, error)
	now   func() time.Time
}

type ServiceOption func(*Service)

func WithIDGenerator(fn func() (string, error)) ServiceOption {
	return func(s *Service) {
		s.newID = fn
	}
}

func WithNowTime(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = fn
	}
}

func NewService(repo Repo, roles RoleManager, orgs organizations.Repo, opts ...ServiceOption) *Service {
	s := &Service{
		repo:  repo,
		roles: roles,
		orgs:  orgs,
		newID: ids.TenantID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts the tenant row, provisions its database role and makes the
// creator an Admin of the mirrored organization. The stored row is re-read so
// callers see exactly what was persisted. Any failure after the insert undoes
// everything it provisioned.
func (s *Service) Create(ctx context.Context, creatorID string, input CreateInput) (_ *Tenant, err error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("[Service.Create] generate id: %w", err)
	}
	password, err := ids.Password(dbPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("[Service.Create] generate password: %w", err)
	}

	name := input.Name
	if name == "" {
		name = "My Project"
	}
	tag := input.Tag
	if tag == "" {
		tag = TagDevelopment
	}

	tenant := &Tenant{
		ID:             id,
		Name:           name,
		Tag:            tag,
		DBUser:         RoleName(id),
		DBUserPassword: password,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, tenant); err != nil {
		return nil, fmt.Errorf("[Service.Create] insert: %w", err)
	}

	var roleCreated, orgEnsured bool
	defer func() {
		if err != nil {
			s.undoCreate(context.WithoutCancel(ctx), tenant, roleCreated, orgEnsured)
		}
	}()

	if err := s.roles.CreateRole(ctx, tenant.DBUser, tenant.DBUserPassword); err != nil {
		return nil, fmt.Errorf("[Service.Create] create role: %w", err)
	}
	roleCreated = true

	orgID := organizations.IDForTenant(id)
	if err := s.orgs.Ensure(ctx, organizations.Organization{ID: orgID, Name: name}); err != nil {
		return nil, fmt.Errorf("[Service.Create] ensure organization: %w", err)
	}
	orgEnsured = true
	if creatorID != "" {
		if err := s.orgs.AddMember(ctx, orgID, creatorID, []organizations.RoleID{organizations.RoleAdmin}); err != nil {
			return nil, fmt.Errorf("[Service.Create] add creator: %w", err)
		}
	}

	stored, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("[Service.Create] re-read: %w", err)
	}
	return stored, nil
}

func (s *Service) undoCreate(ctx context.Context, tenant *Tenant, roleCreated, orgEnsured bool) {
	logger := log.With().Str("tenant_id", tenant.ID).Logger()
	if orgEnsured {
		if err := s.orgs.Delete(ctx, organizations.IDForTenant(tenant.ID)); err != nil {
			logger.Err(err).Msg("failed to remove organization of a failed tenant")
		}
	}
	if roleCreated {
		if err := s.roles.DropRole(ctx, tenant.DBUser); err != nil {
			// Keep the row so the role can still be found and dropped later.
			logger.Err(err).Msg("failed to drop role of a failed tenant")
			return
		}
	}
	if err := s.repo.Delete(ctx, tenant.ID); err != nil {
		logger.Err(err).Msg("failed to remove row of a failed tenant")
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("[Service.Get] %w", err)
	}
	return t, nil
}

// List returns the tenants a principal can see. Holders of the wildcard scope
// see everything; everyone else sees the tenants they belong to.
func (s *Service) List(ctx context.Context, principal *auth.Principal) ([]*Tenant, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Service.List] %w", err)
	}
	if principal != nil && principal.Scopes.Has(ScopeAll) {
		return all, nil
	}
	if principal == nil {
		return []*Tenant{}, nil
	}

	orgIDs, err := s.orgs.OrganizationIDsForUser(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("[Service.List] memberships: %w", err)
	}
	member := make(map[string]struct{}, len(orgIDs))
	for _, id := range orgIDs {
		member[organizations.TenantIDFor(id)] = struct{}{}
	}

	visible := make([]*Tenant, 0, len(all))
	for _, t := range all {
		if _, ok := member[t.ID]; ok {
			visible = append(visible, t)
		}
	}
	return visible, nil
}

// Update applies only the supplied fields. An empty patch returns the stored
// record without writing.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Tenant, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}
	if patch.Tag != nil {
		if _, err := ParseTag(string(*patch.Tag)); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "[Service.Update] %s", err.Error())
		}
	}
	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("[Service.Update] %w", err)
	}
	return t, nil
}

// SetSuspended marks a tenant suspended or active.
func (s *Service) SetSuspended(ctx context.Context, id string, suspended bool) (*Tenant, error) {
	if err := s.repo.SetSuspended(ctx, id, suspended); err != nil {
		return nil, fmt.Errorf("[Service.SetSuspended] %w", err)
	}
	return s.Get(ctx, id)
}

// Delete drops the tenant's database role and then removes the row. System
// tenants are rejected before anything is touched.
func (s *Service) Delete(ctx context.Context, id string) error {
	if IsSystemTenant(id) {
		return errors.NewCoded(errors.ErrSystemTenantProtected, errors.CodeSystemTenantProtected,
			fmt.Sprintf("tenant %s is a system tenant and cannot be deleted", id), 0)
	}

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("[Service.Delete] %w", err)
	}

	dbUser := t.DBUser
	if dbUser == "" {
		dbUser = RoleName(id)
	}
	if err := s.roles.DropRole(ctx, dbUser); err != nil {
		return fmt.Errorf("[Service.Delete] drop role: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("[Service.Delete] delete row: %w", err)
	}
	if err := s.orgs.Delete(ctx, organizations.IDForTenant(id)); err != nil {
		return fmt.Errorf("[Service.Delete] delete organization: %w", err)
	}
	return nil
}
