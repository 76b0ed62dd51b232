package invitations

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/mail"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/config"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/internal/ids"
	"github.com/jrsteele09/go-iam-server/organizations"
	"github.com/jrsteele09/go-iam-server/tenants"
	"github.com/rs/zerolog/log"
)

// Errors returned by the manager. Each acceptance failure has its own code.
var (
	ErrInvitationNotFound = errors.NewCoded(errors.ErrNotFound, errors.CodeInvitationNotFound, "invitation not found", http.StatusNotFound)
	ErrInvalidEmail       = errors.NewCoded(errors.ErrInvalidInput, errors.CodeInvitationInvalidEmail, "email does not match the invitee", http.StatusBadRequest)
	ErrInvalidStatus      = errors.NewCoded(errors.ErrInvalidState, errors.CodeInvitationInvalidStatus, "invitation is not pending", http.StatusUnprocessableEntity)
	ErrExpired            = errors.NewCoded(errors.ErrExpired, errors.CodeInvitationExpired, "invitation has expired", http.StatusUnprocessableEntity)
	ErrNoRoles            = errors.NewCoded(errors.ErrInvalidState, errors.CodeInvitationNoRoles, "invitation carries no role", http.StatusUnprocessableEntity)
	ErrConflict           = errors.NewCoded(errors.ErrConflict, errors.CodeInvitationConflict, "a pending invitation already exists for this invitee", http.StatusConflict)
	ErrCreateFailed       = errors.NewCoded(errors.ErrInternal, errors.CodeInternal, "", http.StatusInternalServerError)
	ErrTenantSuspended    = errors.NewCoded(errors.ErrTenantSuspended, errors.CodeTenantSuspended, "tenant is suspended", 0)
	ErrTenantNotFound     = errors.NewCoded(errors.ErrNotFound, errors.CodeNotFound, "tenant not found", 0)
	ErrInvalidPage        = errors.NewCoded(errors.ErrInvalidInput, errors.CodeInvalidInput, "page is out of range", http.StatusBadRequest)
)

// TenantFinder is the slice of the tenant registry the manager needs.
type TenantFinder interface {
	FindByID(ctx context.Context, id string) (*tenants.Tenant, error)
}

// OrganizationEnsurer creates the tenant's organization on demand.
type OrganizationEnsurer interface {
	Ensure(ctx context.Context, org organizations.Organization) error
}

type CreateInput struct {
	TenantID  string
	Invitee   string
	InviterID string
	Role      organizations.TenantRole
	ExpiresAt *time.Time
}

type Manager struct {
	repo    Repo
	tenants TenantFinder
	orgs    OrganizationEnsurer
	mode    config.DeploymentMode
	expiry  time.Duration
	maxPage int
	now     func() time.Time
	newID   func() string
}

type Option func(*Manager)

func WithNowTime(fn func() time.Time) Option {
	return func(m *Manager) {
		m.now = fn
	}
}

func WithExpiry(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiry = d
		}
	}
}

func WithMaxPageSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxPage = n
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

func NewManager(repo Repo, tenantFinder TenantFinder, orgs OrganizationEnsurer, mode config.DeploymentMode, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		tenants: tenantFinder,
		orgs:    orgs,
		mode:    mode,
		expiry:  DefaultExpiry,
		maxPage: DefaultMaxPageSize,
		now:     time.Now,
		newID:   ids.New,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create(ctx context.Context, in CreateInput) (*TenantInvitation, error) {
	if _, err := mail.ParseAddress(in.Invitee); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "[Manager.Create] invitee %q", in.Invitee)
	}
	roleID, ok := in.Role.RoleID()
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "[Manager.Create] role %q", in.Role)
	}

	tenant, err := m.tenants.FindByID(ctx, in.TenantID)
	if err != nil {
		return nil, fmt.Errorf("[Manager.Create] %w", err)
	}

	orgID := organizations.IDForTenant(tenant.ID)
	if err := m.orgs.Ensure(ctx, organizations.Organization{ID: orgID, Name: tenant.Name}); err != nil {
		return nil, fmt.Errorf("[Manager.Create] ensure organization: %w", err)
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.expiry)
	if in.ExpiresAt != nil {
		expiresAt = in.ExpiresAt.UTC()
	}
	inv := &Invitation{
		ID:             m.newID(),
		OrganizationID: orgID,
		Invitee:        in.Invitee,
		InviterID:      in.InviterID,
		Status:         StatusPending,
		Roles:          []organizations.RoleID{roleID},
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      expiresAt,
	}

	if err := m.repo.Insert(ctx, inv); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil, ErrConflict
		}
		log.Err(err).Str("tenant_id", tenant.ID).Msg("failed to insert invitation")
		return nil, ErrCreateFailed
	}
	return &TenantInvitation{Invitation: *inv, TenantID: tenant.ID, Role: in.Role}, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Invitation, error) {
	inv, err := m.repo.FindByID(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[Manager.Get] %w", err)
	}
	return inv, nil
}

// List pages through a tenant's invitations, newest first. Pages start at 1.
// Page sizes above the configured maximum are rejected, as are pages whose
// offset cannot be represented.
func (m *Manager) List(ctx context.Context, tenantID string, page, pageSize int) ([]*TenantInvitation, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > m.maxPage || page-1 > math.MaxInt/pageSize {
		return nil, 0, ErrInvalidPage
	}
	if _, err := m.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, 0, fmt.Errorf("[Manager.List] %w", err)
	}

	result, err := m.repo.ListByOrganization(ctx, organizations.IDForTenant(tenantID), (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("[Manager.List] %w", err)
	}

	items := make([]*TenantInvitation, 0, len(result.Items))
	for _, inv := range result.Items {
		role, _ := organizations.TenantRoleFor(inv.Roles)
		items = append(items, &TenantInvitation{Invitation: *inv, TenantID: tenantID, Role: role})
	}
	return items, result.Total, nil
}

// Accept admits userID into the invitation's organization. The checks run in a
// fixed order so callers can tell every rejection apart.
func (m *Manager) Accept(ctx context.Context, id, email, userID string) (AcceptResult, error) {
	inv, err := m.repo.FindByID(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		return AcceptResult{}, ErrInvitationNotFound
	}
	if err != nil {
		return AcceptResult{}, fmt.Errorf("[Manager.Accept] %w", err)
	}

	if inv.Invitee != email {
		return AcceptResult{}, ErrInvalidEmail
	}
	if inv.Status != StatusPending {
		return AcceptResult{}, ErrInvalidStatus
	}
	now := m.now().UTC()
	if inv.IsExpired(now) {
		return AcceptResult{}, ErrExpired
	}
	role, ok := organizations.TenantRoleFor(inv.Roles)
	if !ok {
		return AcceptResult{}, ErrNoRoles
	}
	roleID, _ := role.RoleID()

	tenantID := organizations.TenantIDFor(inv.OrganizationID)
	if err := m.checkTenant(ctx, tenantID); err != nil {
		return AcceptResult{}, err
	}

	err = m.repo.Accept(ctx, inv.ID, userID, []organizations.RoleID{roleID}, now)
	if errors.Is(err, errors.ErrInvalidState) {
		return AcceptResult{}, ErrInvalidStatus
	}
	if err != nil {
		return AcceptResult{}, fmt.Errorf("[Manager.Accept] %w", err)
	}
	return AcceptResult{TenantID: tenantID, Role: role}, nil
}

func (m *Manager) checkTenant(ctx context.Context, tenantID string) error {
	tenant, err := m.tenants.FindByID(ctx, tenantID)
	if errors.Is(err, errors.ErrNotFound) {
		return ErrTenantNotFound
	}
	if err != nil {
		return fmt.Errorf("[Manager.checkTenant] %w", err)
	}
	if m.mode.IsCloud() && tenant.IsSuspended {
		return ErrTenantSuspended
	}
	return nil
}

// Revoke withdraws a pending invitation that belongs to tenantID.
func (m *Manager) Revoke(ctx context.Context, tenantID, id string) error {
	inv, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.OrganizationID != organizations.IDForTenant(tenantID) {
		return ErrInvitationNotFound
	}
	err = m.repo.UpdateStatus(ctx, id, StatusRevoked, m.now().UTC())
	if errors.Is(err, errors.ErrInvalidState) {
		return ErrInvalidStatus
	}
	if err != nil {
		return fmt.Errorf("[Manager.Revoke] %w", err)
	}
	return nil
}
