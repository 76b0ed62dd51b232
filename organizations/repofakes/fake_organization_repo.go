package orgrepofakes

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/organizations"
)

var _ organizations.Repo = (*FakeOrganizationRepo)(nil)

// MfaLookup reports whether a user has at least one MFA factor.
type MfaLookup func(ctx context.Context, userID string) (bool, error)

type FakeOrganizationRepo struct {
	orgs    map[string]*organizations.Organization
	members map[string]map[string][]organizations.RoleID
	mfa     MfaLookup
	lock    sync.RWMutex

	EnsureErr    error
	AddMemberErr error
}

type Option func(*FakeOrganizationRepo)

func WithMfaLookup(lookup MfaLookup) Option {
	return func(r *FakeOrganizationRepo) {
		r.mfa = lookup
	}
}

func NewFakeOrganizationRepo(opts ...Option) *FakeOrganizationRepo {
	r := &FakeOrganizationRepo{
		orgs:    make(map[string]*organizations.Organization),
		members: make(map[string]map[string][]organizations.RoleID),
		mfa: func(context.Context, string) (bool, error) {
			return false, nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *FakeOrganizationRepo) Ensure(_ context.Context, org organizations.Organization) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.EnsureErr != nil {
		return r.EnsureErr
	}
	if _, ok := r.orgs[org.ID]; ok {
		return nil
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	r.orgs[org.ID] = &org
	return nil
}

// Exists reports whether the organization has been ensured.
func (r *FakeOrganizationRepo) Exists(organizationID string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.orgs[organizationID]
	return ok
}

func (r *FakeOrganizationRepo) Delete(_ context.Context, organizationID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.orgs, organizationID)
	delete(r.members, organizationID)
	return nil
}

// SetMfaRequired flips the organization MFA policy.
func (r *FakeOrganizationRepo) SetMfaRequired(organizationID string, required bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if org, ok := r.orgs[organizationID]; ok {
		org.IsMfaRequired = required
	}
}

func (r *FakeOrganizationRepo) IsMember(_ context.Context, organizationID, userID string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.members[organizationID][userID]
	return ok, nil
}

func (r *FakeOrganizationRepo) MfaRequirement(ctx context.Context, organizationID, userID string) (organizations.MfaRequirement, error) {
	r.lock.RLock()
	org, ok := r.orgs[organizationID]
	var required bool
	if ok {
		required = org.IsMfaRequired
	}
	r.lock.RUnlock()
	if !ok {
		return organizations.MfaRequirement{}, errors.Wrapf(errors.ErrNotFound, "organization %s", organizationID)
	}

	configured, err := r.mfa(ctx, userID)
	if err != nil {
		return organizations.MfaRequirement{}, fmt.Errorf("[FakeOrganizationRepo.MfaRequirement] %w", err)
	}
	return organizations.MfaRequirement{IsMfaRequired: required, HasMfaConfigured: configured}, nil
}

func (r *FakeOrganizationRepo) AddMember(_ context.Context, organizationID, userID string, roles []organizations.RoleID) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.AddMemberErr != nil {
		return r.AddMemberErr
	}
	if _, ok := r.orgs[organizationID]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "organization %s", organizationID)
	}
	if r.members[organizationID] == nil {
		r.members[organizationID] = make(map[string][]organizations.RoleID)
	}
	existing := r.members[organizationID][userID]
	for _, role := range roles {
		if !slices.Contains(existing, role) {
			existing = append(existing, role)
		}
	}
	if existing == nil {
		existing = []organizations.RoleID{}
	}
	r.members[organizationID][userID] = existing
	return nil
}

func (r *FakeOrganizationRepo) RemoveMember(_ context.Context, organizationID, userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.members[organizationID][userID]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "member %s", userID)
	}
	delete(r.members[organizationID], userID)
	return nil
}

func (r *FakeOrganizationRepo) UpdateMemberRoles(_ context.Context, organizationID, userID string, roles []organizations.RoleID) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.members[organizationID][userID]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "member %s", userID)
	}
	r.members[organizationID][userID] = slices.Clone(roles)
	return nil
}

func (r *FakeOrganizationRepo) ListMembers(_ context.Context, organizationID string) ([]organizations.Member, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	members := make([]organizations.Member, 0, len(r.members[organizationID]))
	for userID, roles := range r.members[organizationID] {
		members = append(members, organizations.Member{UserID: userID, Roles: slices.Clone(roles)})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

func (r *FakeOrganizationRepo) OrganizationIDsForUser(_ context.Context, userID string) ([]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	ids := make([]string, 0)
	for orgID, members := range r.members {
		if _, ok := members[userID]; ok {
			ids = append(ids, orgID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
