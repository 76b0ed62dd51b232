package invitationrepofakes

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/invitations"
	"github.com/jrsteele09/go-iam-server/organizations"
)

var _ invitations.Repo = (*FakeInvitationRepo)(nil)

// MembershipWriter receives the membership written on acceptance.
type MembershipWriter interface {
	AddMember(ctx context.Context, organizationID, userID string, roles []organizations.RoleID) error
}

type FakeInvitationRepo struct {
	invitations map[string]*invitations.Invitation
	members     MembershipWriter
	lock        sync.Mutex

	InsertErr error
}

func NewFakeInvitationRepo(members MembershipWriter) *FakeInvitationRepo {
	return &FakeInvitationRepo{
		invitations: make(map[string]*invitations.Invitation),
		members:     members,
	}
}

func clone(inv *invitations.Invitation) *invitations.Invitation {
	cp := *inv
	cp.Roles = slices.Clone(inv.Roles)
	return &cp
}

func (r *FakeInvitationRepo) Insert(_ context.Context, inv *invitations.Invitation) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	for _, existing := range r.invitations {
		if existing.Status == invitations.StatusPending &&
			existing.OrganizationID == inv.OrganizationID &&
			existing.Invitee == inv.Invitee {
			return errors.Wrapf(errors.ErrConflict, "invitee %s", inv.Invitee)
		}
	}
	r.invitations[inv.ID] = clone(inv)
	return nil
}

func (r *FakeInvitationRepo) FindByID(_ context.Context, id string) (*invitations.Invitation, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "invitation %s", id)
	}
	return clone(inv), nil
}

func (r *FakeInvitationRepo) ListByOrganization(_ context.Context, organizationID string, offset, limit int) (invitations.Page, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	all := make([]*invitations.Invitation, 0)
	for _, inv := range r.invitations {
		if inv.OrganizationID == organizationID {
			all = append(all, clone(inv))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID > all[j].ID
	})

	page := invitations.Page{Items: []*invitations.Invitation{}, Total: len(all)}
	if offset >= len(all) {
		return page, nil
	}
	end := min(offset+limit, len(all))
	page.Items = all[offset:end]
	return page, nil
}

// Accept holds the lock across the status check and the membership write so
// concurrent callers cannot both succeed.
func (r *FakeInvitationRepo) Accept(ctx context.Context, id, userID string, roles []organizations.RoleID, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "invitation %s", id)
	}
	if inv.Status != invitations.StatusPending {
		return errors.Wrapf(errors.ErrInvalidState, "invitation %s is %s", id, inv.Status)
	}
	if err := r.members.AddMember(ctx, inv.OrganizationID, userID, roles); err != nil {
		return err
	}
	inv.Status = invitations.StatusAccepted
	inv.AcceptedUserID = userID
	inv.UpdatedAt = at
	return nil
}

func (r *FakeInvitationRepo) UpdateStatus(_ context.Context, id string, status invitations.Status, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	inv, ok := r.invitations[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "invitation %s", id)
	}
	if inv.Status != invitations.StatusPending {
		return errors.Wrapf(errors.ErrInvalidState, "invitation %s is %s", id, inv.Status)
	}
	inv.Status = status
	inv.UpdatedAt = at
	return nil
}

// Put stores an invitation as is, bypassing the uniqueness check.
func (r *FakeInvitationRepo) Put(inv *invitations.Invitation) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.invitations[inv.ID] = clone(inv)
}
