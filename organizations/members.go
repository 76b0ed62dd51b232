package organizations

import (
	"context"
	"fmt"
	"slices"

	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// Members changes who belongs to an organization. The guard reads the store on
// every request, so a removal or demotion applies to tokens already issued.
type Members struct {
	repo Repo
}

func NewMembers(repo Repo) *Members {
	return &Members{repo: repo}
}

func (m *Members) List(ctx context.Context, organizationID string) ([]Member, error) {
	members, err := m.repo.ListMembers(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("[Members.List] %w", err)
	}
	return members, nil
}

// Remove deletes a membership. Members may always leave; removing someone
// else takes an Admin. The last Admin cannot go.
func (m *Members) Remove(ctx context.Context, organizationID, actorID, userID string) error {
	members, err := m.repo.ListMembers(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("[Members.Remove] %w", err)
	}
	if actorID != userID && !isAdmin(members, actorID) {
		return notAdmin()
	}
	target, ok := findMember(members, userID)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "[Members.Remove] member %s", userID)
	}
	if slices.Contains(target.Roles, RoleAdmin) && adminCount(members) == 1 {
		return lastAdmin()
	}

	if err := m.repo.RemoveMember(ctx, organizationID, userID); err != nil {
		return fmt.Errorf("[Members.Remove] %w", err)
	}
	log.Info().Str("organization_id", organizationID).Str("user_id", userID).Str("actor_id", actorID).Msg("member removed")
	return nil
}

// UpdateRoles replaces a member's roles. Only Admins may change roles.
func (m *Members) UpdateRoles(ctx context.Context, organizationID, actorID, userID string, roles []TenantRole) ([]RoleID, error) {
	if len(roles) == 0 {
		return nil, errors.NewCoded(errors.ErrInvalidInput, errors.CodeInvalidInput, "at least one role is required", 0)
	}
	ids := make([]RoleID, 0, len(roles))
	for _, role := range roles {
		id, ok := role.RoleID()
		if !ok {
			return nil, errors.NewCoded(errors.ErrInvalidInput, errors.CodeInvalidInput, fmt.Sprintf("unknown tenant role %q", role), 0)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	members, err := m.repo.ListMembers(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("[Members.UpdateRoles] %w", err)
	}
	if !isAdmin(members, actorID) {
		return nil, notAdmin()
	}
	target, ok := findMember(members, userID)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "[Members.UpdateRoles] member %s", userID)
	}
	demoted := slices.Contains(target.Roles, RoleAdmin) && !slices.Contains(ids, RoleAdmin)
	if demoted && adminCount(members) == 1 {
		return nil, lastAdmin()
	}

	if err := m.repo.UpdateMemberRoles(ctx, organizationID, userID, ids); err != nil {
		return nil, fmt.Errorf("[Members.UpdateRoles] %w", err)
	}
	return ids, nil
}

func findMember(members []Member, userID string) (Member, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

func isAdmin(members []Member, userID string) bool {
	m, ok := findMember(members, userID)
	return ok && slices.Contains(m.Roles, RoleAdmin)
}

func adminCount(members []Member) int {
	n := 0
	for _, m := range members {
		if slices.Contains(m.Roles, RoleAdmin) {
			n++
		}
	}
	return n
}

func notAdmin() error {
	return forbidden("only organization admins can manage members")
}

func lastAdmin() error {
	return errors.NewCoded(errors.ErrInvalidState, errors.CodeOrganizationLastAdmin, "an organization needs at least one admin", 0)
}
