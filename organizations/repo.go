package organizations

import "context"

// MembershipReader is the read side used while authorizing requests.
type MembershipReader interface {
	IsMember(ctx context.Context, organizationID, userID string) (bool, error)
	MfaRequirement(ctx context.Context, organizationID, userID string) (MfaRequirement, error)
}

type Repo interface {
	MembershipReader

	// Ensure creates the organization if it is missing and is safe to repeat.
	Ensure(ctx context.Context, org Organization) error
	Delete(ctx context.Context, organizationID string) error

	AddMember(ctx context.Context, organizationID, userID string, roles []RoleID) error
	RemoveMember(ctx context.Context, organizationID, userID string) error
	UpdateMemberRoles(ctx context.Context, organizationID, userID string, roles []RoleID) error
	ListMembers(ctx context.Context, organizationID string) ([]Member, error)
	OrganizationIDsForUser(ctx context.Context, userID string) ([]string, error)
}
