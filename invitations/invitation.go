package invitations

import (
	"time"

	"github.com/jrsteele09/go-iam-server/organizations"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusExpired  Status = "Expired"
	StatusRevoked  Status = "Revoked"
)

// DefaultExpiry is how long an invitation stays valid when no expiry is given.
const DefaultExpiry = 7 * 24 * time.Hour

// DefaultMaxPageSize bounds a single page of invitations.
const DefaultMaxPageSize = 100

type Invitation struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organizationId"`
	Invitee        string                 `json:"invitee"`
	InviterID      string                 `json:"inviterId,omitempty"`
	AcceptedUserID string                 `json:"acceptedUserId,omitempty"`
	Status         Status                 `json:"status"`
	Roles          []organizations.RoleID `json:"organizationRoles"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
	ExpiresAt      time.Time              `json:"expiresAt"`
}

// IsExpired is true once the deadline has passed, whatever the stored status says.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// TenantInvitation is the management API view of an invitation.
type TenantInvitation struct {
	Invitation
	TenantID string                   `json:"tenantId"`
	Role     organizations.TenantRole `json:"role,omitempty"`
}

type AcceptResult struct {
	TenantID string                   `json:"tenantId"`
	Role     organizations.TenantRole `json:"role"`
}

type Page struct {
	Items []*Invitation
	Total int
}
