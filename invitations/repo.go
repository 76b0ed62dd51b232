package invitations

import (
	"context"
	"time"

	"github.com/jrsteele09/go-iam-server/organizations"
)

type Repo interface {
	// Insert stores a new invitation and its role links. A duplicate pending
	// invitation for the same invitee returns errors.ErrConflict.
	Insert(ctx context.Context, inv *Invitation) error
	FindByID(ctx context.Context, id string) (*Invitation, error)
	ListByOrganization(ctx context.Context, organizationID string, offset, limit int) (Page, error)

	// Accept flips a pending invitation to Accepted and writes the membership in
	// one step. It returns errors.ErrInvalidState when the invitation is no
	// longer pending.
	Accept(ctx context.Context, id, userID string, roles []organizations.RoleID, at time.Time) error

	// UpdateStatus moves a pending invitation to a terminal status.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
}
