package organizations

import (
	"context"
	"time"

	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	ReasonNotMember        = "not_member"
	ReasonMfaRequired      = "mfa_required"
	ReasonStoreUnavailable = "store_unavailable"
)

// Guard re-checks live membership for organization scoped requests so that a
// token issued before a user was removed stops working immediately.
type Guard struct {
	repo    MembershipReader
	timeout time.Duration
}

type GuardOption func(*Guard)

// WithStoreTimeout bounds each membership lookup. Zero disables the bound.
func WithStoreTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		g.timeout = d
	}
}

func NewGuard(repo MembershipReader, opts ...GuardOption) *Guard {
	g := &Guard{repo: repo, timeout: 2 * time.Second}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Authorize(ctx context.Context, principal *auth.Principal, organizationID string) auth.Decision {
	if principal == nil || organizationID == "" {
		return auth.Skip()
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	member, err := g.repo.IsMember(ctx, organizationID, principal.ID)
	if err != nil {
		return g.storeFailure(err, organizationID, principal.ID)
	}
	if !member {
		return auth.Deny(ReasonNotMember, forbidden("user is not a member of the organization"))
	}

	mfa, err := g.repo.MfaRequirement(ctx, organizationID, principal.ID)
	if err != nil {
		return g.storeFailure(err, organizationID, principal.ID)
	}
	if mfa.Blocks() {
		return auth.Deny(ReasonMfaRequired, forbidden("organization requires multi-factor authentication"))
	}
	return auth.Allow()
}

func (g *Guard) storeFailure(err error, organizationID, userID string) auth.Decision {
	log.Err(err).Str("organization_id", organizationID).Str("user_id", userID).Msg("membership lookup failed, denying")
	return auth.Deny(ReasonStoreUnavailable, forbidden("unable to verify organization membership"))
}

func forbidden(msg string) error {
	return errors.NewCoded(errors.ErrForbidden, errors.CodeForbidden, msg, 0)
}
