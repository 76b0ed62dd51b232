package tenants

import (
	"context"

	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/config"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	ReasonTenantSuspended = "tenant_suspended"
	ReasonTenantNotFound  = "tenant_not_found"
	ReasonLookupFailed    = "lookup_failed"
)

// SuspensionGuard blocks requests aimed at suspended tenants. Suspension only
// exists in cloud deployments; elsewhere the guard always skips.
type SuspensionGuard struct {
	repo SuspendStatusFinder
	mode config.DeploymentMode
}

func NewSuspensionGuard(repo SuspendStatusFinder, mode config.DeploymentMode) *SuspensionGuard {
	return &SuspensionGuard{repo: repo, mode: mode}
}

func (g *SuspensionGuard) Check(ctx context.Context, tenantID string) auth.Decision {
	if !g.mode.IsCloud() || tenantID == "" {
		return auth.Skip()
	}

	status, err := g.repo.FindSuspendStatusByID(ctx, tenantID)
	if errors.Is(err, errors.ErrNotFound) {
		return auth.Deny(ReasonTenantNotFound,
			errors.NewCoded(errors.ErrNotFound, errors.CodeNotFound, "tenant not found", 0))
	}
	if err != nil {
		log.Err(err).Str("tenant_id", tenantID).Msg("tenant suspension lookup failed")
		return auth.Deny(ReasonLookupFailed, errors.NewCoded(errors.ErrInternal, errors.CodeInternal, "", 0))
	}
	if status.IsSuspended {
		return auth.Deny(ReasonTenantSuspended,
			errors.NewCoded(errors.ErrTenantSuspended, errors.CodeTenantSuspended, "tenant is suspended", 0))
	}
	return auth.Allow()
}
