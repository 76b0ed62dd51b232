package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/jrsteele09/go-iam-server/organizations"
	"github.com/jrsteele09/go-iam-server/tenants"
	"github.com/rs/zerolog/log"
)

// RequestContext is built once per request, before any authorization step
// runs, and is read-only afterwards.
type RequestContext struct {
	Principal          *auth.Principal
	TenantID           string
	OrganizationID     string
	OrganizationSource organizations.Source
}

type requestContextKey struct{}

func requestContextFrom(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	if rc == nil {
		return &RequestContext{}
	}
	return rc
}

// Step is one link of the authorization pipeline.
type Step struct {
	Component string
	Check     func(ctx context.Context, rc *RequestContext) auth.Decision
}

// Authenticate verifies the bearer token and attaches the Principal.
func (s *Server) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.deny(w, r, "authentication", auth.Deny("missing_token", unauthorized("bearer token required")))
			return
		}
		principal, err := s.verifier.Verify(r.Context(), raw)
		if err != nil {
			log.Debug().Err(err).Msg("bearer token rejected")
			s.deny(w, r, "authentication", auth.Deny("invalid_token", unauthorized("invalid bearer token")))
			return
		}
		next(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	}
}

// Authorize builds the RequestContext and runs each step in order. The first
// denial ends the request.
func (s *Server) Authorize(steps ...Step) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rc := s.buildRequestContext(r)
			ctx := context.WithValue(r.Context(), requestContextKey{}, rc)

			for _, step := range steps {
				d := step.Check(ctx, rc)
				if d.IsDenied() {
					s.deny(w, r, step.Component, d)
					return
				}
				s.metrics.Decision(step.Component, d.Outcome.String(), reasonLabel(d.Reason))
			}
			next(w, r.WithContext(ctx))
		}
	}
}

func (s *Server) buildRequestContext(r *http.Request) *RequestContext {
	principal, _ := auth.PrincipalFromContext(r.Context())
	rc := &RequestContext{
		Principal: principal,
		TenantID:  r.PathValue(pathTenantID),
	}
	if res, ok := organizations.ResolveOrganizationID(organizations.InputFromRequest(r, s.config.GetMaxBodyBytes())); ok {
		rc.OrganizationID = res.OrganizationID
		rc.OrganizationSource = res.Source
	}
	return rc
}

func (s *Server) deny(w http.ResponseWriter, r *http.Request, component string, d auth.Decision) {
	s.metrics.Decision(component, d.Outcome.String(), reasonLabel(d.Reason))
	log.Info().
		Str("component", component).
		Str("reason", d.Reason).
		Str("path", r.URL.Path).
		Msg("request denied")
	writeError(w, d.Err)
}

func reasonLabel(reason string) string {
	if reason == "" {
		return "none"
	}
	return reason
}

func unauthorized(msg string) error {
	return errors.NewCoded(errors.ErrUnauthenticated, errors.CodeUnauthorized, msg, 0)
}

func (s *Server) tenantOperation(op tenants.Operation) Step {
	return Step{
		Component: "tenant_authorizer",
		Check: func(_ context.Context, rc *RequestContext) auth.Decision {
			return s.tenantAuthz.Authorize(rc.Principal, op, rc.TenantID)
		},
	}
}

// tenantMembership limits callers without the wildcard scope to tenants they
// belong to.
func (s *Server) tenantMembership() Step {
	return Step{
		Component: "tenant_membership",
		Check: func(ctx context.Context, rc *RequestContext) auth.Decision {
			if rc.Principal != nil && rc.Principal.Scopes.Has(tenants.ScopeAll) {
				return auth.Skip()
			}
			return s.membership.Authorize(ctx, rc.Principal, organizations.IDForTenant(rc.TenantID))
		},
	}
}

func (s *Server) tenantSuspension() Step {
	return Step{
		Component: "suspension",
		Check: func(ctx context.Context, rc *RequestContext) auth.Decision {
			return s.suspension.Check(ctx, rc.TenantID)
		},
	}
}

// organizationSuspension applies the owning tenant's suspension to
// organization scoped routes.
func (s *Server) organizationSuspension() Step {
	return Step{
		Component: "suspension",
		Check: func(ctx context.Context, rc *RequestContext) auth.Decision {
			if rc.OrganizationID == "" {
				return auth.Skip()
			}
			return s.suspension.Check(ctx, organizations.TenantIDFor(rc.OrganizationID))
		},
	}
}

func (s *Server) organizationMembership() Step {
	return Step{
		Component: "organization_membership",
		Check: func(ctx context.Context, rc *RequestContext) auth.Decision {
			if rc.OrganizationID == "" {
				return auth.Skip()
			}
			return s.membership.Authorize(ctx, rc.Principal, rc.OrganizationID)
		},
	}
}

func (s *Server) requireScope(scope string) Step {
	return Step{
		Component: "scope",
		Check: func(_ context.Context, rc *RequestContext) auth.Decision {
			if rc.Principal == nil || !rc.Principal.Scopes.Has(scope) {
				return auth.Deny("missing_scope",
					errors.NewCoded(errors.ErrForbidden, errors.CodeForbidden, "missing scope "+scope, 0))
			}
			return auth.Allow()
		},
	}
}
