package server

import (
	"net/http"

	"github.com/jrsteele09/go-iam-server/tenants"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.APIMiddleware()...))

	// Tenant management
	s.RegisterRouteHandler("GET "+RouteTenants, ChainMiddleware(s.ListTenantsHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationRead))...))
	s.RegisterRouteHandler("POST "+RouteTenants, ChainMiddleware(s.CreateTenantHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationWrite))...))
	s.RegisterRouteHandler("GET "+RouteTenant, ChainMiddleware(s.GetTenantHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationRead), s.tenantMembership(), s.tenantSuspension())...))
	s.RegisterRouteHandler("PATCH "+RouteTenant, ChainMiddleware(s.UpdateTenantHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationWrite), s.tenantMembership(), s.tenantSuspension())...))
	s.RegisterRouteHandler("DELETE "+RouteTenant, ChainMiddleware(s.DeleteTenantHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationDelete), s.tenantMembership(), s.tenantSuspension())...))
	// Not behind the suspension step so a suspended tenant can be restored.
	s.RegisterRouteHandler("PUT "+RouteTenantSuspension, ChainMiddleware(s.SetTenantSuspensionHandler(),
		s.ProtectedMiddleware(s.requireScope(tenants.ScopeAll))...))

	// Tenant invitations
	s.RegisterRouteHandler("POST "+RouteTenantInvitations, ChainMiddleware(s.CreateInvitationHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationWrite), s.tenantMembership(), s.tenantSuspension())...))
	s.RegisterRouteHandler("GET "+RouteTenantInvitations, ChainMiddleware(s.ListInvitationsHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationRead), s.tenantMembership(), s.tenantSuspension())...))
	s.RegisterRouteHandler("DELETE "+RouteTenantInvitation, ChainMiddleware(s.RevokeInvitationHandler(),
		s.ProtectedMiddleware(s.tenantOperation(tenants.OperationWrite), s.tenantMembership(), s.tenantSuspension())...))

	// Invitee routes only need a signed in user
	s.RegisterRouteHandler("GET "+RouteInvitation, ChainMiddleware(s.GetInvitationHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteInvitationAccept, ChainMiddleware(s.AcceptInvitationHandler(),
		append(s.APIMiddleware(), s.RateLimitMiddleware, s.Authenticate, s.Authorize())...))

	// Organization scoped
	s.RegisterRouteHandler("GET "+RouteOrganizationMembers, ChainMiddleware(s.ListOrganizationMembersHandler(),
		s.ProtectedMiddleware(s.organizationMembership(), s.organizationSuspension())...))
	s.RegisterRouteHandler("DELETE "+RouteOrganizationMember, ChainMiddleware(s.RemoveOrganizationMemberHandler(),
		s.ProtectedMiddleware(s.organizationMembership(), s.organizationSuspension())...))
	s.RegisterRouteHandler("PUT "+RouteOrganizationMemberRoles, ChainMiddleware(s.UpdateOrganizationMemberRolesHandler(),
		s.ProtectedMiddleware(s.organizationMembership(), s.organizationSuspension())...))

	s.RegisterRouteHandler("GET "+RouteInteractionConsent, ChainMiddleware(s.ConsentHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMySessions, ChainMiddleware(s.ListSessionsHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteMySessions, ChainMiddleware(s.RevokeSessionsHandler(), s.ProtectedMiddleware()...))
}

// HealthzHandler reports liveness only.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
