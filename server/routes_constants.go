package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Tenant management
	RouteTenants           = "/tenants"
	RouteTenant            = "/tenants/{tenantId}"
	RouteTenantSuspension  = "/tenants/{tenantId}/suspension"
	RouteTenantInvitations = "/tenants/{tenantId}/invitations"
	RouteTenantInvitation  = "/tenants/{tenantId}/invitations/{invitationId}"

	// Invitee facing invitation routes
	RouteInvitation       = "/invitation/{invitationId}"
	RouteInvitationAccept = "/invitation/accept"

	// Organization scoped routes
	RouteOrganizationMembers     = "/organizations/{organizationId}/members"
	RouteOrganizationMember      = "/organizations/{organizationId}/members/{userId}"
	RouteOrganizationMemberRoles = "/organizations/{organizationId}/members/{userId}/roles"

	// OIDC interaction
	RouteInteractionConsent = "/interaction/{uid}/consent"

	// Account
	RouteMySessions = "/my-account/sessions"

	RouteHealthz = "/healthz"
)

// Path wildcard names.
const (
	pathTenantID       = "tenantId"
	pathInvitationID   = "invitationId"
	pathOrganizationID = "organizationId"
	pathUserID         = "userId"
	pathInteractionUID = "uid"
)
