package organizations

import "time"

// URNPrefix marks a token audience that is bound to a single organization.
const URNPrefix = "urn:logto:organization:"

type Organization struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	IsMfaRequired bool      `json:"isMfaRequired"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Member struct {
	UserID string   `json:"id"`
	Roles  []RoleID `json:"organizationRoles"`
}

// MfaRequirement joins the organization's MFA policy with the user's enrolment.
type MfaRequirement struct {
	IsMfaRequired    bool
	HasMfaConfigured bool
}

// Blocks reports whether the policy denies access to the user.
func (m MfaRequirement) Blocks() bool {
	return m.IsMfaRequired && !m.HasMfaConfigured
}

// IDForTenant returns the organization that mirrors a tenant. The two share an id.
func IDForTenant(tenantID string) string {
	return tenantID
}

func TenantIDFor(organizationID string) string {
	return organizationID
}
