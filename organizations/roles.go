package organizations

import "fmt"

// RoleID identifies an organization role row.
type RoleID string

const (
	RoleAdmin        RoleID = "admin"
	RoleCollaborator RoleID = "collaborator"
)

// TenantRole is the role name exposed to API clients.
type TenantRole string

const (
	TenantRoleAdmin        TenantRole = "Admin"
	TenantRoleCollaborator TenantRole = "Collaborator"
)

var roleIDs = map[TenantRole]RoleID{
	TenantRoleAdmin:        RoleAdmin,
	TenantRoleCollaborator: RoleCollaborator,
}

var tenantRoles = map[RoleID]TenantRole{
	RoleAdmin:        TenantRoleAdmin,
	RoleCollaborator: TenantRoleCollaborator,
}

func ParseTenantRole(s string) (TenantRole, error) {
	role := TenantRole(s)
	if _, ok := roleIDs[role]; !ok {
		return "", fmt.Errorf("unknown tenant role %q", s)
	}
	return role, nil
}

func (r TenantRole) RoleID() (RoleID, bool) {
	id, ok := roleIDs[r]
	return id, ok
}

// TenantRoleFor picks the tenant role for a set of organization role ids. Admin
// wins over Collaborator; ids outside the table are ignored.
func TenantRoleFor(ids []RoleID) (TenantRole, bool) {
	var found TenantRole
	for _, id := range ids {
		role, ok := tenantRoles[id]
		if !ok {
			continue
		}
		if role == TenantRoleAdmin {
			return role, true
		}
		found = role
	}
	return found, found != ""
}
