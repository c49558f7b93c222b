package rbac

import "paricus-portal/internal/auth"

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleSuperAdmin  = "super_admin"
	RoleBPOAdmin    = "bpo_admin"
	RoleClientAdmin = "client_admin"
	RoleClientUser  = "client_user"
)

// Permission names carried in tokens and granted by role.
const (
	PermViewRecordings = "view_recordings"
	PermManageCache    = "manage_cache"
)

var rolePermissions = map[string][]string{
	RoleBPOAdmin:    {PermViewRecordings, PermManageCache},
	RoleClientAdmin: {PermViewRecordings},
	RoleClientUser:  {PermViewRecordings},
}

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsBPO reports whether role belongs to the operator's own staff, who see every tenant.
func IsBPO(role string) bool { return role == RoleSuperAdmin || role == RoleBPOAdmin }

// Allowed reports whether id holds perm, by role default or explicit grant.
func Allowed(id auth.Identity, perm string) bool {
	if IsSuperAdmin(id.Role) {
		return true
	}
	for _, p := range rolePermissions[id.Role] {
		if p == perm {
			return true
		}
	}
	return id.Has(perm)
}

// ScopeCompany returns the tenant a query by id may target. BPO staff keep the requested
// company (empty means all); everyone else is pinned to their own.
func ScopeCompany(id auth.Identity, requested string) string {
	if IsBPO(id.Role) {
		return requested
	}
	return id.Company
}
