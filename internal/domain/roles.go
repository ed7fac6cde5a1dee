package domain

// Role is a named authorization grant. The canonical set lives in the role
// registry; the constants below are the names seeded at startup.
type Role struct {
	Name        string
	Description string
}

const (
	RoleSuperAdmin = "SuperAdmin"
	RoleAdmin      = "Admin"
	RoleUser       = "User"
	RoleReadOnly   = "ReadOnly"
)

// DefaultRoles is the seed for an empty registry.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleSuperAdmin, Description: "Super Administrator"},
		{Name: RoleAdmin, Description: "Administrator"},
		{Name: RoleUser, Description: "User"},
		{Name: RoleReadOnly, Description: "Read only"},
	}
}

// loginRoles is the fixed whitelist enforced by the back-office login path.
var loginRoles = map[string]struct{}{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
	RoleUser:       {},
	RoleReadOnly:   {},
}

// HasLoginRole reports whether at least one of roles is in the login whitelist.
func HasLoginRole(roles []string) bool {
	for _, r := range roles {
		if _, ok := loginRoles[r]; ok {
			return true
		}
	}
	return false
}

// HasRole is an exact, case-sensitive membership check.
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsBackOffice is true when roles hold anything besides the plain User role.
func IsBackOffice(roles []string) bool {
	for _, r := range roles {
		if r != RoleUser {
			return true
		}
	}
	return false
}
