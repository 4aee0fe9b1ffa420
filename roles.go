package iopps

// UserRole is the user's global role
type UserRole = string

const (
	// RoleGuest is an unauthenticated or read-only role
	RoleGuest UserRole = "guest"
	// RoleMember is a community member
	RoleMember UserRole = "member"
	// RoleEmployer is an organization posting jobs and events
	RoleEmployer UserRole = "employer"
	// RoleAdmin is a platform administrator
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleGuest, RoleMember, RoleEmployer, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []UserRole {
	return []UserRole{RoleGuest, RoleMember, RoleEmployer, RoleAdmin}
}
