package session

import "strings"

// Role is the closed set of account roles the frontend knows how to land.
// Adding a role is a compile-time decision here, not a silent runtime
// fallback in a string-keyed map.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleParent     Role = "parent"
	RoleAccountant Role = "accountant"
)

// DefaultRoute is where unknown or missing roles land.
const DefaultRoute = "/dashboard"

// ParseRole maps a payload role string onto the closed role set. Unknown
// strings map to the empty Role.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleTeacher:
		return RoleTeacher
	case RoleStudent:
		return RoleStudent
	case RoleParent:
		return RoleParent
	case RoleAccountant:
		return RoleAccountant
	default:
		return ""
	}
}

// LandingRoute returns the post-login route for a role.
func LandingRoute(r Role) string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleTeacher:
		return "/teacher/dashboard"
	case RoleStudent:
		return "/student/dashboard"
	case RoleParent:
		return "/parent/dashboard"
	case RoleAccountant:
		return "/accountant/dashboard"
	default:
		return DefaultRoute
	}
}
