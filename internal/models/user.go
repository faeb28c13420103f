package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin            UserRole = "ADMIN"
	RoleCourseDirector   UserRole = "CD"
	RoleWellbeingOfficer UserRole = "SWO"
)

// Credential is a stored login for staff accessing the analytics API.
type Credential struct {
	Username     string   `db:"username" json:"username"`
	PasswordHash string   `db:"password_hash" json:"-"`
	Role         UserRole `db:"role" json:"role"`
	Active       bool     `db:"active" json:"active"`
}

// Valid reports whether the role is one of the known staff roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCourseDirector, RoleWellbeingOfficer:
		return true
	default:
		return false
	}
}
