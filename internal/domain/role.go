package domain

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	return r == RoleStudent || r == RoleAdmin
}
