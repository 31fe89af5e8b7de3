package model

// Role enumerates the closed set of roles a profile may hold.  Using a
// named string type instead of bare strings lets the authorization
// layer switch exhaustively over the three known values and treat
// anything else as invalid.
type Role string

// The three application roles.  Administrators sit above teachers,
// teachers above students; the hierarchy itself is encoded in the
// auth package, not here.
const (
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdministrator:
		return true
	}
	return false
}

// ParseRole normalizes a raw string into a Role.  The boolean result
// is false when the input does not name a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
