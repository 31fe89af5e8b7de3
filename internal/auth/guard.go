// Package auth implements the role-hierarchical authorization guard.
// The guard is a pure decision: it never touches the store and never
// mutates the principal.  Profile loading (and therefore the
// ProfileNotFound case) is the caller's concern; by the time a
// Principal reaches Authorize it is already a verified, resolved
// identity.
package auth

import (
	"fmt"
	"strings"

	"github.com/iliyamo/hall-pass/internal/model"
)

// Principal is the resolved identity attached to every authenticated
// request.  It is rebuilt from the profiles table on each request, so
// role or school changes take effect on the caller's next call.
type Principal struct {
	ID        uint64     // profiles.user_id
	Email     string     // users.email
	Role      model.Role // profiles.role
	SchoolID  uint64     // profiles.school_id
	FirstName string     // profiles.first_name
	LastName  string     // profiles.last_name
}

// FullName joins first and last name for display on passes.
func (p Principal) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Denied describes a failed authorization decision.  It carries the
// caller's actual role, the roles the endpoint required, and a
// suggested endpoint matching the caller's own role.  The suggestion
// is a usability contract only; it never references data belonging
// to other schools or users.
type Denied struct {
	Role      model.Role   `json:"role"`
	Required  []model.Role `json:"required_roles"`
	Suggested string       `json:"suggested_endpoint"`
}

// Error implements the error interface so a *Denied can flow through
// ordinary error returns.
func (d *Denied) Error() string {
	req := make([]string, len(d.Required))
	for i, r := range d.Required {
		req[i] = string(r)
	}
	return fmt.Sprintf("forbidden: requires role %v, caller has role %q", req, d.Role)
}

// Authorize checks the principal's role against the required set and
// returns nil when access is granted.  Administrators satisfy any
// requirement; this hierarchical override is absolute and cannot be
// disabled per endpoint.  For everyone else the principal's role must
// be a member of required.
func Authorize(p Principal, required ...model.Role) *Denied {
	switch p.Role {
	case model.RoleAdministrator:
		return nil
	case model.RoleStudent, model.RoleTeacher:
		for _, r := range required {
			if p.Role == r {
				return nil
			}
		}
	}
	return &Denied{
		Role:      p.Role,
		Required:  required,
		Suggested: DashboardFor(p.Role),
	}
}

// DashboardFor returns the dashboard endpoint matching a role.  It is
// used to fill the suggestion on denials so clients can redirect the
// caller somewhere they are actually allowed to go.
func DashboardFor(r model.Role) string {
	switch r {
	case model.RoleStudent:
		return "/v1/dashboard/student"
	case model.RoleTeacher:
		return "/v1/dashboard/teacher"
	case model.RoleAdministrator:
		return "/v1/dashboard/admin"
	}
	return "/v1/auth/me"
}
