package model

import "time"

// Profile represents a row in the `profiles` table.  A profile binds
// an authenticated user to a role and a school; it is the directory
// record consulted on every request, so role or school changes take
// effect the next time the user calls the API.
//
// Fields:
//
//	UserID    – primary key; also the foreign key into users.id.
//	SchoolID  – school the profile belongs to.
//	Role      – one of student, teacher, administrator.
//	FirstName – given name, used when formatting pass details.
//	LastName  – family name.
//	CreatedAt – timestamp of creation.
//	UpdatedAt – timestamp of last update.
type Profile struct {
	UserID    uint64    // profiles.user_id
	SchoolID  uint64    // profiles.school_id
	Role      Role      // profiles.role
	FirstName string    // profiles.first_name
	LastName  string    // profiles.last_name
	CreatedAt time.Time // profiles.created_at
	UpdatedAt time.Time // profiles.updated_at
}

// FullName joins the first and last name for display.
func (p Profile) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
