package model

import "time"

// School represents a row in the `schools` table.  Schools are the
// tenancy boundary of the system: every profile, location and pass
// belongs to exactly one school and cross-school references are
// invalid.
//
// Fields:
//
//	ID                  – primary key identifier.
//	Name                – display name of the school.
//	DefaultPassDuration – fallback pass duration in minutes when a
//	                      location does not define its own.
//	GracePeriodMinutes  – how long past its end time an approved or
//	                      active pass may linger before the expiry
//	                      sweeper marks it expired.
//	Timezone            – IANA timezone name used when bucketing
//	                      analytics by local hour of day.
//	CreatedAt           – timestamp of creation.
//	UpdatedAt           – timestamp of last update.
type School struct {
	ID                  uint64    // schools.id
	Name                string    // schools.name
	DefaultPassDuration int       // schools.default_pass_duration
	GracePeriodMinutes  int       // schools.grace_period_minutes
	Timezone            string    // schools.timezone
	CreatedAt           time.Time // schools.created_at
	UpdatedAt           time.Time // schools.updated_at
}
