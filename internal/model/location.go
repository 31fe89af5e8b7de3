package model

import "time"

// Location represents a row in the `locations` table.  A location is
// a destination a pass can be written for (nurse, library, front
// office, ...).  The flag columns drive the location policy applied
// when passes are requested: some locations auto-approve, some can
// only be reached via a staff summons, and some only as part of an
// early release.
//
// Fields:
//
//	ID                 – primary key identifier.
//	SchoolID           – owning school.
//	Name               – display name of the location.
//	RoomNumber         – optional room label shown on passes.
//	DefaultDuration    – default pass duration in minutes.
//	RequiresApproval   – when false, student requests are approved
//	                     immediately without staff involvement.
//	IsActive           – inactive locations reject new passes.
//	IsEarlyReleaseOnly – only early-release passes may target this
//	                     location.
//	IsSummonsOnly      – only summons passes may target this location.
//	CreatedAt          – timestamp of creation.
//	UpdatedAt          – timestamp of last update.
type Location struct {
	ID                 uint64    // locations.id
	SchoolID           uint64    // locations.school_id
	Name               string    // locations.name
	RoomNumber         *string   // locations.room_number (nullable)
	DefaultDuration    int       // locations.default_duration
	RequiresApproval   bool      // locations.requires_approval
	IsActive           bool      // locations.is_active
	IsEarlyReleaseOnly bool      // locations.is_early_release_only
	IsSummonsOnly      bool      // locations.is_summons_only
	CreatedAt          time.Time // locations.created_at
	UpdatedAt          time.Time // locations.updated_at
}
