package service

import (
	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/model"
)

// LocationPolicy evaluates the per-location constraints consumed by
// the pass lifecycle: school ownership, the active flag, and the
// summons-only / early-release-only restrictions.  It is stateless;
// PassService embeds one so the checks read as methods.
type LocationPolicy struct{}

// Check validates that a pass with the given flags may target the
// location from the given school.  A location that exists in another
// school is reported as fault.ErrValidation (the request referenced a
// location outside the caller's school), an inactive location or a
// flag mismatch likewise.  No pass is ever created when Check fails.
func (LocationPolicy) Check(loc *model.Location, schoolID uint64, isSummons, isEarlyRelease bool) error {
	if loc.SchoolID != schoolID {
		return fault.ErrValidation
	}
	if !loc.IsActive {
		return fault.ErrValidation
	}
	if loc.IsSummonsOnly && !isSummons {
		return fault.ErrValidation
	}
	if loc.IsEarlyReleaseOnly && !isEarlyRelease {
		return fault.ErrValidation
	}
	return nil
}

// EffectiveDuration resolves the duration for a new pass in minutes:
// an explicit value wins, then the location default, then the school
// default, then ten minutes as a last resort.
func (LocationPolicy) EffectiveDuration(loc *model.Location, school *model.School, explicit *int) int {
	if explicit != nil && *explicit > 0 {
		return *explicit
	}
	if loc.DefaultDuration > 0 {
		return loc.DefaultDuration
	}
	if school != nil && school.DefaultPassDuration > 0 {
		return school.DefaultPassDuration
	}
	return 10
}
