// Package fault defines the sentinel errors shared by the service and
// repository layers.  Handlers translate these values into HTTP
// status codes in exactly one place; everything below the transport
// returns them directly so that callers can distinguish "who are
// you" (authentication) from "you have no role" (missing profile)
// from "you lack permission" (forbidden) from "it does not exist"
// (not found).
package fault

import "errors"

// ErrAuthenticationFailed is returned when a credential is missing,
// malformed or expired.  Handlers translate it into HTTP 401.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ErrProfileNotFound is returned when a verified identity has no
// profile row, i.e. no role or school binding.  It is deliberately
// distinct from both ErrAuthenticationFailed and ErrForbidden.
var ErrProfileNotFound = errors.New("profile not found")

// ErrForbidden is returned when an authenticated caller attempts an
// operation outside their role or school scope.  Handlers translate
// it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a requested resource genuinely does
// not exist.  Out-of-scope resources that do exist yield
// ErrForbidden instead, except where that would leak cross-school
// existence information.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because
// of existing state, such as a student requesting a second pass
// while one is already open.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidTransition is returned when a pass is asked to move
// along an edge the lifecycle state machine does not have, including
// any transition out of a terminal state and repeats of an already
// applied transition.  Double-submits fail loudly with this error
// rather than silently no-opping.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrValidation is returned for malformed or inconsistent input,
// e.g. a location that belongs to another school or a summons-only
// location requested without the summons flag.
var ErrValidation = errors.New("validation failed")

// ErrStoreUnavailable wraps failures of the underlying data store.
// The core carries no retry policy; callers own backoff.
var ErrStoreUnavailable = errors.New("store unavailable")
