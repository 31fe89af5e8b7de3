package model

import "time"

// PassStatus enumerates the lifecycle states of a hall pass.  The
// legal transitions form a DAG:
//
//	pending  -> approved | denied
//	approved -> active   | expired
//	active   -> completed | expired
//
// completed, denied and expired are terminal; no operation may move a
// pass out of them.
type PassStatus string

const (
	StatusPending   PassStatus = "pending"
	StatusApproved  PassStatus = "approved"
	StatusActive    PassStatus = "active"
	StatusCompleted PassStatus = "completed"
	StatusDenied    PassStatus = "denied"
	StatusExpired   PassStatus = "expired"
)

// Terminal reports whether s is a final state with no outgoing
// transitions.
func (s PassStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDenied, StatusExpired:
		return true
	}
	return false
}

// Open reports whether s counts against the one-active-pass rule.  A
// student may hold at most one pass in an open state at any time.
func (s PassStatus) Open() bool {
	switch s {
	case StatusPending, StatusApproved, StatusActive:
		return true
	}
	return false
}

// Pass represents a row in the `passes` table.  A pass records a
// single trip by one student to one location, from the moment it is
// requested or issued until it reaches a terminal state.  Passes are
// never deleted; terminal rows are retained for analytics and audit.
//
// Fields:
//
//	ID                 – primary key identifier.
//	SchoolID           – school owning the pass; always matches the
//	                     school of both StudentID and LocationID.
//	StudentID          – student the pass belongs to.
//	LocationID         – destination location.
//	Status             – current lifecycle state.
//	CreatedAt          – timestamp of creation.
//	RequestedStartTime – when the student asked to leave (nullable).
//	RequestedEndTime   – expected return time (nullable).
//	ActualStartTime    – set when the pass is activated (nullable).
//	ActualEndTime      – set when the pass is completed (nullable).
//	DurationMinutes    – requested duration; recomputed from the
//	                     actual times on completion when both exist.
//	ApproverID         – staff member who approved or issued the pass.
//	                     Set together with ApprovedAt or not at all.
//	ApprovedAt         – when approval happened (nullable).
//	ApprovalNotes      – free-form notes left by the approver.
//	StudentReason      – reason supplied by the requesting student.
//	AdminNotes         – staff-only notes attached on issue/approval.
//	IsSummons          – pass was created as a staff summons.
//	IsEarlyRelease     – pass covers an early release from school.
//	VerificationCode   – short code generated exactly once when the
//	                     pass enters the active state; never reused.
type Pass struct {
	ID                 uint64     // passes.id
	SchoolID           uint64     // passes.school_id
	StudentID          uint64     // passes.student_id
	LocationID         uint64     // passes.location_id
	Status             PassStatus // passes.status
	CreatedAt          time.Time  // passes.created_at
	RequestedStartTime *time.Time // passes.requested_start_time (nullable)
	RequestedEndTime   *time.Time // passes.requested_end_time (nullable)
	ActualStartTime    *time.Time // passes.actual_start_time (nullable)
	ActualEndTime      *time.Time // passes.actual_end_time (nullable)
	DurationMinutes    *int       // passes.duration_minutes (nullable)
	ApproverID         *uint64    // passes.approver_id (nullable)
	ApprovedAt         *time.Time // passes.approved_at (nullable)
	ApprovalNotes      *string    // passes.approval_notes (nullable)
	StudentReason      *string    // passes.student_reason (nullable)
	AdminNotes         *string    // passes.admin_notes (nullable)
	IsSummons          bool       // passes.is_summons
	IsEarlyRelease     bool       // passes.is_early_release
	VerificationCode   *string    // passes.verification_code (nullable)
}
