// Package service contains the domain logic of the hall-pass system:
// the pass lifecycle state machine, the location policy and the
// analytics aggregator.  Services speak to storage through narrow
// interfaces so tests can substitute in-memory doubles; the HTTP
// layer above only translates errors, never decides.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/hall-pass/internal/auth"
	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/model"
	"github.com/iliyamo/hall-pass/internal/queue"
	"github.com/iliyamo/hall-pass/internal/repository"
	"github.com/iliyamo/hall-pass/internal/utils"
)

// PassStore is the persistence surface the lifecycle manager needs.
// *repository.PassRepo implements it; tests provide fakes.  The
// transition methods are conditional writes: they fail with
// fault.ErrInvalidTransition when the pass is not in the expected
// source state, which makes every operation race-safe and loudly
// non-idempotent.
type PassStore interface {
	CreateExclusive(ctx context.Context, p *model.Pass) error
	GetByID(ctx context.Context, id uint64) (*model.Pass, error)
	GetDetail(ctx context.Context, id uint64) (*repository.PassDetail, error)
	Approve(ctx context.Context, id, approverID uint64, at time.Time, notes *string) error
	Deny(ctx context.Context, id, approverID uint64, at time.Time, notes *string) error
	Activate(ctx context.Context, id uint64, at time.Time, code string) error
	Complete(ctx context.Context, id uint64, at time.Time) error
	Expire(ctx context.Context, id uint64) error
	ListOverdueIDs(ctx context.Context, now time.Time) ([]uint64, error)
	ListByStudent(ctx context.Context, studentID uint64, status *model.PassStatus) ([]repository.PassDetail, error)
	ListBySchool(ctx context.Context, schoolID uint64, status *model.PassStatus, studentName string) ([]repository.PassDetail, error)
	ListPendingBySchool(ctx context.Context, schoolID uint64) ([]repository.PassDetail, error)
	ActiveForStudent(ctx context.Context, studentID uint64) (*repository.PassDetail, error)
}

// LocationStore resolves locations for the policy checks.
type LocationStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Location, error)
}

// DirectoryStore resolves the student a staff member is issuing a
// pass to.
type DirectoryStore interface {
	GetStudent(ctx context.Context, userID uint64) (*model.Profile, error)
}

// SchoolStore resolves school settings (default duration, grace
// period, timezone).
type SchoolStore interface {
	GetByID(ctx context.Context, id uint64) (*model.School, error)
}

// EventPublisher delivers a domain event to the broker.  Publishing
// is best effort; lifecycle operations succeed even when it fails.
type EventPublisher func(ctx context.Context, event queue.PassCompletedEvent) error

// PassService owns creation and state transitions of passes.  All
// entities are fetched per operation; the service holds no mutable
// state beyond its injected dependencies.
type PassService struct {
	LocationPolicy

	passes    PassStore
	locations LocationStore
	profiles  DirectoryStore
	schools   SchoolStore
	publish   EventPublisher

	// Now is the clock used for every timestamp the service writes.
	// Tests override it; production leaves the default.
	Now func() time.Time
}

// NewPassService constructs a PassService.  The stores must be
// non-nil; publish may be nil when no broker is configured.
func NewPassService(passes PassStore, locations LocationStore, profiles DirectoryStore, schools SchoolStore, publish EventPublisher) *PassService {
	if passes == nil || locations == nil || profiles == nil || schools == nil {
		panic("nil store passed to NewPassService")
	}
	return &PassService{
		passes:    passes,
		locations: locations,
		profiles:  profiles,
		schools:   schools,
		publish:   publish,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// RequestPassInput carries a student's own pass request.
type RequestPassInput struct {
	LocationID         uint64
	StudentReason      *string
	RequestedStartTime *time.Time
	RequestedEndTime   *time.Time
	IsSummons          bool
	IsEarlyRelease     bool
}

const autoApprovalNote = "Auto-approved based on location settings"

// RequestPass creates a pass on behalf of the requesting student.
// The location must belong to the student's school, be active and
// accept the request's flags; the student must hold no other open
// pass.  When the location does not require approval the pass is born
// approved with an auto-approval note, otherwise pending.
func (s *PassService) RequestPass(ctx context.Context, p auth.Principal, in RequestPassInput) (*repository.PassDetail, error) {
	loc, err := s.locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.Check(loc, p.SchoolID, in.IsSummons, in.IsEarlyRelease); err != nil {
		return nil, err
	}
	school, err := s.schools.GetByID(ctx, p.SchoolID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	start := now
	if in.RequestedStartTime != nil {
		start = in.RequestedStartTime.UTC()
	}
	duration := s.EffectiveDuration(loc, school, nil)
	end := start.Add(time.Duration(duration) * time.Minute)
	if in.RequestedEndTime != nil {
		end = in.RequestedEndTime.UTC()
	}

	pass := &model.Pass{
		SchoolID:           p.SchoolID,
		StudentID:          p.ID,
		LocationID:         loc.ID,
		Status:             model.StatusPending,
		RequestedStartTime: &start,
		RequestedEndTime:   &end,
		DurationMinutes:    &duration,
		StudentReason:      in.StudentReason,
		IsSummons:          in.IsSummons,
		IsEarlyRelease:     in.IsEarlyRelease,
	}
	if !loc.RequiresApproval {
		note := autoApprovalNote
		pass.Status = model.StatusApproved
		pass.ApprovedAt = &now
		pass.ApprovalNotes = &note
	}
	if err := s.passes.CreateExclusive(ctx, pass); err != nil {
		return nil, err
	}
	return s.passes.GetDetail(ctx, pass.ID)
}

// IssuePassInput carries a staff-issued pass.
type IssuePassInput struct {
	StudentID       uint64
	LocationID      uint64
	DurationMinutes *int
	AdminNotes      *string
	IsSummons       bool
	IsEarlyRelease  bool
}

// IssuePass creates a pass for a student on a staff member's
// authority.  The student and the location must belong to the issuing
// staff member's school and the one-active-pass rule still applies,
// but approval is bypassed: the pass is born approved with the staff
// member recorded as approver.
func (s *PassService) IssuePass(ctx context.Context, p auth.Principal, in IssuePassInput) (*repository.PassDetail, error) {
	student, err := s.profiles.GetStudent(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if student.SchoolID != p.SchoolID {
		// Do not reveal that the id exists in another school.
		return nil, fault.ErrNotFound
	}
	loc, err := s.locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.Check(loc, p.SchoolID, in.IsSummons, in.IsEarlyRelease); err != nil {
		return nil, err
	}
	school, err := s.schools.GetByID(ctx, p.SchoolID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	duration := s.EffectiveDuration(loc, school, in.DurationMinutes)
	end := now.Add(time.Duration(duration) * time.Minute)
	note := fmt.Sprintf("Issued by %s %s", p.Role, p.FullName())
	approver := p.ID

	pass := &model.Pass{
		SchoolID:           p.SchoolID,
		StudentID:          student.UserID,
		LocationID:         loc.ID,
		Status:             model.StatusApproved,
		RequestedStartTime: &now,
		RequestedEndTime:   &end,
		DurationMinutes:    &duration,
		ApproverID:         &approver,
		ApprovedAt:         &now,
		ApprovalNotes:      &note,
		AdminNotes:         in.AdminNotes,
		IsSummons:          in.IsSummons,
		IsEarlyRelease:     in.IsEarlyRelease,
	}
	if err := s.passes.CreateExclusive(ctx, pass); err != nil {
		return nil, err
	}
	return s.passes.GetDetail(ctx, pass.ID)
}

// staffScope verifies a staff member may act on the pass: same school
// or nothing.  The pass exists, so an out-of-scope attempt is
// forbidden rather than not found.
func staffScope(p auth.Principal, pass *model.Pass) error {
	if pass.SchoolID != p.SchoolID {
		return fault.ErrForbidden
	}
	return nil
}

// ApprovePass moves a pending pass to approved, recording the staff
// member and timestamp together.  A pass in any other state,
// including approved itself, fails with fault.ErrInvalidTransition so
// clients can detect double submits.
func (s *PassService) ApprovePass(ctx context.Context, p auth.Principal, passID uint64, notes *string) (*repository.PassDetail, error) {
	pass, err := s.passes.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if err := staffScope(p, pass); err != nil {
		return nil, err
	}
	if pass.Status != model.StatusPending {
		return nil, fault.ErrInvalidTransition
	}
	if notes == nil {
		n := fmt.Sprintf("Processed by %s", p.FullName())
		notes = &n
	}
	if err := s.passes.Approve(ctx, passID, p.ID, s.Now(), notes); err != nil {
		return nil, err
	}
	return s.passes.GetDetail(ctx, passID)
}

// DenyPass moves a pending pass to the terminal denied state.
func (s *PassService) DenyPass(ctx context.Context, p auth.Principal, passID uint64, notes *string) (*repository.PassDetail, error) {
	pass, err := s.passes.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if err := staffScope(p, pass); err != nil {
		return nil, err
	}
	if pass.Status != model.StatusPending {
		return nil, fault.ErrInvalidTransition
	}
	if notes == nil {
		n := fmt.Sprintf("Denied by %s", p.FullName())
		notes = &n
	}
	if err := s.passes.Deny(ctx, passID, p.ID, s.Now(), notes); err != nil {
		return nil, err
	}
	return s.passes.GetDetail(ctx, passID)
}

// ActivatePass moves a student's own approved pass to active,
// stamping the actual start time and generating the verification code
// the student presents in the hallway.  The code is generated exactly
// once per pass.
func (s *PassService) ActivatePass(ctx context.Context, p auth.Principal, passID uint64) (*repository.PassDetail, error) {
	pass, err := s.passes.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if pass.StudentID != p.ID {
		return nil, fault.ErrForbidden
	}
	if pass.Status != model.StatusApproved {
		return nil, fault.ErrInvalidTransition
	}
	code, err := utils.NewVerificationCode()
	if err != nil {
		return nil, err
	}
	if err := s.passes.Activate(ctx, passID, s.Now(), code); err != nil {
		return nil, err
	}
	return s.passes.GetDetail(ctx, passID)
}

// CompletePass moves an active pass to completed: the student closing
// out their own pass, or staff from the pass's school closing it on
// return.  The stored duration is recomputed from the observed
// start/end pair when both exist.  Completion publishes a
// pass.completed event; publishing is best effort and never fails the
// operation.
func (s *PassService) CompletePass(ctx context.Context, p auth.Principal, passID uint64) (*repository.PassDetail, error) {
	pass, err := s.passes.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	switch p.Role {
	case model.RoleStudent:
		if pass.StudentID != p.ID {
			return nil, fault.ErrForbidden
		}
	default:
		if err := staffScope(p, pass); err != nil {
			return nil, err
		}
	}
	if pass.Status != model.StatusActive {
		return nil, fault.ErrInvalidTransition
	}
	now := s.Now()
	if err := s.passes.Complete(ctx, passID, now); err != nil {
		return nil, err
	}
	detail, err := s.passes.GetDetail(ctx, passID)
	if err != nil {
		return nil, err
	}
	if s.publish != nil {
		duration := 0
		if detail.DurationMinutes != nil {
			duration = *detail.DurationMinutes
		}
		ev := queue.PassCompletedEvent{
			PassID:          detail.ID,
			SchoolID:        detail.SchoolID,
			StudentID:       detail.StudentID,
			StudentName:     detail.StudentName,
			LocationID:      detail.LocationID,
			LocationName:    detail.LocationName,
			DurationMinutes: duration,
			IsSummons:       detail.IsSummons,
			IsEarlyRelease:  detail.IsEarlyRelease,
			CompletedAt:     now.Format(time.RFC3339),
		}
		if err := s.publish(ctx, ev); err != nil {
			log.Printf("pass %d: publish completed event failed: %v", detail.ID, err)
		}
	}
	return detail, nil
}

// ExpirePass moves an approved or active pass to expired once it has
// overstayed its end time by more than the school's grace period.  It
// is system-driven; no principal is involved.
func (s *PassService) ExpirePass(ctx context.Context, passID uint64) error {
	pass, err := s.passes.GetByID(ctx, passID)
	if err != nil {
		return err
	}
	if pass.Status != model.StatusApproved && pass.Status != model.StatusActive {
		return fault.ErrInvalidTransition
	}
	if pass.RequestedEndTime == nil {
		return fault.ErrInvalidTransition
	}
	school, err := s.schools.GetByID(ctx, pass.SchoolID)
	if err != nil {
		return err
	}
	deadline := pass.RequestedEndTime.Add(time.Duration(school.GracePeriodMinutes) * time.Minute)
	if s.Now().Before(deadline) {
		return fault.ErrInvalidTransition
	}
	return s.passes.Expire(ctx, passID)
}

// ExpireOverdue expires every pass whose grace period has run out and
// returns how many were expired.  Races with students completing
// their passes are benign: the conditional update loses and the
// invalid-transition error is skipped.
func (s *PassService) ExpireOverdue(ctx context.Context) (int, error) {
	ids, err := s.passes.ListOverdueIDs(ctx, s.Now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if err := s.passes.Expire(ctx, id); err != nil {
			if errors.Is(err, fault.ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// GetPass returns one pass with display names.  Students see only
// their own passes; staff see any pass from their school.
func (s *PassService) GetPass(ctx context.Context, p auth.Principal, passID uint64) (*repository.PassDetail, error) {
	detail, err := s.passes.GetDetail(ctx, passID)
	if err != nil {
		return nil, err
	}
	switch p.Role {
	case model.RoleStudent:
		if detail.StudentID != p.ID {
			return nil, fault.ErrForbidden
		}
	default:
		if detail.SchoolID != p.SchoolID {
			return nil, fault.ErrForbidden
		}
	}
	return detail, nil
}

// ListMyPasses returns the student's own pass history, newest first,
// optionally filtered by status.
func (s *PassService) ListMyPasses(ctx context.Context, p auth.Principal, status *model.PassStatus) ([]repository.PassDetail, error) {
	return s.passes.ListByStudent(ctx, p.ID, status)
}

// ListPending returns the school's pending requests in arrival order.
func (s *PassService) ListPending(ctx context.Context, p auth.Principal) ([]repository.PassDetail, error) {
	return s.passes.ListPendingBySchool(ctx, p.SchoolID)
}

// ListSchoolPasses returns the school's pass history with optional
// status and student-name filters.
func (s *PassService) ListSchoolPasses(ctx context.Context, p auth.Principal, status *model.PassStatus, studentName string) ([]repository.PassDetail, error) {
	return s.passes.ListBySchool(ctx, p.SchoolID, status, studentName)
}

// StudentDashboard is the payload behind the student's landing view:
// the most recent passes, the currently active pass if any, and the
// total returned.
type StudentDashboard struct {
	RecentPasses []repository.PassDetail
	ActivePass   *repository.PassDetail
	TotalPasses  int
}

const recentPassLimit = 10

// Dashboard assembles the student dashboard.
func (s *PassService) Dashboard(ctx context.Context, p auth.Principal) (*StudentDashboard, error) {
	recent, err := s.passes.ListByStudent(ctx, p.ID, nil)
	if err != nil {
		return nil, err
	}
	total := len(recent)
	if len(recent) > recentPassLimit {
		recent = recent[:recentPassLimit]
	}
	active, err := s.passes.ActiveForStudent(ctx, p.ID)
	if err != nil && !errors.Is(err, fault.ErrNotFound) {
		return nil, err
	}
	return &StudentDashboard{
		RecentPasses: recent,
		ActivePass:   active,
		TotalPasses:  total,
	}, nil
}
