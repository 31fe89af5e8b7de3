// Package handler contains the HTTP surface of the hall-pass API.
// Handlers bind and validate input, call the service layer and
// translate its sentinel errors into status codes; no domain decision
// lives here.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/auth"
	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/middleware"
	"github.com/iliyamo/hall-pass/internal/model"
	"github.com/iliyamo/hall-pass/internal/repository"
)

// writeFault is the single translation point from sentinel errors to
// HTTP responses.  Every handler funnels service errors through it so
// the status mapping cannot drift between endpoints.
func writeFault(c echo.Context, err error) error {
	switch {
	case errors.Is(err, fault.ErrAuthenticationFailed):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication failed"})
	case errors.Is(err, fault.ErrProfileNotFound):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "profile not found"})
	case errors.Is(err, fault.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, fault.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, fault.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "student already has an open pass"})
	case errors.Is(err, fault.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
	case errors.Is(err, fault.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed"})
	case errors.Is(err, fault.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// principal returns the caller set by the middleware chain.  Routes
// registered outside the authenticated group have no principal; that
// is a wiring bug, reported as 401 rather than a panic.
func principal(c echo.Context) (auth.Principal, error) {
	p, ok := middleware.Principal(c)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return p, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// statusFilter parses an optional ?status= query parameter.
func statusFilter(c echo.Context) (*model.PassStatus, bool) {
	raw := c.QueryParam("status")
	if raw == "" {
		return nil, true
	}
	s := model.PassStatus(raw)
	switch s {
	case model.StatusPending, model.StatusApproved, model.StatusActive,
		model.StatusCompleted, model.StatusDenied, model.StatusExpired:
		return &s, true
	}
	return nil, false
}

// passView is the wire shape of a pass.
type passView struct {
	ID                 uint64     `json:"id"`
	SchoolID           uint64     `json:"school_id"`
	StudentID          uint64     `json:"student_id"`
	StudentName        string     `json:"student_name"`
	LocationID         uint64     `json:"location_id"`
	LocationName       string     `json:"location_name"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	RequestedStartTime *time.Time `json:"requested_start_time"`
	RequestedEndTime   *time.Time `json:"requested_end_time"`
	ActualStartTime    *time.Time `json:"actual_start_time"`
	ActualEndTime      *time.Time `json:"actual_end_time"`
	DurationMinutes    *int       `json:"duration_minutes"`
	ApproverID         *uint64    `json:"approver_id"`
	ApproverName       *string    `json:"approver_name"`
	ApprovedAt         *time.Time `json:"approved_at"`
	ApprovalNotes      *string    `json:"approval_notes"`
	StudentReason      *string    `json:"student_reason"`
	AdminNotes         *string    `json:"admin_notes"`
	IsSummons          bool       `json:"is_summons"`
	IsEarlyRelease     bool       `json:"is_early_release"`
	VerificationCode   *string    `json:"verification_code"`
}

func toPassView(d *repository.PassDetail) passView {
	return passView{
		ID:                 d.ID,
		SchoolID:           d.SchoolID,
		StudentID:          d.StudentID,
		StudentName:        d.StudentName,
		LocationID:         d.LocationID,
		LocationName:       d.LocationName,
		Status:             string(d.Status),
		CreatedAt:          d.CreatedAt,
		RequestedStartTime: d.RequestedStartTime,
		RequestedEndTime:   d.RequestedEndTime,
		ActualStartTime:    d.ActualStartTime,
		ActualEndTime:      d.ActualEndTime,
		DurationMinutes:    d.DurationMinutes,
		ApproverID:         d.ApproverID,
		ApproverName:       d.ApproverName,
		ApprovedAt:         d.ApprovedAt,
		ApprovalNotes:      d.ApprovalNotes,
		StudentReason:      d.StudentReason,
		AdminNotes:         d.AdminNotes,
		IsSummons:          d.IsSummons,
		IsEarlyRelease:     d.IsEarlyRelease,
		VerificationCode:   d.VerificationCode,
	}
}

func toPassViews(ds []repository.PassDetail) []passView {
	out := make([]passView, len(ds))
	for i := range ds {
		out[i] = toPassView(&ds[i])
	}
	return out
}
