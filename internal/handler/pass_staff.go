package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/auth"
	"github.com/iliyamo/hall-pass/internal/repository"
	"github.com/iliyamo/hall-pass/internal/service"
)

type issuePassReq struct {
	StudentID       uint64  `json:"student_id"`
	LocationID      uint64  `json:"location_id"`
	DurationMinutes *int    `json:"duration_minutes"`
	AdminNotes      *string `json:"admin_notes"`
	IsSummons       bool    `json:"is_summons"`
	IsEarlyRelease  bool    `json:"is_early_release"`
}

type decisionReq struct {
	Notes *string `json:"notes"`
}

// Issue creates an already-approved pass for a student on the calling
// staff member's authority.
func (h *PassHandler) Issue(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req issuePassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StudentID == 0 || req.LocationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id and location_id required"})
	}

	detail, err := h.Passes.IssuePass(c.Request().Context(), p, service.IssuePassInput{
		StudentID:       req.StudentID,
		LocationID:      req.LocationID,
		DurationMinutes: req.DurationMinutes,
		AdminNotes:      req.AdminNotes,
		IsSummons:       req.IsSummons,
		IsEarlyRelease:  req.IsEarlyRelease,
	})
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusCreated, toPassView(detail))
}

// decide shares the bind/call/respond shape of Approve and Deny.
func (h *PassHandler) decide(c echo.Context,
	op func(context.Context, auth.Principal, uint64, *string) (*repository.PassDetail, error)) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
	}
	var req decisionReq
	_ = c.Bind(&req) // empty body means a default note

	detail, err := op(c.Request().Context(), p, id, req.Notes)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, toPassView(detail))
}

// Approve grants a pending request.
func (h *PassHandler) Approve(c echo.Context) error {
	return h.decide(c, h.Passes.ApprovePass)
}

// Deny refuses a pending request.
func (h *PassHandler) Deny(c echo.Context) error {
	return h.decide(c, h.Passes.DenyPass)
}

// ListPending returns the school's queue of pending requests, oldest
// first so staff work them in arrival order.
func (h *PassHandler) ListPending(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	list, err := h.Passes.ListPending(c.Request().Context(), p)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"passes": toPassViews(list), "count": len(list)})
}

// ListSchool returns the school's pass history with optional ?status=
// and ?student= filters.
func (h *PassHandler) ListSchool(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	status, ok := statusFilter(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	list, err := h.Passes.ListSchoolPasses(c.Request().Context(), p, status, c.QueryParam("student"))
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"passes": toPassViews(list), "count": len(list)})
}
