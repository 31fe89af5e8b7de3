package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/service"
)

// PassHandler exposes the pass lifecycle over HTTP.  Student-facing
// endpoints live in this file; the staff endpoints are in
// pass_staff.go.
type PassHandler struct {
	Passes *service.PassService
}

func NewPassHandler(passes *service.PassService) *PassHandler {
	if passes == nil {
		panic("nil service passed to NewPassHandler")
	}
	return &PassHandler{Passes: passes}
}

type requestPassReq struct {
	LocationID         uint64     `json:"location_id"`
	StudentReason      *string    `json:"student_reason"`
	RequestedStartTime *time.Time `json:"requested_start_time"`
	RequestedEndTime   *time.Time `json:"requested_end_time"`
	IsSummons          bool       `json:"is_summons"`
	IsEarlyRelease     bool       `json:"is_early_release"`
}

// Request creates a pass for the calling student.  Depending on the
// location's approval flag the response is a pending or an
// auto-approved pass; either way the student holds the one open pass
// they are allowed.
func (h *PassHandler) Request(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req requestPassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.LocationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "location_id required"})
	}

	detail, err := h.Passes.RequestPass(c.Request().Context(), p, service.RequestPassInput{
		LocationID:         req.LocationID,
		StudentReason:      req.StudentReason,
		RequestedStartTime: req.RequestedStartTime,
		RequestedEndTime:   req.RequestedEndTime,
		IsSummons:          req.IsSummons,
		IsEarlyRelease:     req.IsEarlyRelease,
	})
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusCreated, toPassView(detail))
}

// Activate starts an approved pass, stamping the departure time and
// returning the verification code.
func (h *PassHandler) Activate(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
	}
	detail, err := h.Passes.ActivatePass(c.Request().Context(), p, id)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, toPassView(detail))
}

// Complete closes out a pass.  Students close their own; staff close
// any active pass in their school, so the same handler backs both
// route groups.
func (h *PassHandler) Complete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
	}
	detail, err := h.Passes.CompletePass(c.Request().Context(), p, id)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, toPassView(detail))
}

// ListMine returns the calling student's pass history, optionally
// filtered by ?status=.
func (h *PassHandler) ListMine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	status, ok := statusFilter(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	list, err := h.Passes.ListMyPasses(c.Request().Context(), p, status)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"passes": toPassViews(list), "count": len(list)})
}

// Get returns one pass.  The service enforces visibility: students
// their own, staff their school.
func (h *PassHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
	}
	detail, err := h.Passes.GetPass(c.Request().Context(), p, id)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, toPassView(detail))
}
