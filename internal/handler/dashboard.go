package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/service"
)

// DashboardHandler serves the three role-specific landing views.  The
// teacher and admin dashboards are analytics-driven and eventually
// consistent; the student dashboard reads live pass state.
type DashboardHandler struct {
	Passes    *service.PassService
	Analytics *service.AnalyticsService
}

func NewDashboardHandler(passes *service.PassService, analytics *service.AnalyticsService) *DashboardHandler {
	if passes == nil || analytics == nil {
		panic("nil service passed to NewDashboardHandler")
	}
	return &DashboardHandler{Passes: passes, Analytics: analytics}
}

// Student returns the caller's recent passes and active pass.
func (h *DashboardHandler) Student(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	d, err := h.Passes.Dashboard(c.Request().Context(), p)
	if err != nil {
		return writeFault(c, err)
	}
	resp := echo.Map{
		"recent_passes": toPassViews(d.RecentPasses),
		"total_passes":  d.TotalPasses,
		"active_pass":   nil,
	}
	if d.ActivePass != nil {
		resp["active_pass"] = toPassView(d.ActivePass)
	}
	return c.JSON(http.StatusOK, resp)
}

// Teacher returns the caller's approval metrics next to the
// school-wide per-teacher averages.
func (h *DashboardHandler) Teacher(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	m, err := h.Analytics.ComputeTeacherMetrics(c.Request().Context(), p.ID, p.SchoolID)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Admin returns the school-wide counts, duration average and peak
// hours.
func (h *DashboardHandler) Admin(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	m, err := h.Analytics.ComputeAdminMetrics(c.Request().Context(), p.SchoolID)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
