package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/model"
	"github.com/iliyamo/hall-pass/internal/repository"
)

// SchoolHandler exposes the caller's school record and its settings.
type SchoolHandler struct {
	Schools *repository.SchoolRepo
}

func NewSchoolHandler(s *repository.SchoolRepo) *SchoolHandler {
	if s == nil {
		panic("nil repository passed to NewSchoolHandler")
	}
	return &SchoolHandler{Schools: s}
}

type schoolView struct {
	ID                  uint64 `json:"id"`
	Name                string `json:"name"`
	DefaultPassDuration int    `json:"default_pass_duration"`
	GracePeriodMinutes  int    `json:"grace_period_minutes"`
	Timezone            string `json:"timezone"`
}

func toSchoolView(s *model.School) schoolView {
	return schoolView{
		ID:                  s.ID,
		Name:                s.Name,
		DefaultPassDuration: s.DefaultPassDuration,
		GracePeriodMinutes:  s.GracePeriodMinutes,
		Timezone:            s.Timezone,
	}
}

// Get returns the caller's own school.
func (h *SchoolHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	school, err := h.Schools.GetByID(c.Request().Context(), p.SchoolID)
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, toSchoolView(school))
}

type updateSchoolReq struct {
	Name                *string `json:"name"`
	DefaultPassDuration *int    `json:"default_pass_duration"`
	GracePeriodMinutes  *int    `json:"grace_period_minutes"`
	Timezone            *string `json:"timezone"`
}

// UpdateSettings patches the caller's school settings.  Admin-only by
// route group; absent fields are left unchanged.
func (h *SchoolHandler) UpdateSettings(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateSchoolReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.DefaultPassDuration != nil && *req.DefaultPassDuration <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "default_pass_duration must be positive"})
	}
	if req.GracePeriodMinutes != nil && *req.GracePeriodMinutes < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "grace_period_minutes must not be negative"})
	}

	school, err := h.Schools.UpdateSettings(c.Request().Context(), p.SchoolID, repository.SchoolSettingsUpdate{
		Name:                req.Name,
		DefaultPassDuration: req.DefaultPassDuration,
		GracePeriodMinutes:  req.GracePeriodMinutes,
		Timezone:            req.Timezone,
	})
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, toSchoolView(school))
}
