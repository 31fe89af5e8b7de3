package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/model"
	"github.com/iliyamo/hall-pass/internal/repository"
)

// LocationHandler exposes location management.  Listing is available
// to everyone in the school; create, update and deactivate are
// admin-only (enforced by the route group).
type LocationHandler struct {
	Locations *repository.LocationRepo
}

func NewLocationHandler(l *repository.LocationRepo) *LocationHandler {
	if l == nil {
		panic("nil repository passed to NewLocationHandler")
	}
	return &LocationHandler{Locations: l}
}

type locationView struct {
	ID                 uint64  `json:"id"`
	SchoolID           uint64  `json:"school_id"`
	Name               string  `json:"name"`
	RoomNumber         *string `json:"room_number"`
	DefaultDuration    int     `json:"default_duration"`
	RequiresApproval   bool    `json:"requires_approval"`
	IsActive           bool    `json:"is_active"`
	IsEarlyReleaseOnly bool    `json:"is_early_release_only"`
	IsSummonsOnly      bool    `json:"is_summons_only"`
}

func toLocationView(l *model.Location) locationView {
	return locationView{
		ID:                 l.ID,
		SchoolID:           l.SchoolID,
		Name:               l.Name,
		RoomNumber:         l.RoomNumber,
		DefaultDuration:    l.DefaultDuration,
		RequiresApproval:   l.RequiresApproval,
		IsActive:           l.IsActive,
		IsEarlyReleaseOnly: l.IsEarlyReleaseOnly,
		IsSummonsOnly:      l.IsSummonsOnly,
	}
}

// List returns the caller's school's locations.  ?all=true includes
// deactivated ones, which only matters to admins reviewing history.
func (h *LocationHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	activeOnly := c.QueryParam("all") != "true"
	list, err := h.Locations.ListBySchool(c.Request().Context(), p.SchoolID, activeOnly)
	if err != nil {
		return writeFault(c, err)
	}
	out := make([]locationView, len(list))
	for i := range list {
		out[i] = toLocationView(&list[i])
	}
	return c.JSON(http.StatusOK, echo.Map{"locations": out, "count": len(out)})
}

type createLocationReq struct {
	Name               string  `json:"name"`
	RoomNumber         *string `json:"room_number"`
	DefaultDuration    int     `json:"default_duration"`
	RequiresApproval   *bool   `json:"requires_approval"`
	IsEarlyReleaseOnly bool    `json:"is_early_release_only"`
	IsSummonsOnly      bool    `json:"is_summons_only"`
}

// Create adds a location to the caller's school.
func (h *LocationHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createLocationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	requiresApproval := true
	if req.RequiresApproval != nil {
		requiresApproval = *req.RequiresApproval
	}

	loc, err := h.Locations.Create(c.Request().Context(), &model.Location{
		SchoolID:           p.SchoolID,
		Name:               req.Name,
		RoomNumber:         req.RoomNumber,
		DefaultDuration:    req.DefaultDuration,
		RequiresApproval:   requiresApproval,
		IsActive:           true,
		IsEarlyReleaseOnly: req.IsEarlyReleaseOnly,
		IsSummonsOnly:      req.IsSummonsOnly,
	})
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusCreated, toLocationView(loc))
}

type updateLocationReq struct {
	Name               *string `json:"name"`
	RoomNumber         *string `json:"room_number"`
	DefaultDuration    *int    `json:"default_duration"`
	RequiresApproval   *bool   `json:"requires_approval"`
	IsActive           *bool   `json:"is_active"`
	IsEarlyReleaseOnly *bool   `json:"is_early_release_only"`
	IsSummonsOnly      *bool   `json:"is_summons_only"`
}

// Update patches a location.  Absent fields are left unchanged.
func (h *LocationHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}
	var req updateLocationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	loc, err := h.Locations.UpdateForSchool(c.Request().Context(), id, p.SchoolID, repository.LocationUpdate{
		Name:               req.Name,
		RoomNumber:         req.RoomNumber,
		DefaultDuration:    req.DefaultDuration,
		RequiresApproval:   req.RequiresApproval,
		IsActive:           req.IsActive,
		IsEarlyReleaseOnly: req.IsEarlyReleaseOnly,
		IsSummonsOnly:      req.IsSummonsOnly,
	})
	if err != nil {
		return writeFault(c, err)
	}
	return c.JSON(http.StatusOK, toLocationView(loc))
}

// Deactivate retires a location.  Historical passes keep referencing
// it; only new passes are blocked.
func (h *LocationHandler) Deactivate(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location id"})
	}
	if err := h.Locations.Deactivate(c.Request().Context(), id, p.SchoolID); err != nil {
		return writeFault(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
