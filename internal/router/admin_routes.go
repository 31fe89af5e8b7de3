package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/middleware"
)

// registerAdmin wires the administrator-only endpoints.  RequireRole
// with no roles admits only administrators through the guard's
// hierarchy rule.
func registerAdmin(e *echo.Echo, d Deps) {
	chain := append(d.authChain(), middleware.RequireRole())
	g := e.Group("/v1", chain...)

	g.POST("/locations", d.Locations.Create)
	g.PATCH("/locations/:id", d.Locations.Update)
	g.DELETE("/locations/:id", d.Locations.Deactivate)

	g.PATCH("/schools/me", d.Schools.UpdateSettings)
	g.GET("/dashboard/admin", d.Dashboards.Admin)
}
