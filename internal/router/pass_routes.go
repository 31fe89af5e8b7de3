package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/middleware"
	"github.com/iliyamo/hall-pass/internal/model"
)

// registerStudent wires the endpoints a student uses to move their
// own pass through its lifecycle.
func registerStudent(e *echo.Echo, d Deps) {
	chain := append(d.authChain(), middleware.RequireRole(model.RoleStudent))
	g := e.Group("/v1", chain...)

	g.POST("/passes", d.Passes.Request)
	g.POST("/passes/:id/activate", d.Passes.Activate)
	g.GET("/my-passes", d.Passes.ListMine)
	g.GET("/dashboard/student", d.Dashboards.Student)
}

// registerStaff wires the teacher-facing endpoints: issuing passes,
// working the pending queue and reviewing school history.
func registerStaff(e *echo.Echo, d Deps) {
	chain := append(d.authChain(), middleware.RequireRole(model.RoleTeacher))
	g := e.Group("/v1", chain...)

	g.POST("/passes/issue", d.Passes.Issue)
	g.POST("/passes/:id/approve", d.Passes.Approve)
	g.POST("/passes/:id/deny", d.Passes.Deny)
	g.GET("/passes/pending", d.Passes.ListPending)
	g.GET("/school/passes", d.Passes.ListSchool)
	g.GET("/dashboard/teacher", d.Dashboards.Teacher)
}

// registerShared wires endpoints open to every authenticated role.
// The service layer still scopes what each caller may see.
func registerShared(e *echo.Echo, d Deps) {
	chain := append(d.authChain(), middleware.RequireRole(model.RoleStudent, model.RoleTeacher))
	g := e.Group("/v1", chain...)

	g.GET("/passes/:id", d.Passes.Get)
	// Students close their own passes; staff close any in-school pass
	// when a student returns without their device.
	g.POST("/passes/:id/complete", d.Passes.Complete)
	g.GET("/locations", d.Locations.List)
	g.GET("/schools/me", d.Schools.Get)
}
