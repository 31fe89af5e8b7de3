// Package router wires handlers to routes.  Each role-scoped group
// carries the same middleware chain: bearer-token verification,
// principal loading from the directory, then the role guard.  The
// guard's admin hierarchy means administrators pass every group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/handler"
	"github.com/iliyamo/hall-pass/internal/middleware"
)

// Deps carries everything route registration needs.
type Deps struct {
	JWTSecret string
	Profiles  middleware.ProfileSource
	Users     middleware.UserSource

	Auth       *handler.AuthHandler
	Passes     *handler.PassHandler
	Locations  *handler.LocationHandler
	Schools    *handler.SchoolHandler
	Dashboards *handler.DashboardHandler
}

// authChain builds the standard authenticated middleware chain.
func (d Deps) authChain() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.LoadPrincipal(d.Profiles, d.Users),
	}
}

// Register attaches every route to the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	registerAuth(e, d)
	registerStudent(e, d)
	registerStaff(e, d)
	registerAdmin(e, d)
	registerShared(e, d)
}

// registerAuth wires the session endpoints.  Register, login, refresh
// and logout work without an access token; /v1/auth/me needs one.
func registerAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/refresh-access", d.Auth.RefreshAccess)
	// Logout parses its own bearer token so a client holding only a
	// refresh token can still end a session.
	g.POST("/logout", d.Auth.Logout)

	e.GET("/v1/auth/me", d.Auth.Me, d.authChain()...)
}
