package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-pass/internal/auth"
	"github.com/iliyamo/hall-pass/internal/model"
)

// RequireRole gates a route on the authorization guard.  It must run
// after LoadPrincipal.  Administrators pass every gate through the
// guard's hierarchy rule; a denial answers 403 with the caller's
// actual role, the roles the route required, and the dashboard the
// caller should be using instead.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}
			if denied := auth.Authorize(p, roles...); denied != nil {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":              "forbidden",
					"role":               denied.Role,
					"required_roles":     denied.Required,
					"suggested_endpoint": denied.Suggested,
				})
			}
			return next(c)
		}
	}
}
