package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-pass/internal/auth"
	"github.com/iliyamo/hall-pass/internal/model"
)

func invokeWithRole(t *testing.T, role model.Role, required ...model.Role) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(principalKey, auth.Principal{ID: 1, Role: role, SchoolID: 1})

	h := RequireRole(required...)(func(c echo.Context) error {
		return c.String(http.StatusOK, "passed")
	})
	require.NoError(t, h(c))
	return rec
}

func TestRequireRoleAllows(t *testing.T) {
	rec := invokeWithRole(t, model.RoleTeacher, model.RoleTeacher)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleAdminPassesEveryGate(t *testing.T) {
	assert.Equal(t, http.StatusOK, invokeWithRole(t, model.RoleAdministrator, model.RoleStudent).Code)
	assert.Equal(t, http.StatusOK, invokeWithRole(t, model.RoleAdministrator, model.RoleTeacher).Code)
	assert.Equal(t, http.StatusOK, invokeWithRole(t, model.RoleAdministrator).Code)
}

func TestRequireRoleDenialBody(t *testing.T) {
	rec := invokeWithRole(t, model.RoleStudent, model.RoleTeacher)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Error     string   `json:"error"`
		Role      string   `json:"role"`
		Required  []string `json:"required_roles"`
		Suggested string   `json:"suggested_endpoint"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, "student", body.Role)
	assert.Equal(t, []string{"teacher"}, body.Required)
	assert.Equal(t, "/v1/dashboard/student", body.Suggested)
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireRole(model.RoleStudent)(func(c echo.Context) error {
		return c.String(http.StatusOK, "passed")
	})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
