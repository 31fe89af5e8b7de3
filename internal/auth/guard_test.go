package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-pass/internal/model"
)

func TestAuthorizeExactRole(t *testing.T) {
	p := Principal{ID: 1, Role: model.RoleStudent, SchoolID: 10}
	assert.Nil(t, Authorize(p, model.RoleStudent))
	assert.Nil(t, Authorize(p, model.RoleTeacher, model.RoleStudent))
}

func TestAuthorizeDenied(t *testing.T) {
	p := Principal{ID: 1, Role: model.RoleStudent, SchoolID: 10}

	denied := Authorize(p, model.RoleTeacher)
	require.NotNil(t, denied)
	assert.Equal(t, model.RoleStudent, denied.Role)
	assert.Equal(t, []model.Role{model.RoleTeacher}, denied.Required)
	assert.Equal(t, "/v1/dashboard/student", denied.Suggested)
	assert.Contains(t, denied.Error(), "student")
}

func TestAuthorizeAdminOverride(t *testing.T) {
	admin := Principal{ID: 2, Role: model.RoleAdministrator, SchoolID: 10}

	assert.Nil(t, Authorize(admin, model.RoleStudent))
	assert.Nil(t, Authorize(admin, model.RoleTeacher))
	// An empty requirement set is the admin-only gate.
	assert.Nil(t, Authorize(admin))
}

func TestAuthorizeEmptyRequirementBlocksOthers(t *testing.T) {
	student := Principal{ID: 1, Role: model.RoleStudent}
	teacher := Principal{ID: 2, Role: model.RoleTeacher}

	require.NotNil(t, Authorize(student))
	require.NotNil(t, Authorize(teacher))
}

func TestAuthorizeUnknownRole(t *testing.T) {
	p := Principal{ID: 3, Role: model.Role("janitor")}
	denied := Authorize(p, model.RoleStudent)
	require.NotNil(t, denied)
	assert.Equal(t, "/v1/auth/me", denied.Suggested)
}

func TestDashboardFor(t *testing.T) {
	assert.Equal(t, "/v1/dashboard/student", DashboardFor(model.RoleStudent))
	assert.Equal(t, "/v1/dashboard/teacher", DashboardFor(model.RoleTeacher))
	assert.Equal(t, "/v1/dashboard/admin", DashboardFor(model.RoleAdministrator))
}

func TestFullName(t *testing.T) {
	p := Principal{FirstName: "Maya", LastName: "Chen"}
	assert.Equal(t, "Maya Chen", p.FullName())
	assert.Equal(t, "Maya", Principal{FirstName: "Maya"}.FullName())
}
