package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
)

func TestSubjectForUser(t *testing.T) {
	assert.Equal(t, "user:b1uZmDpuXLA", SubjectForUser("b1uZmDpuXLA"))
	assert.Equal(t, "user:anonymous", SubjectForUser("  "))
}

func TestRolesForUser(t *testing.T) {
	assert.Nil(t, RolesForUser(nil))

	u := &user.User{
		Roles: []user.Role{
			{Name: "Data Clerk"},
			{Name: "Admin", Authorities: []string{user.AuthorityAll}},
		},
		Groups: []string{"grpNurses01", " "},
	}
	assert.Equal(t, []string{"role:data clerk", "role:admin", "role:superuser", "group:grpNurses01"}, RolesForUser(u))
}

func TestSubjectForRole(t *testing.T) {
	assert.Equal(t, "role:admin", SubjectForRole("Admin"))
	assert.Equal(t, "role:admin", SubjectForRole("role:admin"))
	assert.Equal(t, "role:unnamed", SubjectForRole(""))
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "system.settings", ObjectName("SYSTEM", "Settings"))
	assert.Equal(t, "global.resource", ObjectName("", ""))
}

func TestNormalizeAction(t *testing.T) {
	assert.Equal(t, "edit", NormalizeAction(" Edit "))
	assert.Equal(t, "*", NormalizeAction(""))
}
