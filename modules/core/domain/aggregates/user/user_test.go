package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_IsSuper(t *testing.T) {
	u := &User{Roles: []Role{{Name: "Data entry", Authorities: []string{"F_DATAVALUE_ADD"}}}}
	assert.False(t, u.IsSuper())

	u.Roles = append(u.Roles, Role{Name: "Superuser", Authorities: []string{AuthorityAll}})
	assert.True(t, u.IsSuper())
}

func TestUser_Authorities(t *testing.T) {
	u := &User{Roles: []Role{
		{Authorities: []string{"B", "A"}},
		{Authorities: []string{"A", "C"}},
	}}
	assert.Equal(t, []string{"A", "B", "C"}, u.Authorities())
}

func TestUser_InGroup(t *testing.T) {
	u := &User{Groups: []string{"wl5cDMuUhmF"}}
	assert.True(t, u.InGroup("wl5cDMuUhmF"))
	assert.False(t, u.InGroup("Kk12LkEWtXp"))
}
