package usergroup

import (
	mapset "github.com/deckarep/golang-set/v2"
)

type UserGroup struct {
	ID   int64
	UID  string
	Name string
	// Members holds the UIDs of the users in the group. It may be nil when
	// membership was not loaded.
	Members mapset.Set[string]
}

func New(id int64, uid string, memberUIDs ...string) *UserGroup {
	return &UserGroup{
		ID:      id,
		UID:     uid,
		Members: mapset.NewThreadUnsafeSet(memberUIDs...),
	}
}

func (g *UserGroup) HasMember(userUID string) bool {
	if g == nil || g.Members == nil {
		return false
	}
	return g.Members.Contains(userUID)
}
