package user

import (
	"slices"
)

// AuthorityAll grants superuser status; holders bypass every sharing check.
const AuthorityAll = "ALL"

type Role struct {
	UID         string
	Name        string
	Authorities []string
}

type User struct {
	ID       int64
	UID      string
	Username string
	Roles    []Role
	// Groups holds the UIDs of the user groups the user belongs to.
	Groups []string
}

func (u *User) IsSuper() bool {
	return u.HasAuthority(AuthorityAll)
}

func (u *User) HasAuthority(authority string) bool {
	for _, r := range u.Roles {
		if slices.Contains(r.Authorities, authority) {
			return true
		}
	}
	return false
}

func (u *User) Authorities() []string {
	var out []string
	for _, r := range u.Roles {
		for _, a := range r.Authorities {
			if !slices.Contains(out, a) {
				out = append(out, a)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (u *User) InGroup(groupUID string) bool {
	return slices.Contains(u.Groups, groupUID)
}
