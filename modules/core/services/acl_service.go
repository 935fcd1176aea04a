package services

import (
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
)

// AclService answers data sharing questions for shareable objects.
type AclService struct{}

func NewAclService() *AclService {
	return &AclService{}
}

// CanDataRead reports whether u may read data recorded against obj.
// Data write access implies data read access.
func (s *AclService) CanDataRead(u *user.User, obj sharing.Shareable) bool {
	return s.check(u, obj, func(a sharing.Access) bool {
		return a.CanDataRead() || a.CanDataWrite()
	})
}

// CanDataWrite reports whether u may write data against obj.
func (s *AclService) CanDataWrite(u *user.User, obj sharing.Shareable) bool {
	return s.check(u, obj, sharing.Access.CanDataWrite)
}

func (s *AclService) check(u *user.User, obj sharing.Shareable, allowed func(sharing.Access) bool) bool {
	if u == nil || u.IsSuper() {
		return true
	}
	if obj == nil {
		return false
	}
	sh := obj.GetSharing()
	if sh == nil {
		return false
	}
	if allowed(sh.PublicAccess) {
		return true
	}
	for _, ua := range sh.Users {
		if ua.UserUID == u.UID && allowed(ua.Access) {
			return true
		}
	}
	for _, uga := range sh.UserGroups {
		if uga.Group == nil || !allowed(uga.Access) {
			continue
		}
		if u.InGroup(uga.Group.UID) || uga.Group.HasMember(u.UID) {
			return true
		}
	}
	return false
}
