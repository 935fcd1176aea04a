package authz

import (
	"context"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
)

// AuthorizeUser checks u against domain, object and action using the default service.
// A nil user is a trusted internal caller and is always allowed.
func AuthorizeUser(ctx context.Context, u *user.User, domain, object, action string) error {
	if u == nil {
		return nil
	}
	return Use().Authorize(ctx, NewRequest(
		SubjectForUser(u.UID),
		domain,
		object,
		NormalizeAction(action),
		WithRoles(RolesForUser(u)...),
	))
}
