package services

import (
	"context"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/pkg/authz"
)

const dataValueAuthzDomain = "datavalue"

var AccessAuthzObject = authz.ObjectName(dataValueAuthzDomain, "access")

// Authorizer decides whether u may perform action on object.
type Authorizer func(ctx context.Context, u *user.User, object, action string) error

func defaultAuthorizer(ctx context.Context, u *user.User, object, action string) error {
	return authz.AuthorizeUser(ctx, u, dataValueAuthzDomain, object, action)
}
