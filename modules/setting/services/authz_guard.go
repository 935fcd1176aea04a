package services

import (
	"context"
	"errors"

	"github.com/hmis-dev/hmis-sdk/pkg/authz"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
)

const systemAuthzDomain = "system"

var SettingsAuthzObject = authz.ObjectName(systemAuthzDomain, "settings")

var authorizeSystemFn = defaultAuthorizeSystem

func authorizeSystem(ctx context.Context, object, action string) error {
	return authorizeSystemFn(ctx, object, action)
}

func defaultAuthorizeSystem(ctx context.Context, object, action string) error {
	currentUser, err := composables.UseUser(ctx)
	if err != nil {
		if errors.Is(err, composables.ErrNoUserFound) {
			return nil
		}
		return err
	}
	return authz.AuthorizeUser(ctx, currentUser, systemAuthzDomain, object, action)
}
