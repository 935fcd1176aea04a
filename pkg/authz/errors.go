package authz

import (
	"fmt"

	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

// ErrForbidden matches every denial returned by Authorize.
var ErrForbidden = serrors.NewError("AUTHZ_FORBIDDEN", "permission denied", "Authz.Forbidden")

func forbidden(req Request) error {
	err := *ErrForbidden
	err.Message = fmt.Sprintf("%s may not %s %s", req.Subject, req.Action, req.Object)
	return err.WithTemplateData(map[string]string{
		"domain": req.Domain,
		"object": req.Object,
		"action": req.Action,
	})
}
