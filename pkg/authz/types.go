package authz

import (
	"fmt"
	"strings"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
)

const (
	subjectUserPrefix     = "user"
	rolePrefix            = "role"
	groupPrefix           = "group"
	superuserRole         = "superuser"
	objectSeparator       = "."
	subjectSeparator      = ":"
	defaultActionWildcard = "*"
)

// Attributes contain optional ABAC style attributes supplied with a request.
type Attributes map[string]any

// Request encapsulates all parameters required to evaluate a Casbin rule.
// The request is allowed when the subject or any of the role subjects is.
type Request struct {
	Subject    string
	Roles      []string
	Domain     string
	Object     string
	Action     string
	Attributes Attributes
}

// RequestOption mutates a Request.
type RequestOption func(*Request)

// WithAttributes assigns attributes to the enforcement request.
func WithAttributes(attrs Attributes) RequestOption {
	return func(r *Request) {
		r.Attributes = attrs
	}
}

// WithRoles adds role subjects to the request.
func WithRoles(roles ...string) RequestOption {
	return func(r *Request) {
		r.Roles = append(r.Roles, roles...)
	}
}

// NewRequest constructs a Request with sane defaults.
func NewRequest(subject, domain, object, action string, opts ...RequestOption) Request {
	req := Request{
		Subject:    subject,
		Domain:     domain,
		Object:     object,
		Action:     action,
		Attributes: Attributes{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&req)
		}
	}
	return req
}

// subjects returns the subject followed by the role subjects.
func (r Request) subjects() []string {
	return append([]string{r.Subject}, r.Roles...)
}

// SubjectForUser builds a subject identifier in the form user:{uid}.
func SubjectForUser(uid string) string {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		uid = "anonymous"
	}
	return subjectUserPrefix + subjectSeparator + uid
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(roleName string) string {
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		roleName = "unnamed"
	}
	if strings.HasPrefix(roleName, rolePrefix+subjectSeparator) {
		return roleName
	}
	return fmt.Sprintf("%s%s%s", rolePrefix, subjectSeparator, strings.ToLower(roleName))
}

// SubjectForGroup returns group:{uid}; group UIDs keep their case.
func SubjectForGroup(uid string) string {
	return groupPrefix + subjectSeparator + strings.TrimSpace(uid)
}

// RolesForUser returns the role subjects of u followed by its group subjects.
// Holders of the ALL authority also get role:superuser.
func RolesForUser(u *user.User) []string {
	if u == nil {
		return nil
	}
	roles := make([]string, 0, len(u.Roles)+len(u.Groups)+1)
	for _, r := range u.Roles {
		roles = append(roles, SubjectForRole(r.Name))
	}
	if u.IsSuper() {
		roles = append(roles, SubjectForRole(superuserRole))
	}
	for _, g := range u.Groups {
		if strings.TrimSpace(g) != "" {
			roles = append(roles, SubjectForGroup(g))
		}
	}
	return roles
}

// ObjectName returns the canonical module.resource string, lowercased.
func ObjectName(module, resource string) string {
	module = strings.ToLower(strings.TrimSpace(module))
	resource = strings.ToLower(strings.TrimSpace(resource))
	if module == "" {
		module = "global"
	}
	if resource == "" {
		resource = "resource"
	}
	return module + objectSeparator + resource
}

// NormalizeAction returns a normalized action string.
func NormalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return defaultActionWildcard
	}
	return action
}
