package composables

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/form"
	"github.com/sirupsen/logrus"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/pkg/constants"
)

var (
	ErrNoUserFound = errors.New("no user found in context")

	queryDecoder = form.NewDecoder()
)

type Params struct {
	IP        string
	UserAgent string
	RequestID string
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the request logger from the context.
// Outside a request it falls back to the standard logrus logger.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, constants.UserKey, u)
}

func UseUser(ctx context.Context) (*user.User, error) {
	u, ok := ctx.Value(constants.UserKey).(*user.User)
	if !ok || u == nil {
		return nil, ErrNoUserFound
	}
	return u, nil
}

// UseQuery decodes the request query string into v.
func UseQuery[T any](v *T, r *http.Request) (*T, error) {
	return v, queryDecoder.Decode(v, r.URL.Query())
}

func WithRequestStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, constants.RequestStart, start)
}

func UseRequestStart(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(constants.RequestStart).(time.Time)
	return start, ok
}
