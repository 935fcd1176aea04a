package user

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

type Repository interface {
	GetByUID(ctx context.Context, uid string) (*User, error)
}
