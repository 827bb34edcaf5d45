package repository

import (
	"context"
	"errors"
	"time"

	"session-control-plane/internal/user/domain"
)

// ErrConflict is returned by Create when the email is already registered.
var ErrConflict = errors.New("user conflict")

// Repository defines persistence for users. Lookups return (nil, nil) when
// no row matches and an error only for database failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	SetStatus(ctx context.Context, id string, status domain.UserStatus, at time.Time) error
}
