package repository

import (
	"context"
	"errors"
	"time"

	"session-control-plane/internal/session/domain"
)

// ErrConflict is returned by Insert when a unique constraint (token id or
// correlation id) is violated.
var ErrConflict = errors.New("session conflict")

// Repository defines persistence for refresh sessions.
//
// "Active" means revoked_at is null and expires_at is in the future; the
// FindActive* methods never return revoked or expired rows. Lookups return
// (nil, nil) when no row matches and an error only for database failures.
type Repository interface {
	Insert(ctx context.Context, s *domain.Session) error
	FindActiveByTokenID(ctx context.Context, tokenID string) (*domain.Session, error)
	FindActiveByCorrelationID(ctx context.Context, correlationID string) (*domain.Session, error)
	ListActiveBySubject(ctx context.Context, subjectID string) ([]*domain.Session, error)
	// RevokeIfActive atomically revokes the session only if it is still
	// unrevoked. Returns true if this call performed the revocation.
	RevokeIfActive(ctx context.Context, id string, at time.Time, reason domain.RevocationReason, replacedBy string) (bool, error)
	// RevokeAllActiveForSubject revokes every unrevoked session of the
	// subject and returns how many rows were revoked.
	RevokeAllActiveForSubject(ctx context.Context, subjectID string, at time.Time, reason domain.RevocationReason) (int64, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes rows whose expiry passed before the cutoff and
	// returns how many were deleted.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
