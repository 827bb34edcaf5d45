package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"session-control-plane/internal/audit"
	"session-control-plane/internal/security"
	"session-control-plane/internal/session/domain"
	"session-control-plane/internal/session/repository"
)

// Sentinel errors for the session lifecycle; handlers map them to HTTP codes.
var (
	ErrMalformedCredential = errors.New("malformed credential")
	ErrExpiredCredential   = errors.New("credential expired")
	ErrSessionInvalid      = errors.New("session invalid")
	ErrSecurityBreach      = errors.New("token secret mismatch; all sessions revoked")
	ErrConflict            = errors.New("session conflict")
	ErrStoreUnavailable    = errors.New("session store unavailable")
)

// SessionRepo is the repository surface needed by the lifecycle.
type SessionRepo interface {
	Insert(ctx context.Context, s *domain.Session) error
	FindActiveByTokenID(ctx context.Context, tokenID string) (*domain.Session, error)
	FindActiveByCorrelationID(ctx context.Context, correlationID string) (*domain.Session, error)
	ListActiveBySubject(ctx context.Context, subjectID string) ([]*domain.Session, error)
	RevokeIfActive(ctx context.Context, id string, at time.Time, reason domain.RevocationReason, replacedBy string) (bool, error)
	RevokeAllActiveForSubject(ctx context.Context, subjectID string, at time.Time, reason domain.RevocationReason) (int64, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ClientContext carries request-side metadata recorded on new sessions.
type ClientContext struct {
	IP     string
	Device domain.DeviceInfo
}

// Credentials is the outcome of Issue and Rotate: a signed access credential
// plus the opaque refresh token for the session that backs it.
type Credentials struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	SessionID        string
	CorrelationID    string
	SessionExpiresAt time.Time
	SubjectID        string
}

// Identity is the outcome of Authenticate: the verified subject and the
// session the credential is bound to.
type Identity struct {
	SubjectID     string
	SessionID     string
	CorrelationID string
}

// Lifecycle manages refresh sessions: issuance, rotation, revocation, and
// per-request authentication.
type Lifecycle struct {
	repo       SessionRepo
	tokens     *security.TokenProvider
	hasher     *security.Hasher
	sessionTTL time.Duration
	emitter    audit.Emitter
}

// NewLifecycle returns a Lifecycle with the given dependencies. emitter may
// be nil to disable audit emission.
func NewLifecycle(repo SessionRepo, tokens *security.TokenProvider, hasher *security.Hasher, sessionTTL time.Duration, emitter audit.Emitter) *Lifecycle {
	return &Lifecycle{
		repo:       repo,
		tokens:     tokens,
		hasher:     hasher,
		sessionTTL: sessionTTL,
		emitter:    emitter,
	}
}

// Issue creates a fresh session for the subject and returns its credentials.
// The refresh token is returned exactly once; only the Argon2id digest of
// its secret half is persisted.
func (l *Lifecycle) Issue(ctx context.Context, subjectID string, client ClientContext) (*Credentials, error) {
	now := time.Now().UTC()
	sess, refreshToken, err := l.newSession(subjectID, client, now)
	if err != nil {
		return nil, err
	}
	if err := l.repo.Insert(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Freshly generated random ids should never collide.
			log.Printf("session: issue conflict for subject %s: %v", subjectID, err)
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, storeUnavailable(err)
	}
	accessToken, accessExp, err := l.tokens.Issue(subjectID, sess.CorrelationID)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		SessionID:        sess.ID,
		CorrelationID:    sess.CorrelationID,
		SessionExpiresAt: sess.ExpiresAt,
		SubjectID:        subjectID,
	}, nil
}

// Rotate exchanges a refresh token for fresh credentials. The presented
// session is revoked and replaced; a token whose id resolves to a live
// session but whose secret does not match triggers breach containment: every
// session of the subject is revoked and ErrSecurityBreach is returned.
//
// Concurrent rotations of the same token race on the conditional revoke;
// exactly one caller wins, the rest get ErrSessionInvalid.
func (l *Lifecycle) Rotate(ctx context.Context, refreshToken string, client ClientContext) (*Credentials, error) {
	tokenID, secret, ok := security.SplitRefreshToken(refreshToken)
	if !ok {
		return nil, ErrMalformedCredential
	}
	sess, err := l.repo.FindActiveByTokenID(ctx, tokenID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if sess == nil {
		return nil, ErrSessionInvalid
	}
	now := time.Now().UTC()
	if err := l.hasher.Compare(sess.TokenSecretHash, []byte(secret)); err != nil {
		// A live token id with the wrong secret means the secret was
		// guessed or the token was stolen and already rotated out of
		// band. Contain by revoking everything the subject holds.
		if _, err := l.repo.RevokeAllActiveForSubject(ctx, sess.SubjectID, now, domain.ReasonCompromised); err != nil {
			return nil, storeUnavailable(err)
		}
		l.emit(audit.EventBreachDetected, sess.SubjectID, sess.ID, client.IP)
		return nil, ErrSecurityBreach
	}
	next, newRefresh, err := l.newSession(sess.SubjectID, client, now)
	if err != nil {
		return nil, err
	}
	won, err := l.repo.RevokeIfActive(ctx, sess.ID, now, domain.ReasonRotated, next.CorrelationID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if !won {
		return nil, ErrSessionInvalid
	}
	if err := l.repo.Insert(ctx, next); err != nil {
		// The old session is already revoked at this point; failing
		// closed loses the session rather than leaving two live ones.
		if errors.Is(err, repository.ErrConflict) {
			log.Printf("session: rotate conflict for subject %s: %v", sess.SubjectID, err)
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, storeUnavailable(err)
	}
	accessToken, accessExp, err := l.tokens.Issue(sess.SubjectID, next.CorrelationID)
	if err != nil {
		return nil, err
	}
	l.emit(audit.EventRotate, sess.SubjectID, next.ID, client.IP)
	return &Credentials{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRefresh,
		SessionID:        next.ID,
		CorrelationID:    next.CorrelationID,
		SessionExpiresAt: next.ExpiresAt,
		SubjectID:        sess.SubjectID,
	}, nil
}

// Revoke revokes the session bound to the given correlation id. Revoking a
// session that is already revoked or gone is a no-op, so logout is
// idempotent.
func (l *Lifecycle) Revoke(ctx context.Context, correlationID string, reason domain.RevocationReason) error {
	sess, err := l.repo.FindActiveByCorrelationID(ctx, correlationID)
	if err != nil {
		return storeUnavailable(err)
	}
	if sess == nil {
		return nil
	}
	now := time.Now().UTC()
	won, err := l.repo.RevokeIfActive(ctx, sess.ID, now, reason, "")
	if err != nil {
		return storeUnavailable(err)
	}
	if won {
		l.emit(audit.EventRevoke, sess.SubjectID, sess.ID, "")
	}
	return nil
}

// RevokeAll revokes every active session of the subject and returns how many
// were revoked.
func (l *Lifecycle) RevokeAll(ctx context.Context, subjectID string, reason domain.RevocationReason) (int64, error) {
	n, err := l.repo.RevokeAllActiveForSubject(ctx, subjectID, time.Now().UTC(), reason)
	if err != nil {
		return 0, storeUnavailable(err)
	}
	l.emit(audit.EventRevokeAll, subjectID, "", "")
	return n, nil
}

// Authenticate verifies an access credential and re-checks that the session
// it was minted from is still live. The activity timestamp is updated
// best-effort; a failed touch never fails the request.
func (l *Lifecycle) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	subjectID, correlationID, err := l.tokens.Verify(accessToken)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrCredentialExpired):
			return nil, ErrExpiredCredential
		default:
			return nil, ErrMalformedCredential
		}
	}
	sess, err := l.repo.FindActiveByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if sess == nil || sess.SubjectID != subjectID {
		return nil, ErrSessionInvalid
	}
	if err := l.repo.TouchActivity(ctx, sess.ID, time.Now().UTC()); err != nil {
		log.Printf("session: activity touch failed for %s: %v", sess.ID, err)
	}
	return &Identity{
		SubjectID:     subjectID,
		SessionID:     sess.ID,
		CorrelationID: correlationID,
	}, nil
}

// ListSessions returns the subject's active sessions, newest first.
func (l *Lifecycle) ListSessions(ctx context.Context, subjectID string) ([]*domain.Session, error) {
	list, err := l.repo.ListActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return list, nil
}

// Sweep deletes sessions whose expiry has passed and returns how many rows
// were removed. Revocation correctness never depends on the sweep; it only
// reclaims storage.
func (l *Lifecycle) Sweep(ctx context.Context) (int64, error) {
	n, err := l.repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, storeUnavailable(err)
	}
	return n, nil
}

func (l *Lifecycle) newSession(subjectID string, client ClientContext, now time.Time) (*domain.Session, string, error) {
	tokenID, err := security.NewTokenID()
	if err != nil {
		return nil, "", err
	}
	secret, err := security.NewTokenSecret()
	if err != nil {
		return nil, "", err
	}
	correlationID, err := security.NewCorrelationID()
	if err != nil {
		return nil, "", err
	}
	secretHash, err := l.hasher.Hash([]byte(secret))
	if err != nil {
		return nil, "", err
	}
	sess := &domain.Session{
		ID:              uuid.New().String(),
		SubjectID:       subjectID,
		TokenID:         tokenID,
		TokenSecretHash: secretHash,
		CorrelationID:   correlationID,
		IssuedAt:        now,
		ExpiresAt:       now.Add(l.sessionTTL),
		CreatedByIP:     client.IP,
		Device:          client.Device,
	}
	return sess, security.EncodeRefreshToken(tokenID, secret), nil
}

func (l *Lifecycle) emit(eventType, subjectID, sessionID, ip string) {
	if l.emitter == nil {
		return
	}
	audit.EmitAsync(l.emitter, &audit.Event{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    "session-service",
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	})
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
