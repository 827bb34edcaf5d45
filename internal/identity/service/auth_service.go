package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"session-control-plane/internal/audit"
	"session-control-plane/internal/security"
	sessiondomain "session-control-plane/internal/session/domain"
	sessionservice "session-control-plane/internal/session/service"
	userdomain "session-control-plane/internal/user/domain"
	userrepo "session-control-plane/internal/user/repository"
)

// Sentinel errors for the auth service; handlers map them to HTTP codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	SetStatus(ctx context.Context, id string, status userdomain.UserStatus, at time.Time) error
}

// SessionLifecycle is the lifecycle surface needed by the auth service.
type SessionLifecycle interface {
	Issue(ctx context.Context, subjectID string, client sessionservice.ClientContext) (*sessionservice.Credentials, error)
	Revoke(ctx context.Context, correlationID string, reason sessiondomain.RevocationReason) error
	RevokeAll(ctx context.Context, subjectID string, reason sessiondomain.RevocationReason) (int64, error)
}

// AuthService implements password register, login, logout, and account
// deletion on top of the session lifecycle.
type AuthService struct {
	users    UserRepo
	sessions SessionLifecycle
	hasher   *security.Hasher
	emitter  audit.Emitter
}

// NewAuthService returns an AuthService with the given dependencies. emitter
// may be nil to disable audit emission.
func NewAuthService(users UserRepo, sessions SessionLifecycle, hasher *security.Hasher, emitter audit.Emitter) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		emitter:  emitter,
	}
}

// Register creates a user with the given email and password and returns its
// id. No session is issued; callers Login afterwards.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return "", err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrConflict) {
			return "", ErrEmailAlreadyRegistered
		}
		return "", err
	}
	s.emit(audit.EventRegister, user.ID, "")
	return user.ID, nil
}

// Login authenticates with email/password and issues a fresh session.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string, client sessionservice.ClientContext) (*sessionservice.Credentials, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		s.emit(audit.EventLoginFailure, "", client.IP)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.emit(audit.EventLoginFailure, user.ID, client.IP)
		return nil, ErrInvalidCredentials
	}
	creds, err := s.sessions.Issue(ctx, user.ID, client)
	if err != nil {
		return nil, err
	}
	s.emit(audit.EventLogin, user.ID, client.IP)
	return creds, nil
}

// Logout revokes the session bound to the given correlation id. Idempotent.
func (s *AuthService) Logout(ctx context.Context, correlationID string) error {
	return s.sessions.Revoke(ctx, correlationID, sessiondomain.ReasonLogout)
}

// LogoutAll revokes every active session of the subject and returns how many
// were revoked.
func (s *AuthService) LogoutAll(ctx context.Context, subjectID string) (int64, error) {
	return s.sessions.RevokeAll(ctx, subjectID, sessiondomain.ReasonLogout)
}

// DeleteAccount disables the user and revokes all of their sessions.
func (s *AuthService) DeleteAccount(ctx context.Context, subjectID string) error {
	if err := s.users.SetStatus(ctx, subjectID, userdomain.UserStatusDisabled, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAll(ctx, subjectID, sessiondomain.ReasonAccountDeleted); err != nil {
		return err
	}
	s.emit(audit.EventAccountDeleted, subjectID, "")
	return nil
}

// GetUser returns the user for id, or nil if not found.
func (s *AuthService) GetUser(ctx context.Context, id string) (*userdomain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) emit(eventType, subjectID, ip string) {
	if s.emitter == nil {
		return
	}
	audit.EmitAsync(s.emitter, &audit.Event{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		EventType: eventType,
		Source:    "auth-service",
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	})
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case r < '0' || (r > '9' && r < 'A') || (r > 'Z' && r < 'a') || r > 'z':
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
