package domain

import "time"

// RevocationReason records why a session was terminated. Once set it never changes.
type RevocationReason string

const (
	ReasonRotated        RevocationReason = "rotated"
	ReasonLogout         RevocationReason = "logout"
	ReasonCompromised    RevocationReason = "compromised"
	ReasonAccountDeleted RevocationReason = "account-deleted"
)

// DeviceInfo is request-provenance metadata captured at issuance. Immutable after creation.
type DeviceInfo struct {
	ClientType  string
	DeviceModel string
	OSName      string
	OSVersion   string
	UserAgent   string
}

// Session is one refresh session: one row per device/login.
// TokenID is the public, indexable half of the refresh credential;
// TokenSecretHash is the Argon2id hash of the private half. The raw secret
// is never persisted. CorrelationID (the access credential's jti) links
// every access credential to this row.
type Session struct {
	ID              string
	SubjectID       string
	TokenID         string
	TokenSecretHash string
	CorrelationID   string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	LastActivityAt  *time.Time // advisory; does not gate validity
	CreatedByIP     string
	Device          DeviceInfo
	RevokedAt       *time.Time       // nil while active; terminal once set
	RevokedReason   RevocationReason // empty while active
	ReplacedBy      string           // successor correlation id when reason is rotated
}

// Active reports whether the session is valid at the given time:
// not revoked and not past its expiry.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
