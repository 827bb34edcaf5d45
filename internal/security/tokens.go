package security

import (
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrCredentialExpired is returned when a credential's signature is valid
	// but its expiry has passed.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrCredentialMalformed is returned when a credential cannot be parsed
	// or is missing required claims.
	ErrCredentialMalformed = errors.New("credential malformed")
	// ErrBadSignature is returned when a credential's signature does not
	// verify against the configured public key.
	ErrBadSignature = errors.New("credential signature invalid")
)

// AccessClaims holds JWT claims for the access credential. The jti carries
// the correlation id binding the credential to its issuing session.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and verifies JWT access credentials using RS256 or
// ES256 (private/public key).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private
// key (RS256 or ES256). issuer and audience are set on claims and validated
// on verify.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
	}
}

// Issue issues a short-lived access credential for the given subject, with
// the session's correlation id as the jti. Returns the signed token and its
// expiration time.
func (p *TokenProvider) Issue(subjectID, correlationID string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        correlationID,
			Subject:   subjectID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	alg := KeyAlg(p.privateKey.Public())
	if alg == "" {
		return "", ErrCredentialMalformed
	}
	t := jwt.NewWithClaims(jwt.GetSigningMethod(alg), claims)
	return t.SignedString(p.privateKey)
}

// Verify parses and verifies an access credential (signature, exp, iss, aud).
// Returns the subject id and the correlation id (jti), or one of
// ErrCredentialExpired, ErrBadSignature, ErrCredentialMalformed.
func (p *TokenProvider) Verify(tokenString string) (subjectID, correlationID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrCredentialMalformed
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", "", ErrCredentialExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", "", ErrBadSignature
		default:
			return "", "", ErrCredentialMalformed
		}
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return "", "", ErrCredentialMalformed
	}
	if claims.Issuer != p.issuer {
		return "", "", ErrCredentialMalformed
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return "", "", ErrCredentialMalformed
	}
	if claims.Subject == "" || claims.ID == "" {
		return "", "", ErrCredentialMalformed
	}
	return claims.Subject, claims.ID, nil
}
