package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	tokenIDBytes     = 16
	tokenSecretBytes = 32
)

// NewTokenID returns a random token id for a refresh token. The id is the
// lookup half of the token; it is stored in clear and indexed.
func NewTokenID() (string, error) {
	return randomURLString(tokenIDBytes)
}

// NewTokenSecret returns a random token secret for a refresh token. Only an
// Argon2id digest of the secret is ever persisted.
func NewTokenSecret() (string, error) {
	return randomURLString(tokenSecretBytes)
}

// NewCorrelationID returns a random correlation id binding an access
// credential's jti to its issuing session.
func NewCorrelationID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// EncodeRefreshToken joins the token id and secret into the opaque wire form
// handed to clients.
func EncodeRefreshToken(tokenID, secret string) string {
	return tokenID + "." + secret
}

// SplitRefreshToken splits a wire-form refresh token back into its id and
// secret halves. ok is false if either half is missing.
func SplitRefreshToken(token string) (tokenID, secret string, ok bool) {
	tokenID, secret, ok = strings.Cut(token, ".")
	if !ok || tokenID == "" || secret == "" {
		return "", "", false
	}
	return tokenID, secret, true
}

func randomURLString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
