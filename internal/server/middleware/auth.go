// Package middleware holds the echo middleware shared by the HTTP handlers.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	sessionservice "session-control-plane/internal/session/service"
)

const (
	identityKey  = "identity"
	bearerPrefix = "bearer "
)

// Authenticator is the lifecycle surface needed by the auth middleware.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*sessionservice.Identity, error)
}

// ErrorBody is the JSON error shape returned by the middleware and handlers.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequireAuth returns middleware that authenticates the Bearer access
// credential on every request: signature and expiry first, then a live-check
// of the backing session. On success the verified identity is attached to
// the echo context for handlers to read via Identity.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return Unauthorized(c, "no_credential")
			}
			id, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, sessionservice.ErrExpiredCredential):
					return Unauthorized(c, "expired_credential")
				case errors.Is(err, sessionservice.ErrStoreUnavailable):
					return c.JSON(http.StatusServiceUnavailable, ErrorBody{Code: "store_unavailable", Message: "try again later"})
				default:
					return Unauthorized(c, "unauthorized")
				}
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// Identity returns the authenticated identity set by RequireAuth, or nil if
// the request did not pass through it.
func Identity(c echo.Context) *sessionservice.Identity {
	id, _ := c.Get(identityKey).(*sessionservice.Identity)
	return id
}

// Unauthorized writes the standard 401 body with the given error code.
func Unauthorized(c echo.Context, code string) error {
	return c.JSON(http.StatusUnauthorized, ErrorBody{Code: code, Message: "missing or invalid authorization"})
}

// extractBearer returns the Bearer token from an Authorization header value,
// or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
