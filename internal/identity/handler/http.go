// Package handler exposes the auth flows over HTTP.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"session-control-plane/internal/server/middleware"
	sessiondomain "session-control-plane/internal/session/domain"
	sessionservice "session-control-plane/internal/session/service"
	userdomain "session-control-plane/internal/user/domain"

	identityservice "session-control-plane/internal/identity/service"
)

const refreshCookieName = "refresh_token"

// AuthService is the service surface needed by the auth handler.
type AuthService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string, client sessionservice.ClientContext) (*sessionservice.Credentials, error)
	Logout(ctx context.Context, correlationID string) error
	LogoutAll(ctx context.Context, subjectID string) (int64, error)
	DeleteAccount(ctx context.Context, subjectID string) error
	GetUser(ctx context.Context, id string) (*userdomain.User, error)
}

// Rotator is the lifecycle surface needed for the refresh endpoint.
type Rotator interface {
	Rotate(ctx context.Context, refreshToken string, client sessionservice.ClientContext) (*sessionservice.Credentials, error)
}

// AuthHandler serves /v1/auth/* and /v1/me.
type AuthHandler struct {
	auth         AuthService
	rotator      Rotator
	secureCookie bool
}

// NewAuthHandler returns an AuthHandler. secureCookie should be true outside
// local development so the refresh cookie is HTTPS-only.
func NewAuthHandler(auth AuthService, rotator Rotator, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, rotator: rotator, secureCookie: secureCookie}
}

// Register mounts the public and authenticated auth routes on the group.
func (h *AuthHandler) Register(v1 *echo.Group, requireAuth echo.MiddlewareFunc) {
	auth := v1.Group("/auth")
	auth.POST("/register", h.handleRegister)
	auth.POST("/login", h.handleLogin)
	auth.POST("/refresh", h.handleRefresh)
	auth.POST("/logout", h.handleLogout, requireAuth)
	auth.POST("/logout_all", h.handleLogoutAll, requireAuth)
	v1.GET("/me", h.handleMe, requireAuth)
	v1.DELETE("/me", h.handleDeleteAccount, requireAuth)
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken     string `json:"accessToken"`
	AccessExpiresAt string `json:"accessExpiresAt"`
	RefreshToken    string `json:"refreshToken"`
	SubjectID       string `json:"subjectId"`
}

func (h *AuthHandler) handleRegister(c echo.Context) error {
	var body credentialsBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "malformed request body")
	}
	userID, err := h.auth.Register(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, identityservice.ErrEmailAlreadyRegistered) {
			return c.JSON(http.StatusConflict, middleware.ErrorBody{Code: "email_taken", Message: err.Error()})
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"userId": userID})
}

func (h *AuthHandler) handleLogin(c echo.Context) error {
	var body credentialsBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "malformed request body")
	}
	creds, err := h.auth.Login(c.Request().Context(), body.Email, body.Password, clientContext(c))
	if err != nil {
		if errors.Is(err, identityservice.ErrInvalidCredentials) {
			return middleware.Unauthorized(c, "invalid_credentials")
		}
		return lifecycleError(c, err)
	}
	h.setRefreshCookie(c, creds.RefreshToken, creds.SessionExpiresAt)
	return c.JSON(http.StatusOK, toTokenResponse(creds))
}

func (h *AuthHandler) handleRefresh(c echo.Context) error {
	token := refreshTokenFrom(c)
	if token == "" {
		return badRequest(c, "refresh token missing")
	}
	creds, err := h.rotator.Rotate(c.Request().Context(), token, clientContext(c))
	if err != nil {
		// Drop the cookie only when the token is dead; a transient store
		// failure should leave the client able to retry.
		if !errors.Is(err, sessionservice.ErrStoreUnavailable) {
			h.clearRefreshCookie(c)
		}
		return lifecycleError(c, err)
	}
	h.setRefreshCookie(c, creds.RefreshToken, creds.SessionExpiresAt)
	return c.JSON(http.StatusOK, toTokenResponse(creds))
}

func (h *AuthHandler) handleLogout(c echo.Context) error {
	id := middleware.Identity(c)
	if err := h.auth.Logout(c.Request().Context(), id.CorrelationID); err != nil {
		return lifecycleError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) handleLogoutAll(c echo.Context) error {
	id := middleware.Identity(c)
	n, err := h.auth.LogoutAll(c.Request().Context(), id.SubjectID)
	if err != nil {
		return lifecycleError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, map[string]int64{"revoked": n})
}

func (h *AuthHandler) handleMe(c echo.Context) error {
	id := middleware.Identity(c)
	user, err := h.auth.GetUser(c.Request().Context(), id.SubjectID)
	if err != nil {
		return lifecycleError(c, err)
	}
	if user == nil {
		return middleware.Unauthorized(c, "unauthorized")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"subjectId": user.ID,
		"email":     user.Email,
	})
}

func (h *AuthHandler) handleDeleteAccount(c echo.Context) error {
	id := middleware.Identity(c)
	if err := h.auth.DeleteAccount(c.Request().Context(), id.SubjectID); err != nil {
		return lifecycleError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// refreshTokenFrom reads the refresh token from the cookie, falling back to
// the request body for clients that do not use cookies.
func refreshTokenFrom(c echo.Context) string {
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var body refreshBody
	if err := c.Bind(&body); err != nil {
		return ""
	}
	return body.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/v1/auth",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func toTokenResponse(creds *sessionservice.Credentials) tokenResponse {
	return tokenResponse{
		AccessToken:     creds.AccessToken,
		AccessExpiresAt: creds.AccessExpiresAt.UTC().Format(time.RFC3339),
		RefreshToken:    creds.RefreshToken,
		SubjectID:       creds.SubjectID,
	}
}

func clientContext(c echo.Context) sessionservice.ClientContext {
	req := c.Request()
	return sessionservice.ClientContext{
		IP: c.RealIP(),
		Device: sessiondomain.DeviceInfo{
			ClientType:  req.Header.Get("X-Client-Type"),
			DeviceModel: req.Header.Get("X-Device-Model"),
			OSName:      req.Header.Get("X-OS-Name"),
			OSVersion:   req.Header.Get("X-OS-Version"),
			UserAgent:   req.UserAgent(),
		},
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, middleware.ErrorBody{Code: "bad_request", Message: message})
}

// lifecycleError maps lifecycle sentinels to HTTP responses.
func lifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, sessionservice.ErrMalformedCredential):
		return badRequest(c, "malformed credential")
	case errors.Is(err, sessionservice.ErrExpiredCredential):
		return middleware.Unauthorized(c, "expired_credential")
	case errors.Is(err, sessionservice.ErrSessionInvalid),
		errors.Is(err, sessionservice.ErrSecurityBreach):
		return middleware.Unauthorized(c, "unauthorized")
	case errors.Is(err, sessionservice.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, middleware.ErrorBody{Code: "store_unavailable", Message: "try again later"})
	default:
		log.Printf("http: unhandled lifecycle error: %v", err)
		return c.JSON(http.StatusInternalServerError, middleware.ErrorBody{Code: "internal", Message: "internal error"})
	}
}
