// Package handler exposes session introspection over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"session-control-plane/internal/server/middleware"
	"session-control-plane/internal/session/domain"
	sessionservice "session-control-plane/internal/session/service"
)

// SessionLister is the lifecycle surface needed by the session handler.
type SessionLister interface {
	ListSessions(ctx context.Context, subjectID string) ([]*domain.Session, error)
}

// SessionHandler serves /v1/sessions.
type SessionHandler struct {
	sessions SessionLister
}

// NewSessionHandler returns a SessionHandler.
func NewSessionHandler(sessions SessionLister) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Register mounts the session routes on the group.
func (h *SessionHandler) Register(v1 *echo.Group, requireAuth echo.MiddlewareFunc) {
	v1.GET("/sessions", h.handleList, requireAuth)
}

type sessionView struct {
	ID             string `json:"id"`
	IssuedAt       string `json:"issuedAt"`
	ExpiresAt      string `json:"expiresAt"`
	LastActivityAt string `json:"lastActivityAt,omitempty"`
	IP             string `json:"ip,omitempty"`
	ClientType     string `json:"clientType,omitempty"`
	DeviceModel    string `json:"deviceModel,omitempty"`
	OSName         string `json:"osName,omitempty"`
	OSVersion      string `json:"osVersion,omitempty"`
	UserAgent      string `json:"userAgent,omitempty"`
	Current        bool   `json:"current"`
}

func (h *SessionHandler) handleList(c echo.Context) error {
	id := middleware.Identity(c)
	list, err := h.sessions.ListSessions(c.Request().Context(), id.SubjectID)
	if err != nil {
		if errors.Is(err, sessionservice.ErrStoreUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, middleware.ErrorBody{Code: "store_unavailable", Message: "try again later"})
		}
		return c.JSON(http.StatusInternalServerError, middleware.ErrorBody{Code: "internal", Message: "internal error"})
	}
	views := make([]sessionView, 0, len(list))
	for _, s := range list {
		views = append(views, toView(s, id.SessionID))
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": views})
}

func toView(s *domain.Session, currentSessionID string) sessionView {
	v := sessionView{
		ID:          s.ID,
		IssuedAt:    s.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:   s.ExpiresAt.UTC().Format(time.RFC3339),
		IP:          s.CreatedByIP,
		ClientType:  s.Device.ClientType,
		DeviceModel: s.Device.DeviceModel,
		OSName:      s.Device.OSName,
		OSVersion:   s.Device.OSVersion,
		UserAgent:   s.Device.UserAgent,
		Current:     s.ID == currentSessionID,
	}
	if s.LastActivityAt != nil {
		v.LastActivityAt = s.LastActivityAt.UTC().Format(time.RFC3339)
	}
	return v
}
