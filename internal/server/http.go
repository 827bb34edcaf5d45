// Package server wires the HTTP surface: router, middleware, handlers.
package server

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	healthhandler "session-control-plane/internal/health/handler"
	identityhandler "session-control-plane/internal/identity/handler"
	"session-control-plane/internal/server/middleware"
	sessionhandler "session-control-plane/internal/session/handler"
	sessionservice "session-control-plane/internal/session/service"
)

// Deps are the dependencies the router needs.
type Deps struct {
	Auth          identityhandler.AuthService
	Lifecycle     *sessionservice.Lifecycle
	DB            *sql.DB
	SecureCookies bool
	ServiceName   string
}

// New builds the echo instance with all routes and middleware registered.
func New(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Telemetry(deps.ServiceName))

	var pinger healthhandler.Pinger
	if deps.DB != nil {
		pinger = deps.DB
	}
	healthhandler.NewHealthHandler(pinger).Register(e)

	requireAuth := middleware.RequireAuth(deps.Lifecycle)
	v1 := e.Group("/v1")
	identityhandler.NewAuthHandler(deps.Auth, deps.Lifecycle, deps.SecureCookies).Register(v1, requireAuth)
	sessionhandler.NewSessionHandler(deps.Lifecycle).Register(v1, requireAuth)
	return e
}
