// Package router builds the Echo instance and registers the API routes.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/handler"
	"github.com/iliyamo/user-auth-api/internal/middleware"
)

// New builds an Echo instance with the shared middleware stack and error
// handler, and registers every route.
func New(a *handler.AuthHandler, prefix string, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	RegisterRoutes(e)
	RegisterAuth(e, a, prefix, log)
	return e
}

// RegisterRoutes registers routes that do not require authentication and
// sit outside the API prefix.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Home)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints under prefix (e.g. /api/user).
// Logout and me require a bearer token backed by a live session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, prefix string, log *zap.Logger) {
	g := e.Group(prefix)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/forgot/password", a.ForgotPassword)
	g.POST("/reset/password/:token", a.ResetPassword)

	auth := middleware.BearerAuth(a.Auth, log)
	g.POST("/logout", a.Logout, auth)
	g.GET("/me", a.Me, auth)
}
