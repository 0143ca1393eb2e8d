// Package middleware holds the Echo middleware for bearer authentication and
// request logging.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/service"
)

// Authenticator resolves a raw bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (service.Principal, error)
}

// BearerAuth returns an Echo middleware that requires a bearer token backed
// by a live session.  The resolved principal is stored in the request
// context for handlers (see PrincipalFrom).
func BearerAuth(a Authenticator, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthenticated(c)
			}
			p, err := a.Authenticate(c.Request().Context(), raw)
			if errors.Is(err, service.ErrUnauthenticated) {
				return unauthenticated(c)
			}
			if err != nil {
				log.Error("bearer authentication failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"result": 0, "message": "Server Error"})
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header.  The scheme
// is matched case-insensitively and the separating space may be missing.
func bearerToken(header string) (string, bool) {
	const scheme = "bearer"
	header = strings.TrimSpace(header)
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(scheme):])
	return tok, tok != ""
}

func unauthenticated(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"result": 0, "message": "Unauthenticated."})
}
