package middleware

// identity.go stores and retrieves the authenticated principal on the Echo
// context.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-api/internal/service"
)

const principalKey = "auth.principal"

func setPrincipal(c echo.Context, p service.Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.User.ID)
}

// PrincipalFrom returns the principal set by BearerAuth.  ok is false on
// routes that are not behind the middleware.
func PrincipalFrom(c echo.Context) (service.Principal, bool) {
	p, ok := c.Get(principalKey).(service.Principal)
	return p, ok
}
