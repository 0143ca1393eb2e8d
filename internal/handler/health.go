package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes with a plain "ok".  It does not touch the
// database, so a slow store never fails the probe.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Home answers GET / in the response envelope.
func Home(c echo.Context) error {
	return ok(c, http.StatusOK, nil, "ok")
}
