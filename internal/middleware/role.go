package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequirePrivileged admits only staff, superusers and managers.  It must
// run after LoadActor.
func RequirePrivileged() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !Actor(c).Privileged() {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
