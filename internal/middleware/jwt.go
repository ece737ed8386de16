package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trading-network/internal/utils"
)

// Context keys set by the authentication middleware.
const (
	ctxUserID = "user_id"
	ctxActor  = "actor"
)

// JWTAuth validates a Bearer access token and stores its subject under
// "user_id" as a uint64.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			uid, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, uid)
			return next(c)
		}
	}
}

// OptionalJWT behaves like JWTAuth but lets requests without a usable
// token through anonymously.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if uid, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(ctxUserID, uid)
				}
			}
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// UserID returns the authenticated subject, or zero.
func UserID(c echo.Context) uint64 {
	uid, _ := c.Get(ctxUserID).(uint64)
	return uid
}
