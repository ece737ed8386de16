package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trading-network/internal/policy"
	"github.com/iliyamo/trading-network/internal/repository"
)

// ActorLoader resolves the current state of a user.
type ActorLoader interface {
	Actor(ctx context.Context, userID uint64) (*policy.Actor, error)
}

// LoadActor reloads the authenticated user on every request so role,
// block and organization changes apply immediately, whatever the token
// says.  Blocked and inactive users are turned away here.
func LoadActor(loader ActorLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserID(c)
			if uid == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			a, err := loader.Actor(ctx, uid)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
				}
				return err
			}
			if a.IsBlocked || !a.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account is blocked or inactive"})
			}
			c.Set(ctxActor, a)
			return next(c)
		}
	}
}

// Actor returns the actor loaded for the request, or nil.
func Actor(c echo.Context) *policy.Actor {
	a, _ := c.Get(ctxActor).(*policy.Actor)
	return a
}

// identity names the caller in cache and rate limit keys.
func identity(c echo.Context) string {
	if uid := UserID(c); uid != 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
