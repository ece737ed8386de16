package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger attaches a request-scoped logger to the request context and
// writes one access line per request.  It expects echo's RequestID
// middleware to have run.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)

			l := logger.With().Str("request_id", reqID).Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			ev := l.Info()
			if status := c.Response().Status; status >= 500 {
				ev = l.Error().Err(err)
			}
			ev.Str("method", req.Method).
				Str("path", c.Path()).
				Int("status", c.Response().Status).
				Uint64("user_id", UserID(c)).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
