// Package handler holds the HTTP handlers of the trading network API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/trading-network/internal/metrics"
	"github.com/iliyamo/trading-network/internal/service"
)

const requestTimeout = 5 * time.Second

// reqCtx bounds every store call made on behalf of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses the :id route parameter.  Malformed ids cannot name an
// existing row, so they are reported as not found.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrNotFound
	}
	return id, nil
}

// pageParam reads ?page=, defaulting to the first page.
func pageParam(c echo.Context) (int, error) {
	raw := strings.TrimSpace(c.QueryParam("page"))
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, service.ErrInvalidPage
	}
	return n, nil
}

// bind decodes the request body, reporting malformed JSON as a validation
// error on the offending body.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		msg := "Malformed request body."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
		}
		return &service.ValidationError{Fields: map[string]string{"body": msg}}
	}
	return nil
}

// fail writes the response for err.  Client errors are logged at debug,
// everything else at error level with a generic body.
func fail(c echo.Context, err error) error {
	log := zerolog.Ctx(c.Request().Context())

	var ve *service.ValidationError
	status, body := http.StatusInternalServerError, echo.Map{"error": "internal server error"}
	switch {
	case errors.As(err, &ve):
		status, body = http.StatusBadRequest, echo.Map{"errors": ve.Fields}
	case errors.Is(err, service.ErrForbidden):
		metrics.PolicyDenials.WithLabelValues(resourceOf(c.Path())).Inc()
		status, body = http.StatusForbidden, echo.Map{"error": "forbidden"}
	case errors.Is(err, service.ErrInvalidPage):
		status, body = http.StatusNotFound, echo.Map{"error": "invalid page"}
	case errors.Is(err, service.ErrNotFound):
		status, body = http.StatusNotFound, echo.Map{"error": "not found"}
	case errors.Is(err, service.ErrConflict):
		status, body = http.StatusConflict, echo.Map{"error": "already exists"}
	case errors.Is(err, service.ErrInvalidCredentials):
		status, body = http.StatusUnauthorized, echo.Map{"error": "invalid credentials"}
	case errors.Is(err, service.ErrInactive):
		status, body = http.StatusForbidden, echo.Map{"error": "account is inactive"}
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	return c.JSON(status, body)
}

func resourceOf(path string) string {
	switch {
	case strings.Contains(path, "network-nodes"):
		return "node"
	case strings.Contains(path, "products"):
		return "product"
	default:
		return "user"
	}
}

// listResponse is the paginated collection envelope.
type listResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func paginated[T, R any](c echo.Context, p service.Page[T], conv func(T) R) error {
	out := listResponse[R]{Count: p.Count, Results: make([]R, 0, len(p.Items))}
	for _, it := range p.Items {
		out.Results = append(out.Results, conv(it))
	}
	if p.HasNext() {
		u := pageURL(c, p.Number+1)
		out.Next = &u
	}
	if p.HasPrevious() {
		u := pageURL(c, p.Number-1)
		out.Previous = &u
	}
	return c.JSON(http.StatusOK, out)
}

func same[T any](v T) T { return v }

// pageURL rebuilds the request URL pointing at page n.  The first page
// carries no page parameter.
func pageURL(c echo.Context, n int) string {
	r := c.Request()
	u := *r.URL
	q := u.Query()
	if n <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	return c.Scheme() + "://" + r.Host + u.RequestURI()
}
