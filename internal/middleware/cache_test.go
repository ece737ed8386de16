package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/trading-network/internal/config"
	"github.com/iliyamo/trading-network/internal/policy"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

// asUser stands in for JWTAuth, reading the caller from a test header.
func asUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if uid, err := strconv.ParseUint(c.Request().Header.Get("X-User"), 10, 64); err == nil {
			c.Set(ctxUserID, uid)
		}
		return next(c)
	}
}

func serve(e *echo.Echo, method, target string, uid uint64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if uid != 0 {
		req.Header.Set("X-User", strconv.FormatUint(uid, 10))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRedisCacheServesRepeatedGet(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	calls := 0
	e.GET("/nodes/", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"count": calls})
	}, asUser, NewRedisCache(cacheConfig(), rdb, zerolog.Nop()))

	first := serve(e, http.MethodGet, "/nodes/?country=DE", 1)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/nodes/?country=DE", 1)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)

	other := serve(e, http.MethodGet, "/nodes/?country=DE", 2)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"count":2}`, other.Body.String())
	assert.Equal(t, 2, calls)
}

func TestRedisCacheStoresOnlyOK(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	mw := []echo.MiddlewareFunc{asUser, NewRedisCache(cacheConfig(), rdb, zerolog.Nop())}
	e.GET("/missing/", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"detail": "Not found."})
	}, mw...)
	e.GET("/broken/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError)
	}, mw...)

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/missing/", 1)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/broken/", 1).Code)
	assert.Empty(t, mr.Keys())
}

func TestRedisCacheSkipsOversizedBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheConfig()
	cfg.MaxBodyBytes = 16
	e := echo.New()
	mw := []echo.MiddlewareFunc{asUser, NewRedisCache(cfg, rdb, zerolog.Nop())}
	e.GET("/big/", func(c echo.Context) error {
		return c.String(http.StatusOK, strings.Repeat("x", 64))
	}, mw...)
	e.GET("/small/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, mw...)

	rec := serve(e, http.MethodGet, "/big/", 1)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Body.String(), 64)
	assert.Empty(t, mr.Keys())

	serve(e, http.MethodGet, "/small/", 1)
	assert.Len(t, mr.Keys(), 1)
}

func TestRedisCacheIgnoresWrites(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheConfig()
	cfg.Methods[http.MethodPost] = true
	e := echo.New()
	calls := 0
	e.POST("/nodes/", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": calls})
	}, asUser, NewRedisCache(cfg, rdb, zerolog.Nop()))

	serve(e, http.MethodPost, "/nodes/", 1)
	rec := serve(e, http.MethodPost, "/nodes/", 1)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
	assert.Empty(t, mr.Keys())
}

func TestPurgeOnWrite(t *testing.T) {
	seed := func(t *testing.T, mr *miniredis.Miniredis) {
		require.NoError(t, mr.Set("cache:aa", "1"))
		require.NoError(t, mr.Set("cache:bb", "2"))
		require.NoError(t, mr.Set("rl:user:1", "3"))
	}
	routes := func(rdb *redis.Client) *echo.Echo {
		e := echo.New()
		mw := []echo.MiddlewareFunc{asUser, NewRedisCache(cacheConfig(), rdb, zerolog.Nop()), PurgeOnWrite(cacheConfig(), rdb, zerolog.Nop())}
		e.POST("/nodes/", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, mw...)
		e.PUT("/nodes/1/", func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, echo.Map{"name": []string{"This field is required."}})
		}, mw...)
		e.DELETE("/nodes/2/", func(c echo.Context) error { return echo.ErrForbidden }, mw...)
		e.GET("/nodes/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, mw...)
		return e
	}

	t.Run("SuccessfulWritePurgesPrefix", func(t *testing.T) {
		mr, rdb := newRedis(t)
		seed(t, mr)
		assert.Equal(t, http.StatusCreated, serve(routes(rdb), http.MethodPost, "/nodes/", 1).Code)
		assert.Equal(t, []string{"rl:user:1"}, mr.Keys())
	})

	t.Run("RejectedWriteKeepsEntries", func(t *testing.T) {
		mr, rdb := newRedis(t)
		seed(t, mr)
		e := routes(rdb)
		assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPut, "/nodes/1/", 1).Code)
		assert.Equal(t, http.StatusForbidden, serve(e, http.MethodDelete, "/nodes/2/", 1).Code)
		assert.Len(t, mr.Keys(), 3)
	})

	t.Run("ReadsKeepEntries", func(t *testing.T) {
		mr, rdb := newRedis(t)
		seed(t, mr)
		serve(routes(rdb), http.MethodGet, "/nodes/", 1)
		assert.True(t, mr.Exists("cache:aa"))
		assert.True(t, mr.Exists("cache:bb"))
	})
}

func TestRedisCacheNeverServesBlockedActor(t *testing.T) {
	_, rdb := newRedis(t)
	loader := stubLoader{1: {UserID: 1, Role: policy.RoleUser, IsActive: true}}
	e := echo.New()
	calls := 0
	e.GET("/nodes/", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"count": 1})
	}, asUser, LoadActor(loader), NewRedisCache(cacheConfig(), rdb, zerolog.Nop()))

	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/nodes/", 1).Header().Get("X-Cache"))
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/nodes/", 1).Header().Get("X-Cache"))

	loader[1].IsBlocked = true
	rec := serve(e, http.MethodGet, "/nodes/", 1)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NotContains(t, rec.Body.String(), "count")
	assert.Equal(t, 1, calls)
}
