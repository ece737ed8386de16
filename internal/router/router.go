// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/trading-network/internal/config"
	"github.com/iliyamo/trading-network/internal/handler"
	"github.com/iliyamo/trading-network/internal/middleware"
)

// Deps collects everything the routes need.
type Deps struct {
	JWTSecret string
	Logger    zerolog.Logger
	Redis     *redis.Client // nil disables caching and rate limiting
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Actors    middleware.ActorLoader

	Nodes    *handler.NodeHandler
	Products *handler.ProductHandler
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Every route is registered with a trailing slash; requests without
	// one are normalized before routing.
	e.Pre(echomw.AddTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.Metrics())

	RegisterRoutes(e)
	RegisterTrading(e, d)
	RegisterUsers(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz/", handler.Health)
	e.GET("/metrics/", handler.Metrics())
}

// authenticated returns the chain shared by every protected group: token
// check, actor reload, then the response cache and its invalidation.
func authenticated(d Deps) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.LoadActor(d.Actors),
		middleware.NewRedisCache(d.Cache, d.Redis, d.Logger),
		middleware.PurgeOnWrite(d.Cache, d.Redis, d.Logger),
	}
}

// RegisterTrading registers the network node and product collections.
func RegisterTrading(e *echo.Echo, d Deps) {
	g := e.Group("/trading/api", authenticated(d)...)

	g.GET("/network-nodes/", d.Nodes.List)
	g.POST("/network-nodes/", d.Nodes.Create)
	g.GET("/network-nodes/:id/", d.Nodes.Get)
	g.PUT("/network-nodes/:id/", d.Nodes.Replace)
	g.PATCH("/network-nodes/:id/", d.Nodes.Patch)
	g.DELETE("/network-nodes/:id/", d.Nodes.Delete)

	g.GET("/products/", d.Products.List)
	g.POST("/products/", d.Products.Create)
	g.GET("/products/:id/", d.Products.Get)
	g.PUT("/products/:id/", d.Products.Replace)
	g.PATCH("/products/:id/", d.Products.Patch)
	g.DELETE("/products/:id/", d.Products.Delete)
}

// RegisterUsers registers registration, sessions, profiles and user
// administration.  The public account endpoints sit behind the rate
// limiter.
func RegisterUsers(e *echo.Echo, d Deps) {
	limited := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)

	e.GET("/users/email-confirm/:token/", d.Auth.Confirm, limited)

	pub := e.Group("/users/api", limited)
	pub.POST("/register/", d.Auth.Register)
	pub.POST("/login/", d.Auth.Login)
	pub.POST("/token/refresh/", d.Auth.Refresh)
	pub.POST("/logout/", d.Auth.Logout, middleware.OptionalJWT(d.JWTSecret))

	g := e.Group("/users/api", authenticated(d)...)
	g.GET("/my-profile/", d.Users.MyProfile)
	g.PUT("/my-profile/update/", d.Users.UpdateMyProfile)
	g.PATCH("/my-profile/update/", d.Users.UpdateMyProfile)
	g.PUT("/my-profile/telegram/", d.Users.Telegram)
	g.GET("/profile/:id/", d.Users.Profile)
	g.PUT("/profile/:id/update/", d.Users.UpdateProfile)
	g.PATCH("/profile/:id/update/", d.Users.UpdateProfile)

	admin := g.Group("/users", middleware.RequirePrivileged())
	admin.GET("/", d.Users.List)
	admin.POST("/:id/toggle-block/", d.Users.ToggleBlock)
	admin.PUT("/:id/role/", d.Users.SetRole)
	admin.PUT("/:id/organization/", d.Users.SetOrganization)
}
