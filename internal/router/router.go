// Package router wires handlers onto echo routes.  Public, authenticated
// and partner routes are registered by separate functions so main can
// compose them.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
)

// Handlers bundles every HTTP handler of the API.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Stores       *handler.StoreHandler
	Reservations *handler.ReservationHandler
	Reviews      *handler.ReviewHandler
}

// Guards are the cross-cutting middlewares applied to /v1 routes.  A nil
// guard is skipped.
type Guards struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc

	// ReservationLimit is the per-user bucket on reservation writes.
	ReservationLimit echo.MiddlewareFunc
}

func (g Guards) chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes registers the operational endpoints: health check and
// Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers token issuing endpoints under /v1/auth.  None of
// them require an access token; logout accepts one optionally.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	auth := e.Group("/v1/auth", g.chain(g.RateLimit)...)
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/refresh-access", a.RefreshAccess)
	auth.POST("/logout", a.Logout)
}

// Register wires every route of the API.
func Register(e *echo.Echo, h Handlers, g Guards, db handler.Pinger) {
	RegisterRoutes(e, db)
	RegisterAuth(e, h.Auth, g)
	RegisterPublic(e, h, g)
	RegisterUser(e, h, g)
	RegisterPartner(e, h, g)
}

// authed builds a /v1 sub-group behind JWTAuth.  The rate limiter runs
// after authentication so buckets are keyed by user.
func authed(e *echo.Echo, prefix string, g Guards, extra ...echo.MiddlewareFunc) *echo.Group {
	mws := append([]echo.MiddlewareFunc{middleware.JWTAuth(g.JWTSecret), g.RateLimit}, extra...)
	return e.Group(prefix, g.chain(mws...)...)
}
