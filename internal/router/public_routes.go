package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterPublic registers the unauthenticated browse endpoints.  Store
// listing and detail go through the response cache.
func RegisterPublic(e *echo.Echo, h Handlers, g Guards) {
	pub := e.Group("/v1", g.chain(g.RateLimit)...)
	cached := g.chain(g.Cache)

	pub.GET("/stores", h.Stores.List, cached...)
	pub.GET("/stores/:id", h.Stores.Detail, cached...)
	pub.GET("/stores/:id/rating", h.Stores.Rating)
	pub.GET("/stores/:id/reservations", h.Reservations.StoreSlots)
	pub.GET("/stores/:id/reviews", h.Reviews.ByStore)
	pub.GET("/users/:username", h.Users.Profile)
	pub.GET("/users/:username/reviews", h.Reviews.ByUser)
}
