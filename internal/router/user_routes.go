package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterUser registers endpoints open to any authenticated user.
// Ownership checks happen in the services.
func RegisterUser(e *echo.Echo, h Handlers, g Guards) {
	v1 := authed(e, "/v1", g)
	booking := g.chain(g.ReservationLimit)

	v1.GET("/me", h.Users.Me)
	v1.PUT("/users/me", h.Users.UpdateMe)
	v1.DELETE("/users/me", h.Users.DeleteMe)
	v1.POST("/users/me/partner", h.Users.BecomePartner)

	v1.POST("/reservations", h.Reservations.Create, booking...)
	v1.GET("/reservations/me", h.Reservations.Mine)
	v1.GET("/reservations/:id", h.Reservations.Detail)
	v1.PUT("/reservations/:id/time", h.Reservations.Reschedule, booking...)
	v1.DELETE("/reservations/:id", h.Reservations.Cancel)
	v1.GET("/reservations/:id/qrcode", h.Reservations.QRCode)

	v1.POST("/reviews", h.Reviews.Create)
	v1.PUT("/reviews/:id", h.Reviews.Update)
	v1.DELETE("/reviews/:id", h.Reviews.Delete)
}
