package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterPartner registers store management and the reservation review
// queue under /v1/partner.  All routes require the PARTNER role.
func RegisterPartner(e *echo.Echo, h Handlers, g Guards) {
	p := authed(e, "/v1/partner", g, middleware.RequireRole(model.RolePartner))

	p.POST("/stores", h.Stores.Register)
	p.GET("/stores/:id", h.Stores.PartnerDetail)
	p.PUT("/stores/:id", h.Stores.Update)
	p.DELETE("/stores/:id", h.Stores.Withdraw)
	p.GET("/stores/:id/reservations", h.Reservations.PartnerList)

	p.PUT("/reservations/:id/decision", h.Reservations.Decide)
	p.POST("/reservations/confirm/:code", h.Reservations.Confirm)
}
