package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// Reservations is the reservation service as seen by HTTP.
type Reservations interface {
	Create(ctx context.Context, caller, storeID uint64, at time.Time) (model.Reservation, error)
	Reschedule(ctx context.Context, caller, id uint64, at time.Time) (model.Reservation, error)
	Cancel(ctx context.Context, caller, id uint64) (model.Reservation, error)
	Decide(ctx context.Context, caller, id uint64, decision string) (model.Reservation, error)
	ConfirmByCode(ctx context.Context, partner uint64, code string) (model.Reservation, error)
	Detail(ctx context.Context, caller, id uint64) (model.Reservation, error)
	ConfirmationQR(ctx context.Context, caller, id uint64) ([]byte, error)
	ListForPartner(ctx context.Context, caller, storeID uint64, q service.ReservationQuery) (service.ReservationPage, error)
	ListForStore(ctx context.Context, storeID uint64, q service.ReservationQuery) (service.ReservationPage, error)
	ListMine(ctx context.Context, caller uint64, q service.ReservationQuery) (service.ReservationPage, error)
}

// ReservationHandler serves the user's reservation endpoints, the
// partner's review queue and the public availability view.
type ReservationHandler struct {
	Reservations Reservations
}

func NewReservationHandler(r Reservations) *ReservationHandler {
	return &ReservationHandler{Reservations: r}
}

type createReservationReq struct {
	StoreID         uint64    `json:"store_id" validate:"required"`
	ReservationTime time.Time `json:"reservation_time" validate:"required"`
}

type rescheduleReq struct {
	ReservationTime time.Time `json:"reservation_time" validate:"required"`
}

type decisionReq struct {
	Decision string `json:"decision" validate:"required"`
}

// reservationView is the reservation as its owner or partner sees it.  The
// confirmation code is shown to the owner only; the partner learns it when
// the guest presents it.
type reservationView struct {
	ID               uint64    `json:"id"`
	UserID           uint64    `json:"user_id"`
	StoreID          uint64    `json:"store_id"`
	ReservationTime  time.Time `json:"reservation_time"`
	Status           string    `json:"status"`
	ConfirmationCode string    `json:"confirmation_code,omitempty"`
	Reviewed         bool      `json:"reviewed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func viewFor(caller uint64, r model.Reservation) reservationView {
	v := reservationView{
		ID:              r.ID,
		UserID:          r.UserID,
		StoreID:         r.StoreID,
		ReservationTime: r.ReservationTime,
		Status:          string(r.Status),
		Reviewed:        r.Reviewed,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if caller == r.UserID {
		v.ConfirmationCode = r.ConfirmationCode
	}
	return v
}

// slotView is the public view of a taken slot.
type slotView struct {
	ID              uint64    `json:"id"`
	ReservationTime time.Time `json:"reservation_time"`
	Status          string    `json:"status"`
}

func (h *ReservationHandler) query(c echo.Context) (service.ReservationQuery, error) {
	page, err := pageFrom(c)
	if err != nil {
		return service.ReservationQuery{}, err
	}
	return service.ReservationQuery{Date: c.QueryParam("date"), Status: c.QueryParam("status"), Page: page}, nil
}

func (h *ReservationHandler) respondPage(c echo.Context, caller uint64, p service.ReservationPage) error {
	out := make([]reservationView, 0, len(p.Items))
	for _, r := range p.Items {
		out = append(out, viewFor(caller, r))
	}
	return c.JSON(http.StatusOK, pageResponse{Data: out, Total: p.Total, Page: p.Page, PageSize: p.PageSize})
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req createReservationReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	r, err := h.Reservations.Create(c.Request().Context(), caller.ID, req.StoreID, req.ReservationTime)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, viewFor(caller.ID, r))
}

// Mine handles GET /v1/reservations/me?date=&status=&page=&page_size=.
func (h *ReservationHandler) Mine(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	q, err := h.query(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Reservations.ListMine(c.Request().Context(), caller.ID, q)
	if err != nil {
		return fail(c, err)
	}
	return h.respondPage(c, caller.ID, p)
}

// Detail handles GET /v1/reservations/:id.
func (h *ReservationHandler) Detail(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	r, err := h.Reservations.Detail(c.Request().Context(), caller.ID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewFor(caller.ID, r))
}

// Reschedule handles PUT /v1/reservations/:id/time.
func (h *ReservationHandler) Reschedule(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req rescheduleReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	r, err := h.Reservations.Reschedule(c.Request().Context(), caller.ID, id, req.ReservationTime)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewFor(caller.ID, r))
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	r, err := h.Reservations.Cancel(c.Request().Context(), caller.ID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewFor(caller.ID, r))
}

// QRCode handles GET /v1/reservations/:id/qrcode and returns a PNG.
func (h *ReservationHandler) QRCode(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	png, err := h.Reservations.ConfirmationQR(c.Request().Context(), caller.ID, id)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

// StoreSlots handles GET /v1/stores/:id/reservations?date=.  Only active
// reservations are listed, whatever status is asked for.
func (h *ReservationHandler) StoreSlots(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	q, err := h.query(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Reservations.ListForStore(c.Request().Context(), id, q)
	if err != nil {
		return fail(c, err)
	}
	out := make([]slotView, 0, len(p.Items))
	for _, r := range p.Items {
		out = append(out, slotView{ID: r.ID, ReservationTime: r.ReservationTime, Status: string(r.Status)})
	}
	return c.JSON(http.StatusOK, pageResponse{Data: out, Total: p.Total, Page: p.Page, PageSize: p.PageSize})
}

// PartnerList handles GET /v1/partner/stores/:id/reservations?date=&status=.
func (h *ReservationHandler) PartnerList(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	q, err := h.query(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.Reservations.ListForPartner(c.Request().Context(), caller.ID, id, q)
	if err != nil {
		return fail(c, err)
	}
	return h.respondPage(c, caller.ID, p)
}

// Decide handles PUT /v1/partner/reservations/:id/decision with
// {"decision": "APPROVED"|"REJECTED"}.
func (h *ReservationHandler) Decide(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var req decisionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	r, err := h.Reservations.Decide(c.Request().Context(), caller.ID, id, req.Decision)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewFor(caller.ID, r))
}

// Confirm handles POST /v1/partner/reservations/confirm/:code, completing
// the reservation the guest's code belongs to.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	r, err := h.Reservations.ConfirmByCode(c.Request().Context(), caller.ID, c.Param("code"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, viewFor(caller.ID, r))
}
