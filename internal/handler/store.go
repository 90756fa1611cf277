package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
)

// Stores is the store service as seen by HTTP.
type Stores interface {
	Register(ctx context.Context, caller service.Caller, in service.StoreInput) (model.Store, error)
	Update(ctx context.Context, caller, id uint64, in service.StoreInput) (model.Store, error)
	Withdraw(ctx context.Context, caller, id uint64) error
	Detail(ctx context.Context, id uint64) (model.Store, error)
	DetailForPartner(ctx context.Context, caller, id uint64) (model.Store, error)
	Rating(ctx context.Context, id uint64) (service.StoreRating, error)
	List(ctx context.Context, minRating float64, sortBy string, page repository.Page) (service.StorePage, error)
}

// StoreHandler serves the public store catalogue and the partner's store
// management endpoints.
type StoreHandler struct {
	Stores Stores
}

func NewStoreHandler(stores Stores) *StoreHandler { return &StoreHandler{Stores: stores} }

type storeReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Location    string `json:"location" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

func (r storeReq) input() service.StoreInput {
	return service.StoreInput{Name: r.Name, Location: r.Location, Description: r.Description}
}

// publicStore omits the partner and audit timestamps.
type publicStore struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
}

func publicStoreOf(s model.Store) publicStore {
	return publicStore{ID: s.ID, Name: s.Name, Location: s.Location, Description: s.Description, Rating: s.Rating, Reviews: s.Reviews}
}

// List handles GET /v1/stores?min_rating=&sort=rating|reviews&page=&page_size=.
func (h *StoreHandler) List(c echo.Context) error {
	page, err := pageFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var minRating float64
	if raw := strings.TrimSpace(c.QueryParam("min_rating")); raw != "" {
		if minRating, err = strconv.ParseFloat(raw, 64); err != nil {
			return badRequest(c, "min_rating must be a number")
		}
	}
	res, err := h.Stores.List(c.Request().Context(), minRating, c.QueryParam("sort"), page)
	if err != nil {
		return fail(c, err)
	}
	out := make([]publicStore, 0, len(res.Items))
	for _, s := range res.Items {
		out = append(out, publicStoreOf(s))
	}
	return c.JSON(http.StatusOK, pageResponse{Data: out, Total: res.Total, Page: res.Page, PageSize: res.PageSize})
}

// Detail handles GET /v1/stores/:id.
func (h *StoreHandler) Detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	s, err := h.Stores.Detail(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, publicStoreOf(s))
}

// Rating handles GET /v1/stores/:id/rating.
func (h *StoreHandler) Rating(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	r, err := h.Stores.Rating(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Register handles POST /v1/partner/stores.
func (h *StoreHandler) Register(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req storeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s, err := h.Stores.Register(c.Request().Context(), caller, req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// Update handles PUT /v1/partner/stores/:id.
func (h *StoreHandler) Update(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	var req storeReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s, err := h.Stores.Update(c.Request().Context(), caller.ID, id, req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Withdraw handles DELETE /v1/partner/stores/:id.
func (h *StoreHandler) Withdraw(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	if err := h.Stores.Withdraw(c.Request().Context(), caller.ID, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PartnerDetail handles GET /v1/partner/stores/:id.
func (h *StoreHandler) PartnerDetail(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	s, err := h.Stores.DetailForPartner(c.Request().Context(), caller.ID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
