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

// Reviews is the review service as seen by HTTP.
type Reviews interface {
	Create(ctx context.Context, caller, reservationID uint64, rating int, comment string) (model.Review, error)
	Update(ctx context.Context, caller, reviewID uint64, rating int, comment string) (model.Review, error)
	Delete(ctx context.Context, caller, reviewID uint64) error
	ListByStore(ctx context.Context, storeID uint64, minRating, maxRating int, page repository.Page) (service.ReviewPage, error)
	ListByUser(ctx context.Context, userID uint64, page repository.Page) (service.ReviewPage, error)
}

type ReviewHandler struct {
	Reviews Reviews
	Users   Profiles
}

func NewReviewHandler(reviews Reviews, users Profiles) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Users: users}
}

type createReviewReq struct {
	ReservationID uint64 `json:"reservation_id" validate:"required"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=2000"`
}

type updateReviewReq struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func reviewPage(c echo.Context, p service.ReviewPage) error {
	items := p.Items
	if items == nil {
		items = []model.Review{}
	}
	return c.JSON(http.StatusOK, pageResponse{Data: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize})
}

// Create handles POST /v1/reviews.
func (h *ReviewHandler) Create(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req createReviewReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	v, err := h.Reviews.Create(c.Request().Context(), caller.ID, req.ReservationID, req.Rating, req.Comment)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// Update handles PUT /v1/reviews/:id.
func (h *ReviewHandler) Update(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid review id")
	}
	var req updateReviewReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	v, err := h.Reviews.Update(c.Request().Context(), caller.ID, id, req.Rating, req.Comment)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Delete handles DELETE /v1/reviews/:id.
func (h *ReviewHandler) Delete(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid review id")
	}
	if err := h.Reviews.Delete(c.Request().Context(), caller.ID, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func ratingParam(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.ErrInvalidArgument
	}
	return n, nil
}

// ByStore handles GET /v1/stores/:id/reviews?min_rating=&max_rating=.
func (h *ReviewHandler) ByStore(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid store id")
	}
	page, err := pageFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	minRating, err := ratingParam(c, "min_rating")
	if err != nil {
		return badRequest(c, "min_rating must be an integer")
	}
	maxRating, err := ratingParam(c, "max_rating")
	if err != nil {
		return badRequest(c, "max_rating must be an integer")
	}
	p, err := h.Reviews.ListByStore(c.Request().Context(), id, minRating, maxRating, page)
	if err != nil {
		return fail(c, err)
	}
	return reviewPage(c, p)
}

// ByUser handles GET /v1/users/:username/reviews.
func (h *ReviewHandler) ByUser(c echo.Context) error {
	page, err := pageFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	u, err := h.Users.Detail(ctx, c.Param("username"))
	if err != nil {
		return fail(c, err)
	}
	p, err := h.Reviews.ListByUser(ctx, u.ID, page)
	if err != nil {
		return fail(c, err)
	}
	return reviewPage(c, p)
}
