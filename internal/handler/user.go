package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Profiles is the part of the user service behind the profile endpoints.
type Profiles interface {
	Detail(ctx context.Context, username string) (model.User, error)
	Update(ctx context.Context, caller uint64, username, email, newPassword string) (model.User, error)
	Withdraw(ctx context.Context, caller uint64, username string) error
	SetPartner(ctx context.Context, caller uint64, username string) (model.User, error)
}

type UserHandler struct {
	Users Profiles
}

func NewUserHandler(users Profiles) *UserHandler { return &UserHandler{Users: users} }

type profileResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func profileOf(u model.User) profileResp {
	return profileResp{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type updateUserReq struct {
	Email       string `json:"email" validate:"omitempty,email"`
	NewPassword string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

// Profile handles GET /v1/users/:username.
func (h *UserHandler) Profile(c echo.Context) error {
	u, err := h.Users.Detail(c.Request().Context(), c.Param("username"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, profileOf(u))
}

// Me handles GET /v1/me.
func (h *UserHandler) Me(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	u, err := h.Users.Detail(c.Request().Context(), caller.Username)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, profileOf(u))
}

// UpdateMe handles PUT /v1/users/me.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req updateUserReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	u, err := h.Users.Update(c.Request().Context(), caller.ID, caller.Username, req.Email, req.NewPassword)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, profileOf(u))
}

// DeleteMe handles DELETE /v1/users/me.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.Users.Withdraw(c.Request().Context(), caller.ID, caller.Username); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BecomePartner handles POST /v1/users/me/partner.  The new role shows up
// in access tokens issued after this call.
func (h *UserHandler) BecomePartner(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	u, err := h.Users.SetPartner(c.Request().Context(), caller.ID, caller.Username)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, profileOf(u))
}
