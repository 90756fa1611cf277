package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const secret = "router-secret"

func newServer() *echo.Echo {
	e := echo.New()
	h := Handlers{
		Auth:         &handler.AuthHandler{},
		Users:        &handler.UserHandler{},
		Stores:       &handler.StoreHandler{},
		Reservations: &handler.ReservationHandler{},
		Reviews:      &handler.ReviewHandler{},
	}
	Register(e, h, Guards{JWTSecret: secret}, nil)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newServer()
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh-access",
		"GET /v1/stores",
		"GET /v1/stores/:id/rating",
		"GET /v1/stores/:id/reservations",
		"GET /v1/users/:username/reviews",
		"GET /v1/reservations/me",
		"PUT /v1/reservations/:id/time",
		"GET /v1/reservations/:id/qrcode",
		"DELETE /v1/reviews/:id",
		"POST /v1/users/me/partner",
		"PUT /v1/partner/reservations/:id/decision",
		"POST /v1/partner/reservations/confirm/:code",
		"GET /v1/partner/stores/:id/reservations",
	} {
		assert.True(t, have[want], want)
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticatedRoutesNeedToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reservations/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPartnerRoutesNeedPartnerRole(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, utils.Identity{UserID: 3, Username: "guest", Role: "USER"}, 15, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/v1/partner/reservations/1/decision", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReservationLimitGuardsWritesOnly(t *testing.T) {
	var hits []string
	limit := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hits = append(hits, c.Request().Method+" "+c.Path())
			return c.NoContent(http.StatusTooManyRequests)
		}
	}
	e := echo.New()
	h := Handlers{
		Auth:         &handler.AuthHandler{},
		Users:        &handler.UserHandler{},
		Stores:       &handler.StoreHandler{},
		Reservations: &handler.ReservationHandler{},
		Reviews:      &handler.ReviewHandler{},
	}
	Register(e, h, Guards{JWTSecret: secret, ReservationLimit: limit}, nil)

	tok, err := utils.NewAccessToken(secret, utils.Identity{UserID: 3, Username: "guest", Role: "USER"}, 15, time.Now())
	require.NoError(t, err)
	call := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, call(http.MethodPost, "/v1/reservations"))
	assert.Equal(t, http.StatusTooManyRequests, call(http.MethodPut, "/v1/reservations/1/time"))
	assert.Equal(t, http.StatusBadRequest, call(http.MethodGet, "/v1/reservations/abc"))
	assert.Equal(t, []string{"POST /v1/reservations", "PUT /v1/reservations/:id/time"}, hits)
}
