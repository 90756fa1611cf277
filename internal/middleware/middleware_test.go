package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-reservation/internal/config"
    "github.com/iliyamo/table-reservation/internal/utils"
)

const testSecret = "test-secret"

func bearer(t *testing.T, id utils.Identity) string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, id, 15, time.Now())
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func whoami(c echo.Context) error {
    id, _ := UserID(c)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "username": Username(c), "role": Role(c)})
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(testSecret))

    t.Run("valid token", func(t *testing.T) {
        req := httptest.NewRequest(http.MethodGet, "/me", nil)
        req.Header.Set(echo.HeaderAuthorization, bearer(t, utils.Identity{UserID: 42, Username: "alice", Role: "USER"}))
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.JSONEq(t, `{"id":42,"username":"alice","role":"USER"}`, rec.Body.String())
    })

    t.Run("missing header", func(t *testing.T) {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
    })

    t.Run("wrong secret", func(t *testing.T) {
        tok, err := utils.NewAccessToken("other", utils.Identity{UserID: 1, Role: "USER"}, 15, time.Now())
        require.NoError(t, err)
        req := httptest.NewRequest(http.MethodGet, "/me", nil)
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
    })
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/partner", whoami, JWTAuth(testSecret), RequireRole("PARTNER"))

    for _, tc := range []struct {
        role string
        want int
    }{
        {"PARTNER", http.StatusOK},
        {"USER", http.StatusForbidden},
    } {
        req := httptest.NewRequest(http.MethodGet, "/partner", nil)
        req.Header.Set(echo.HeaderAuthorization, bearer(t, utils.Identity{UserID: 9, Username: "p", Role: tc.role}))
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, tc.want, rec.Code, tc.role)
    }
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb, mr
}

func TestTokenBucketRejectsWhenEmpty(t *testing.T) {
    rdb, _ := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    e := echo.New()
    e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

    codes := make([]int, 0, 3)
    for i := 0; i < 3; i++ {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
        codes = append(codes, rec.Code)
        if i == 2 {
            assert.NotEmpty(t, rec.Header().Get("Retry-After"))
            assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
        }
    }
    assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
    e := echo.New()
    e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestBuildRateKeyUsesCaller(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/reservations", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/reservations")

    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}
    assert.Equal(t, "rl:ip:10.0.0.1:user:anon", buildRateKey(cfg, c))

    c.Set(KeyUserID, uint64(7))
    assert.Equal(t, "rl:ip:10.0.0.1:user:7", buildRateKey(cfg, c))

    cfg.KeyStrategy = ""
    assert.Equal(t, "rl:ip:10.0.0.1:user:7:route:GET /v1/reservations", buildRateKey(cfg, c))
}

func TestRedisCacheHitAndMiss(t *testing.T) {
    rdb, _ := newRedis(t)
    cfg := config.CacheConfig{
        Enabled:     true,
        Methods:     map[string]bool{http.MethodGet: true},
        TTL:         time.Minute,
        KeyStrategy: "route_query",
        Prefix:      "cache",
    }
    calls := 0
    e := echo.New()
    e.GET("/stores/:id", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
    }, NewRedisCache(cfg, rdb))

    get := func(path string) *httptest.ResponseRecorder {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
        return rec
    }

    first := get("/stores/1")
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
    second := get("/stores/1")
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.Equal(t, first.Body.String(), second.Body.String())
    assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))

    other := get("/stores/2")
    assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"id":"2"}`, other.Body.String())
    assert.Equal(t, 2, calls)
}

func TestRedisCacheSkipsErrors(t *testing.T) {
    rdb, mr := newRedis(t)
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, Prefix: "cache"}
    e := echo.New()
    e.GET("/stores/:id", func(c echo.Context) error {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
    }, NewRedisCache(cfg, rdb))

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/9", nil))
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Empty(t, mr.Keys())
}

func TestPayloadRoundTrip(t *testing.T) {
    h := http.Header{"Content-Type": []string{"application/json"}}
    bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
    require.NoError(t, err)
    status, hdr, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", hdr.Get("Content-Type"))
    assert.Equal(t, `{"a":1}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 1})
    assert.False(t, ok)
}
