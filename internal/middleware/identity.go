package middleware

// identity.go holds the context keys JWTAuth fills and the accessors
// handlers and other middleware read them through.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

const (
    KeyUserID   = "user_id"
    KeyUsername = "username"
    KeyRole     = "role"
)

// UserID returns the authenticated user's ID.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(KeyUserID).(uint64)
    return id, ok && id > 0
}

// Username returns the authenticated user's username, or "".
func Username(c echo.Context) string {
    s, _ := c.Get(KeyUsername).(string)
    return s
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) string {
    s, _ := c.Get(KeyRole).(string)
    return s
}

// callerKey identifies the requester for rate limiting: the user ID when
// authenticated, "anon" otherwise.
func callerKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
