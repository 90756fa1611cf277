package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    now := time.Now().UTC()
    tok, err := NewAccessToken("s3cret", Identity{UserID: 42, Username: "alice", Role: "PARTNER"}, 15, now)
    require.NoError(t, err)
    assert.Equal(t, now.Add(15*time.Minute).Unix(), tok.Exp.Unix())

    id, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, Identity{UserID: 42, Username: "alice", Role: "PARTNER"}, id)

    _, err = ParseAccessToken("other", tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
    tok, err := NewAccessToken("k", Identity{UserID: 1, Role: "USER"}, 1, time.Now().Add(-time.Hour))
    require.NoError(t, err)
    _, err = ParseAccessToken("k", tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsNonHMAC(t *testing.T) {
    raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"}).
        SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)
    _, err = ParseAccessToken("k", raw)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSubjectID(t *testing.T) {
    n, ok := SubjectID("17")
    assert.True(t, ok)
    assert.Equal(t, uint64(17), n)
    n, ok = SubjectID(float64(3))
    assert.True(t, ok)
    assert.Equal(t, uint64(3), n)
    _, ok = SubjectID("abc")
    assert.False(t, ok)
    _, ok = SubjectID(nil)
    assert.False(t, ok)
}

func TestRefreshTokenAndHash(t *testing.T) {
    now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
    rt, err := NewRefreshToken(7, now)
    require.NoError(t, err)
    assert.Len(t, rt.Raw, 96)
    assert.Equal(t, now.AddDate(0, 0, 7), rt.Exp)
    assert.Len(t, HashRefreshRaw(rt.Raw), 64)
    assert.Equal(t, HashRefreshRaw("x"), HashRefreshRaw("x"))
}

func TestPasswordHashing(t *testing.T) {
    h, err := HashPassword("hunter22", 4)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(h, "hunter22"))
    assert.False(t, VerifyPassword(h, "hunter23"))
}
