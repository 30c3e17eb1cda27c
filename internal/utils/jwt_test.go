package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/backend-scaffold/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(clock *fakeClock) *TokenService {
	return NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    7 * 24 * time.Hour,
	}, WithClock(clock.Now))
}

func testUser() *model.User {
	return &model.User{ID: "42", Username: "alice", Email: "alice@example.com", Role: model.RoleUser}
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestService(clock)

	tok, err := svc.IssueAccessToken(testUser())
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(15*time.Minute), tok.ExpiresAt)

	claims, err := svc.VerifyAccess(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, clock.t, claims.IssuedAt.Time.UTC())
}

func TestIssueRefreshToken_CarriesOnlyID(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestService(clock)

	tok, err := svc.IssueRefreshToken(testUser())
	require.NoError(t, err)

	claims, err := svc.VerifyRefresh(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Empty(t, claims.Username)
	assert.Empty(t, claims.Email)

	// The payload itself must not mention the username.
	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "username")
	assert.NotContains(t, string(payload), "email")
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := &fakeClock{t: issued}
	svc := newTestService(clock)

	tok, err := svc.IssueAccessToken(testUser())
	require.NoError(t, err)

	clock.t = issued.Add(15*time.Minute - time.Second)
	_, err = svc.VerifyAccess(tok.Token)
	require.NoError(t, err)

	clock.t = issued.Add(15 * time.Minute)
	_, err = svc.VerifyAccess(tok.Token)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)

	clock.t = issued.Add(time.Hour)
	_, err = svc.VerifyAccess(tok.Token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Now()}
	svc := newTestService(clock)

	tok, err := svc.IssueAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(tok.Token, "some-other-secret")
	require.ErrorIs(t, err, ErrTokenInvalid)

	// Access and refresh contexts do not accept each other's tokens.
	_, err = svc.VerifyRefresh(tok.Token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeClock{t: time.Now()})
	for _, raw := range []string{"", "not.a.jwt", "abc"} {
		_, err := svc.VerifyAccess(raw)
		require.ErrorIs(t, err, ErrTokenInvalid, "raw=%q", raw)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeClock{t: time.Now()})
	claims := Claims{UserID: "42", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(raw)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RequiresExpiryAndID(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeClock{t: time.Now()})

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "42"}).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = svc.VerifyAccess(noExp)
	require.ErrorIs(t, err, ErrTokenInvalid)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = svc.VerifyAccess(noID)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssue_EmptyIDFails(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeClock{t: time.Now()})
	_, err := svc.IssueAccessToken(&model.User{Username: "ghost"})
	require.Error(t, err)
}
