package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/jobmatch/server/internal/observability"
)

const testSecret = "test-secret"

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		userID, _ := UserIDFrom(c)
		return c.String(http.StatusOK, userID)
	}, Authenticate(testSecret))
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, Authenticate(testSecret), RequireAdmin())
	return e
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, "user-1", "", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, RoleUser, claims.Role)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)

	_, err = IssueToken("", "user-1", RoleUser, time.Hour)
	assert.Error(t, err)
}

func TestParseToken_Rejects(t *testing.T) {
	expired, err := IssueToken(testSecret, "user-1", RoleUser, -time.Minute)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "user-1"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := IssueToken(testSecret, "", RoleUser, time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"no expiry":  noExpiry,
		"wrong alg":  wrongAlg,
		"no subject": noSubject,
		"garbage":    "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(testSecret, token)
			assert.Error(t, err)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	e := newTestEcho()

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", "bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := IssueToken(testSecret, "user-42", RoleUser, time.Hour)
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	e := newTestEcho()

	userToken, err := IssueToken(testSecret, "user-1", RoleUser, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin", userToken).Code)

	adminToken, err := IssueToken(testSecret, "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/admin", adminToken).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, 1)
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, rl.Middleware())

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/ping", "").Code)
}

func TestRequestLogger(t *testing.T) {
	e := echo.New()
	metrics := observability.NewMetrics()
	e.Use(RequestLogger(nil, metrics))
	e.GET("/ok", func(c echo.Context) error {
		_, ok := observability.FromContext(c.Request().Context())
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream down")
	})

	rec := serve(e, http.MethodGet, "/ok", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	snapshot := metrics.Snapshot()
	assert.Equal(t, int64(2), snapshot.RequestTotal)
	assert.Equal(t, int64(1), snapshot.RequestFailed)
	assert.Contains(t, snapshot.Routes, "GET /ok")
	assert.Contains(t, snapshot.Routes, "GET /boom")
}
