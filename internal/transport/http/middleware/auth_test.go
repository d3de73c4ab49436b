package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rockthor1106/restaurant-management-api/internal/auth"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

func newServer(t *testing.T) (*echo.Echo, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager(config.Config{Auth: config.Auth{
		JWTSecret: "test-secret-0123456789",
		Issuer:    "restaurant-test",
		TokenTTL:  time.Hour,
	}})
	authn := NewAuthenticator(tokens)

	e := echo.New()
	g := e.Group("/things", authn.Authenticate())
	g.GET("", func(c echo.Context) error {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		return c.String(http.StatusOK, actor.Username)
	})
	g.POST("", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, RequireAdmin())
	return e, tokens
}

func do(e *echo.Echo, method, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/things", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	e, tokens := newServer(t)
	token, _, err := tokens.Issue(&entity.User{ID: 2, Username: "waiter"})
	require.NoError(t, err)

	rec := do(e, http.MethodGet, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_authenticated")

	rec = do(e, http.MethodGet, "Bearer faketoken1234567890")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication_failed")

	rec = do(e, http.MethodGet, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "waiter", rec.Body.String())

	rec = do(e, http.MethodGet, "Token "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	e, tokens := newServer(t)
	waiter, _, err := tokens.Issue(&entity.User{ID: 2, Username: "waiter"})
	require.NoError(t, err)
	admin, _, err := tokens.Issue(&entity.User{ID: 1, Username: "manager", IsAdmin: true})
	require.NoError(t, err)

	rec := do(e, http.MethodPost, "Bearer "+waiter)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "permission_denied")

	rec = do(e, http.MethodPost, "Bearer "+admin)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
