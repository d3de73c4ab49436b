package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/core/coretest"
	"github.com/Rockthor1106/restaurant-management-api/internal/dto"
	service "github.com/Rockthor1106/restaurant-management-api/internal/service/user"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/httptestutil"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
)

func setup(t *testing.T) (*echo.Echo, *service.Service) {
	t.Helper()
	e := echo.New()
	var users *service.Service
	coretest.Start(t, fx.Supply(e), middleware.Module, Module, fx.Populate(&users))

	_, err := users.Create(context.Background(), service.NewUser{Username: "manager", Email: "manager@example.com", Password: "manager-pass", Admin: true})
	require.NoError(t, err)
	_, err = users.Create(context.Background(), service.NewUser{Username: "waiter", Password: "waiter-pass"})
	require.NoError(t, err)
	return e, users
}

func login(t *testing.T, e *echo.Echo, username, password string) (int, httptestutil.Envelope) {
	t.Helper()
	return httptestutil.Do(t, e, http.MethodPost, "/auth/token", "", dto.TokenRequest{Username: username, Password: password})
}

func TestTokenIssuesUsableBearer(t *testing.T) {
	e, _ := setup(t)

	status, body := login(t, e, "manager", "manager-pass")
	require.Equal(t, http.StatusOK, status)
	token := httptestutil.Data[dto.TokenResponse](t, body)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.User.IsAdmin)
	require.NotEmpty(t, token.AccessToken)

	status, body = httptestutil.Do(t, e, http.MethodGet, "/users", token.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, httptestutil.Data[[]dto.UserResponse](t, body), 2)
	assert.NotContains(t, string(body.Data), "password")
}

func TestTokenRejectsBadCredentials(t *testing.T) {
	e, _ := setup(t)

	status, body := login(t, e, "manager", "wrong-pass")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_credentials", body.Error.Code)

	status, body = login(t, e, "ghost", "whatever-pass")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_credentials", body.Error.Code)

	status, _ = login(t, e, "", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUserManagementIsAdminOnly(t *testing.T) {
	e, _ := setup(t)
	_, body := login(t, e, "waiter", "waiter-pass")
	waiter := httptestutil.Data[dto.TokenResponse](t, body).AccessToken
	_, body = login(t, e, "manager", "manager-pass")
	admin := httptestutil.Data[dto.TokenResponse](t, body).AccessToken

	req := dto.CreateUserRequest{Username: "runner", Email: "runner@example.com", Password: "runner-pass"}
	status, body := httptestutil.Do(t, e, http.MethodPost, "/users", waiter, req)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "permission_denied", body.Error.Code)

	status, body = httptestutil.Do(t, e, http.MethodPost, "/users", admin, req)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "runner", httptestutil.Data[dto.UserResponse](t, body).Username)

	status, body = httptestutil.Do(t, e, http.MethodPost, "/users", admin, req)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "username_taken", body.Error.Code)

	status, body = httptestutil.Do(t, e, http.MethodPost, "/users", admin, dto.CreateUserRequest{Username: "Admin", Password: "admin-pass"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "username_reserved", body.Error.Code)
}
