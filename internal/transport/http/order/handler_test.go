package order

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/core/coretest"
	"github.com/Rockthor1106/restaurant-management-api/internal/database/databasetest"
	"github.com/Rockthor1106/restaurant-management-api/internal/dto"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/httptestutil"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	orderitemtransport "github.com/Rockthor1106/restaurant-management-api/internal/transport/http/orderitem"
)

type server struct {
	e      *echo.Echo
	env    *coretest.Env
	waiter string
	admin  string
}

func newServer(t *testing.T) *server {
	t.Helper()

	e := echo.New()
	env := coretest.Start(t, fx.Supply(e), middleware.Module, Module, orderitemtransport.Module)

	return &server{
		e:      e,
		env:    env,
		waiter: env.Token(t, databasetest.CreateUser(t, env.Conns, "waiter", false)),
		admin:  env.Token(t, databasetest.CreateUser(t, env.Conns, "manager", true)),
	}
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, httptestutil.Envelope) {
	t.Helper()
	return httptestutil.Do(t, s.e, method, path, token, body)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	table := databasetest.CreateTable(t, s.env.Conns, 11, 4, true)
	chuleta := databasetest.CreateProduct(t, s.env.Conns, "Chuleta", "10000", true)

	status, body := s.do(t, http.MethodPost, "/orders", s.waiter, dto.CreateOrderRequest{Table: table.ID})
	require.Equal(t, http.StatusCreated, status)
	order := httptestutil.Data[dto.OrderResponse](t, body)
	assert.Equal(t, entity.OrderStatusCreated, order.Status)
	assert.Equal(t, 11, order.Table.Number)
	assert.True(t, order.IsActive)

	quantity := 4
	status, _ = s.do(t, http.MethodPost, "/order-items", s.waiter, dto.AddOrderItemRequest{Order: order.ID, Product: chuleta.ID, Quantity: &quantity})
	require.Equal(t, http.StatusCreated, status)

	path := fmt.Sprintf("/orders/%d", order.ID)
	status, body = s.do(t, http.MethodPost, path+"/pay", s.waiter, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, entity.CodeNotDelivered, body.Error.Code)

	for _, action := range []string{"prepare", "ready", "deliver", "pay"} {
		status, body = s.do(t, http.MethodPost, path+"/"+action, s.waiter, nil)
		require.Equal(t, http.StatusOK, status, action)
	}
	assert.Equal(t, entity.OrderStatusPaid, httptestutil.Data[dto.OrderResponse](t, body).Status)

	status, body = s.do(t, http.MethodGet, path, s.waiter, nil)
	require.Equal(t, http.StatusOK, status)
	detail := httptestutil.Data[dto.OrderResponse](t, body)
	assert.False(t, detail.IsActive)
	assert.Equal(t, "40000.000", detail.Total)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, 4, detail.Items[0].Quantity)

	status, _ = s.do(t, http.MethodPost, "/orders", s.waiter, dto.CreateOrderRequest{Table: table.ID})
	assert.Equal(t, http.StatusCreated, status)
}

func TestOrderRoutesRequireAuthentication(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_authenticated", body.Error.Code)

	status, body = s.do(t, http.MethodGet, "/orders", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "authentication_failed", body.Error.Code)
}

func TestChangeStatusIsAdminOnly(t *testing.T) {
	s := newServer(t)
	table := databasetest.CreateTable(t, s.env.Conns, 2, 4, true)
	status, body := s.do(t, http.MethodPost, "/orders", s.waiter, dto.CreateOrderRequest{Table: table.ID})
	require.Equal(t, http.StatusCreated, status)
	path := fmt.Sprintf("/orders/%d/status", httptestutil.Data[dto.OrderResponse](t, body).ID)

	status, body = s.do(t, http.MethodPost, path, s.waiter, dto.ChangeStatusRequest{Status: "CANCELLED"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "permission_denied", body.Error.Code)

	status, body = s.do(t, http.MethodPost, path, s.admin, dto.ChangeStatusRequest{Status: "READY"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, entity.CodeInvalidTransition, body.Error.Code)

	status, body = s.do(t, http.MethodPost, path, s.admin, dto.ChangeStatusRequest{Status: "cancelled"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, entity.OrderStatusCancelled, httptestutil.Data[dto.OrderResponse](t, body).Status)
}

func TestCreateOrderValidation(t *testing.T) {
	s := newServer(t)

	status, _ := s.do(t, http.MethodPost, "/orders", s.waiter, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/orders", s.waiter, dto.CreateOrderRequest{Table: 999})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodGet, "/orders/abc", s.waiter, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/orders/1/teleport", s.waiter, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteOrder(t *testing.T) {
	s := newServer(t)
	table := databasetest.CreateTable(t, s.env.Conns, 5, 2, true)
	status, body := s.do(t, http.MethodPost, "/orders", s.waiter, dto.CreateOrderRequest{Table: table.ID})
	require.Equal(t, http.StatusCreated, status)
	path := fmt.Sprintf("/orders/%d", httptestutil.Data[dto.OrderResponse](t, body).ID)

	status, _ = s.do(t, http.MethodDelete, path, s.waiter, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodDelete, path, s.admin, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, path, s.admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
