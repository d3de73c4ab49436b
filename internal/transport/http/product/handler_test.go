package product

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/core/coretest"
	"github.com/Rockthor1106/restaurant-management-api/internal/database/databasetest"
	"github.com/Rockthor1106/restaurant-management-api/internal/dto"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/httptestutil"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
)

func setup(t *testing.T) (*echo.Echo, *coretest.Env, string, string) {
	t.Helper()
	e := echo.New()
	env := coretest.Start(t, fx.Supply(e), middleware.Module, Module)
	admin := env.Token(t, databasetest.CreateUser(t, env.Conns, "manager", true))
	waiter := env.Token(t, databasetest.CreateUser(t, env.Conns, "waiter", false))
	return e, env, admin, waiter
}

func TestCreateProduct(t *testing.T) {
	e, _, admin, waiter := setup(t)
	price := decimal.RequireFromString("10000")

	status, _ := httptestutil.Do(t, e, http.MethodPost, "/products", waiter, dto.CreateProductRequest{Name: "Chuleta", Price: &price})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := httptestutil.Do(t, e, http.MethodPost, "/products", admin, dto.CreateProductRequest{Name: "Chuleta", Price: &price})
	require.Equal(t, http.StatusCreated, status)
	product := httptestutil.Data[dto.ProductResponse](t, body)
	assert.Equal(t, "10000.000", product.Price)
	assert.Equal(t, "manager", product.CreatedBy)
	assert.True(t, product.IsActive)

	status, body = httptestutil.Do(t, e, http.MethodPost, "/products", admin, dto.CreateProductRequest{Name: "Chuleta", Price: &price})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "product_name_taken", body.Error.Code)

	status, _ = httptestutil.Do(t, e, http.MethodPost, "/products", admin, dto.CreateProductRequest{Name: "Sopa"})
	assert.Equal(t, http.StatusBadRequest, status)

	negative := decimal.RequireFromString("-1")
	status, _ = httptestutil.Do(t, e, http.MethodPost, "/products", admin, dto.CreateProductRequest{Name: "Sopa", Price: &negative})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestActiveMenu(t *testing.T) {
	e, env, admin, waiter := setup(t)
	databasetest.CreateProduct(t, env.Conns, "Ajiaco", "15000", true)
	hidden := databasetest.CreateProduct(t, env.Conns, "Mondongo", "14000", true)

	status, _ := httptestutil.Do(t, e, http.MethodPost, fmt.Sprintf("/products/%d/deactivate", hidden.ID), admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := httptestutil.Do(t, e, http.MethodGet, "/products/active", waiter, nil)
	require.Equal(t, http.StatusOK, status)
	active := httptestutil.Data[[]dto.ProductResponse](t, body)
	require.Len(t, active, 1)
	assert.Equal(t, "Ajiaco", active[0].Name)

	status, body = httptestutil.Do(t, e, http.MethodGet, "/products", waiter, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, httptestutil.Data[[]dto.ProductResponse](t, body), 2)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	e, env, admin, _ := setup(t)
	product := databasetest.CreateProduct(t, env.Conns, "Limonada", "4500", true)
	path := fmt.Sprintf("/products/%d", product.ID)

	status, _ := httptestutil.Do(t, e, http.MethodPatch, path, admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	price := decimal.RequireFromString("5000.250")
	status, body := httptestutil.Do(t, e, http.MethodPatch, path, admin, dto.UpdateProductRequest{Price: &price})
	require.Equal(t, http.StatusOK, status)
	updated := httptestutil.Data[dto.ProductResponse](t, body)
	assert.Equal(t, "5000.250", updated.Price)
	assert.Equal(t, "Limonada", updated.Name)

	status, _ = httptestutil.Do(t, e, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = httptestutil.Do(t, e, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
