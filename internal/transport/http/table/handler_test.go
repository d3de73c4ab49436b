package table

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
)

func setup(t *testing.T) (*echo.Echo, *coretest.Env, *entity.User, string, string) {
	t.Helper()
	e := echo.New()
	env := coretest.Start(t, fx.Supply(e), middleware.Module, Module)
	admin := databasetest.CreateUser(t, env.Conns, "manager", true)
	waiter := databasetest.CreateUser(t, env.Conns, "waiter", false)
	return e, env, waiter, env.Token(t, admin), env.Token(t, waiter)
}

func TestCreateTableIsAdminOnly(t *testing.T) {
	e, _, _, admin, waiter := setup(t)

	status, body := httptestutil.Do(t, e, http.MethodPost, "/tables", waiter, dto.CreateTableRequest{Number: 1, Capacity: 4})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "permission_denied", body.Error.Code)

	status, body = httptestutil.Do(t, e, http.MethodPost, "/tables", admin, dto.CreateTableRequest{Number: 1, Capacity: 4})
	require.Equal(t, http.StatusCreated, status)
	table := httptestutil.Data[dto.TableResponse](t, body)
	assert.Equal(t, 1, table.Number)
	assert.True(t, table.IsActive)
	assert.False(t, table.HasActiveOrder)
	require.NotNil(t, table.ModifiedByID)

	status, body = httptestutil.Do(t, e, http.MethodPost, "/tables", admin, dto.CreateTableRequest{Number: 1, Capacity: 2})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "table_number_taken", body.Error.Code)
}

func TestAvailableTablesHideBusyAndInactive(t *testing.T) {
	e, env, waiter, _, token := setup(t)
	free := databasetest.CreateTable(t, env.Conns, 1, 4, true)
	busy := databasetest.CreateTable(t, env.Conns, 2, 4, true)
	databasetest.CreateTable(t, env.Conns, 3, 4, false)
	databasetest.CreateOrder(t, env.Conns, busy, waiter, entity.OrderStatusReady)

	status, body := httptestutil.Do(t, e, http.MethodGet, "/tables/available", token, nil)
	require.Equal(t, http.StatusOK, status)
	available := httptestutil.Data[[]dto.TableResponse](t, body)
	require.Len(t, available, 1)
	assert.Equal(t, free.ID, available[0].ID)

	status, body = httptestutil.Do(t, e, http.MethodGet, fmt.Sprintf("/tables/%d", busy.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, httptestutil.Data[dto.TableResponse](t, body).HasActiveOrder)

	status, body = httptestutil.Do(t, e, http.MethodGet, "/tables", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body.Meta["count"])
}

func TestUpdateCapacity(t *testing.T) {
	e, env, _, admin, _ := setup(t)
	table := databasetest.CreateTable(t, env.Conns, 7, 4, true)
	path := fmt.Sprintf("/tables/%d", table.ID)

	status, _ := httptestutil.Do(t, e, http.MethodPatch, path, admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	capacity := 8
	status, body := httptestutil.Do(t, e, http.MethodPatch, path, admin, dto.UpdateTableRequest{Capacity: &capacity})
	require.Equal(t, http.StatusOK, status)
	updated := httptestutil.Data[dto.TableResponse](t, body)
	assert.Equal(t, 8, updated.Capacity)
	assert.Equal(t, 7, updated.Number)
}

func TestToggleTable(t *testing.T) {
	e, env, waiter, admin, _ := setup(t)
	table := databasetest.CreateTable(t, env.Conns, 4, 4, true)
	path := fmt.Sprintf("/tables/%d", table.ID)

	order := databasetest.CreateOrder(t, env.Conns, table, waiter, entity.OrderStatusCreated)
	status, body := httptestutil.Do(t, e, http.MethodPost, path+"/deactivate", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, entity.CodeHasActiveOrder, body.Error.Code)

	_, err := env.Conns.Writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", entity.OrderStatusCancelled).
		Where("id = ?", order.ID).
		Exec(t.Context())
	require.NoError(t, err)

	status, body = httptestutil.Do(t, e, http.MethodPost, path+"/deactivate", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, httptestutil.Data[dto.TableResponse](t, body).IsActive)

	status, body = httptestutil.Do(t, e, http.MethodPost, path+"/deactivate", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, entity.CodeAlreadyInactive, body.Error.Code)

	status, _ = httptestutil.Do(t, e, http.MethodPost, path+"/activate", admin, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeleteTable(t *testing.T) {
	e, env, _, admin, waiter := setup(t)
	table := databasetest.CreateTable(t, env.Conns, 9, 2, true)
	path := fmt.Sprintf("/tables/%d", table.ID)

	status, _ := httptestutil.Do(t, e, http.MethodDelete, path, waiter, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = httptestutil.Do(t, e, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = httptestutil.Do(t, e, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
