package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/cache"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/database/databasetest"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/event"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging/messagingtest"
	orderrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/order"
	itemrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/orderitem"
	repo "github.com/Rockthor1106/restaurant-management-api/internal/repository/table"
	ordersvc "github.com/Rockthor1106/restaurant-management-api/internal/service/order"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

type fixture struct {
	conns  *database.Connections
	svc    *Service
	orders *ordersvc.Service
	admin  identity.Actor
	waiter *entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conns := databasetest.New(t)
	cfg := config.Config{}
	tables := repo.NewRepository(conns)
	orders := orderrepo.NewRepository(conns)
	items := itemrepo.NewRepository(conns)

	orderService := ordersvc.NewService(ordersvc.Params{
		Connections: conns,
		Repository:  orders,
		Tables:      tables,
		Items:       items,
		Cache:       cache.NewNoop(),
		Config:      cfg,
		Logger:      zap.NewNop(),
		Events:      event.NewPublisher(cfg, &messagingtest.Recorder{}, zap.NewNop()),
	})

	return &fixture{
		conns: conns,
		svc: NewService(Params{
			Connections: conns,
			Repository:  tables,
			Orders:      orders,
			Items:       items,
			OrderCache:  orderService,
			Logger:      zap.NewNop(),
		}),
		orders: orderService,
		admin:  identity.FromUser(databasetest.CreateUser(t, conns, "manager", true)),
		waiter: databasetest.CreateUser(t, conns, "waiter", false),
	}
}

func TestCreateTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	table, err := f.svc.Create(ctx, f.admin, 11, 4)
	require.NoError(t, err)
	assert.True(t, table.IsActive)
	assert.False(t, table.HasActiveOrder)
	require.NotNil(t, table.ModifiedByID)
	assert.Equal(t, f.admin.ID, *table.ModifiedByID)

	_, err = f.svc.Create(ctx, f.admin, 11, 2)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())

	_, err = f.svc.Create(ctx, f.admin, 0, 2)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	_, err = f.svc.Create(ctx, f.admin, 12, 0)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestHasActiveOrderIsDerived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := databasetest.CreateTable(t, f.conns, 1, 4, true)

	got, err := f.svc.Get(ctx, table.ID)
	require.NoError(t, err)
	assert.False(t, got.HasActiveOrder)

	order, err := f.orders.Create(ctx, identity.FromUser(f.waiter), table.ID)
	require.NoError(t, err)

	got, err = f.svc.Get(ctx, table.ID)
	require.NoError(t, err)
	assert.True(t, got.HasActiveOrder)

	_, err = f.orders.Cancel(ctx, identity.FromUser(f.waiter), order.ID)
	require.NoError(t, err)

	got, err = f.svc.Get(ctx, table.ID)
	require.NoError(t, err)
	assert.False(t, got.HasActiveOrder)
}

func TestListAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := databasetest.CreateTable(t, f.conns, 1, 4, true)
	busy := databasetest.CreateTable(t, f.conns, 2, 4, true)
	databasetest.CreateTable(t, f.conns, 3, 4, false)
	closed := databasetest.CreateTable(t, f.conns, 4, 4, true)

	databasetest.CreateOrder(t, f.conns, busy, f.waiter, entity.OrderStatusReady)
	databasetest.CreateOrder(t, f.conns, closed, f.waiter, entity.OrderStatusPaid)

	available, err := f.svc.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, free.ID, available[0].ID)
	assert.Equal(t, closed.ID, available[1].ID)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[1].HasActiveOrder)
	assert.False(t, all[3].HasActiveOrder)
}

func TestDeactivationGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	busy := databasetest.CreateTable(t, f.conns, 1, 4, true)
	idle := databasetest.CreateTable(t, f.conns, 2, 4, true)

	databasetest.CreateOrder(t, f.conns, busy, f.waiter, entity.OrderStatusInPreparation)
	databasetest.CreateOrder(t, f.conns, idle, f.waiter, entity.OrderStatusPaid)
	databasetest.CreateOrder(t, f.conns, idle, f.waiter, entity.OrderStatusCancelled)

	_, err := f.svc.Deactivate(ctx, f.admin, busy.ID)
	assert.ErrorIs(t, err, entity.ErrHasActiveOrder)

	got, err := f.svc.Deactivate(ctx, f.admin, idle.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestActivationToggleIsSymmetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := databasetest.CreateTable(t, f.conns, 1, 4, true)

	_, err := f.svc.Activate(ctx, f.admin, table.ID)
	assert.ErrorIs(t, err, entity.ErrAlreadyActive)

	_, err = f.svc.Deactivate(ctx, f.admin, table.ID)
	require.NoError(t, err)

	_, err = f.svc.Deactivate(ctx, f.admin, table.ID)
	assert.ErrorIs(t, err, entity.ErrAlreadyInactive)

	got, err := f.svc.Activate(ctx, f.admin, table.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.ModifiedByID)
	assert.Equal(t, f.admin.ID, *got.ModifiedByID)
}

func TestUpdateCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := databasetest.CreateTable(t, f.conns, 1, 4, true)

	got, err := f.svc.UpdateCapacity(ctx, f.admin, table.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Capacity)
	assert.Equal(t, 1, got.Number)

	_, err = f.svc.UpdateCapacity(ctx, f.admin, table.ID, 0)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = f.svc.UpdateCapacity(ctx, f.admin, 999, 2)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := databasetest.CreateTable(t, f.conns, 1, 4, true)
	product := databasetest.CreateProduct(t, f.conns, "Soup", "4.500", true)
	order := databasetest.CreateOrder(t, f.conns, table, f.waiter, entity.OrderStatusCreated)

	productID := product.ID
	_, err := f.conns.Writer.NewInsert().Model(&entity.OrderItem{
		OrderID: order.ID, ProductID: &productID, ProductName: "Soup", UnitPrice: product.Price, Quantity: 1,
	}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.admin, table.ID))

	_, err = f.svc.Get(ctx, table.ID)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
	_, err = f.orders.Get(ctx, order.ID)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())

	items, err := f.conns.Writer.NewSelect().Model((*entity.OrderItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, items)
}

func TestUpdatesIgnoreLaggingReplica(t *testing.T) {
	primary, replica := databasetest.New(t), databasetest.New(t)
	var admin identity.Actor
	var table *entity.Table
	for _, conns := range []*database.Connections{primary, replica} {
		admin = identity.FromUser(databasetest.CreateUser(t, conns, "manager", true))
		table = databasetest.CreateTable(t, conns, 11, 4, true)
	}

	conns := databasetest.WithReplica(primary, replica)
	svc := NewService(Params{
		Connections: conns,
		Repository:  repo.NewRepository(conns),
		Orders:      orderrepo.NewRepository(conns),
		Items:       itemrepo.NewRepository(conns),
		Logger:      zap.NewNop(),
	})
	ctx := context.Background()

	updated, err := svc.UpdateCapacity(ctx, admin, table.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Capacity)

	deactivated, err := svc.Deactivate(ctx, admin, table.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	assert.Equal(t, 6, deactivated.Capacity)
}
