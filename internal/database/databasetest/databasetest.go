// Package databasetest provides SQLite backed connections for package tests.
package databasetest

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/migration"
)

var dbSeq atomic.Int64

// New opens a private in-memory SQLite database with the schema migrated.
// A single connection is used, so callers must not query outside of an open
// transaction while holding it.
func New(t testing.TB) *database.Connections {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared&_foreign_keys=1", dbSeq.Add(1))

	sqldb, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	mig, err := migration.NewForDriver("sqlite", db, nil)
	require.NoError(t, err)
	require.NoError(t, mig.Up(context.Background()))

	return &database.Connections{Writer: db, Reader: db}
}

// CreateUser inserts a user row directly.
func CreateUser(t testing.TB, conns *database.Connections, username string, admin bool) *entity.User {
	t.Helper()

	now := time.Now().UTC()
	user := &entity.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsAdmin:      admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := conns.Writer.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

// CreateTable inserts a table row directly.
func CreateTable(t testing.TB, conns *database.Connections, number, capacity int, active bool) *entity.Table {
	t.Helper()

	now := time.Now().UTC()
	table := &entity.Table{Number: number, Capacity: capacity, IsActive: active, CreatedAt: now, UpdatedAt: now}
	_, err := conns.Writer.NewInsert().Model(table).Exec(context.Background())
	require.NoError(t, err)
	return table
}

// CreateProduct inserts a product row directly.
func CreateProduct(t testing.TB, conns *database.Connections, name, price string, active bool) *entity.Product {
	t.Helper()

	now := time.Now().UTC()
	product := &entity.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := conns.Writer.NewInsert().Model(product).Exec(context.Background())
	require.NoError(t, err)
	return product
}

// CreateOrder inserts an order row directly, bypassing the lifecycle rules.
func CreateOrder(t testing.TB, conns *database.Connections, table *entity.Table, creator *entity.User, status entity.OrderStatus) *entity.Order {
	t.Helper()

	now := time.Now().UTC()
	order := &entity.Order{
		TableID:     table.ID,
		Status:      status,
		CreatedByID: creator.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := conns.Writer.NewInsert().Model(order).Exec(context.Background())
	require.NoError(t, err)
	return order
}

// WithReplica pairs the writer of primary with the writer of replica acting
// as a read replica. Rows written through the pair reach only primary, which
// stands in for a replica that has not caught up.
func WithReplica(primary, replica *database.Connections) *database.Connections {
	return &database.Connections{Writer: primary.Writer, Reader: replica.Writer}
}
