// Package core groups the domain modules shared by every executable: auth,
// events, repositories and services.
package core

import (
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/auth"
	"github.com/Rockthor1106/restaurant-management-api/internal/event"
	repositoryorder "github.com/Rockthor1106/restaurant-management-api/internal/repository/order"
	repositoryorderitem "github.com/Rockthor1106/restaurant-management-api/internal/repository/orderitem"
	repositoryproduct "github.com/Rockthor1106/restaurant-management-api/internal/repository/product"
	repositorytable "github.com/Rockthor1106/restaurant-management-api/internal/repository/table"
	repositoryuser "github.com/Rockthor1106/restaurant-management-api/internal/repository/user"
	serviceorder "github.com/Rockthor1106/restaurant-management-api/internal/service/order"
	serviceorderitem "github.com/Rockthor1106/restaurant-management-api/internal/service/orderitem"
	serviceproduct "github.com/Rockthor1106/restaurant-management-api/internal/service/product"
	servicetable "github.com/Rockthor1106/restaurant-management-api/internal/service/table"
	serviceuser "github.com/Rockthor1106/restaurant-management-api/internal/service/user"
)

// Module wires the domain layer. It expects config, database connections,
// a cache store, a messaging client and a logger from the caller.
var Module = fx.Options(
	auth.Module,
	event.Module,
	repositoryuser.Module,
	repositorytable.Module,
	repositoryproduct.Module,
	repositoryorder.Module,
	repositoryorderitem.Module,
	serviceuser.Module,
	servicetable.Module,
	serviceproduct.Module,
	serviceorder.Module,
	serviceorderitem.Module,
)
