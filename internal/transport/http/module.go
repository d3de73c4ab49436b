package http

import (
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/auth"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	ordertransport "github.com/Rockthor1106/restaurant-management-api/internal/transport/http/order"
	orderitemtransport "github.com/Rockthor1106/restaurant-management-api/internal/transport/http/orderitem"
	producttransport "github.com/Rockthor1106/restaurant-management-api/internal/transport/http/product"
	tabletransport "github.com/Rockthor1106/restaurant-management-api/internal/transport/http/table"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	middleware.Module,
	auth.Module,
	tabletransport.Module,
	producttransport.Module,
	ordertransport.Module,
	orderitemtransport.Module,
)
