package app

import (
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/cache"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/core"
	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/logger"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging"
	"github.com/Rockthor1106/restaurant-management-api/internal/observability"
	grpcserver "github.com/Rockthor1106/restaurant-management-api/internal/server/grpc"
	httpserver "github.com/Rockthor1106/restaurant-management-api/internal/server/http"
	transporthttp "github.com/Rockthor1106/restaurant-management-api/internal/transport/http"
	"github.com/Rockthor1106/restaurant-management-api/internal/worker"
	workerorder "github.com/Rockthor1106/restaurant-management-api/internal/worker/order"
)

// Infrastructure provides config, logging, storage, cache, bus and telemetry.
var Infrastructure = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	database.Module,
	cache.Module,
	messaging.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Infrastructure,
	core.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// GRPC exposes the health service; it is started only when GRPC_ENABLED is set.
var GRPC = fx.Options(
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default API wiring: HTTP plus the gRPC health endpoint.
var Module = fx.Options(
	HTTP,
	GRPC,
)
