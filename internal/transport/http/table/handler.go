package table

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/dto"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	"github.com/Rockthor1106/restaurant-management-api/internal/presentation/http/response"
	service "github.com/Rockthor1106/restaurant-management-api/internal/service/table"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/request"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/transport/http/table")

// Module wires HTTP table handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Handler exposes table endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a table Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes on e. Reads are open to any authenticated user, writes
// are reserved to administrators.
func Register(e *echo.Echo, h *Handler, authn *middleware.Authenticator) {
	admin := middleware.RequireAdmin()

	g := e.Group("/tables", authn.Authenticate())
	g.GET("", h.list)
	g.GET("/available", h.available)
	g.GET("/:id", h.getByID)
	g.POST("", h.create, admin)
	g.PATCH("/:id", h.update, admin)
	g.DELETE("/:id", h.delete, admin)
	g.POST("/:id/activate", h.toggle((*service.Service).Activate), admin)
	g.POST("/:id/deactivate", h.toggle((*service.Service).Deactivate), admin)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.list")
	defer span.End()

	tables, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewTableResponses(tables)).WithMeta("count", len(tables)).Build()
}

func (h *Handler) available(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.available")
	defer span.End()

	tables, err := h.svc.ListAvailable(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewTableResponses(tables)).WithMeta("count", len(tables)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.getByID", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewTableResponse(table)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.CreateTableRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.create", trace.WithAttributes(attribute.Int("table.number", payload.Number)))
	defer span.End()

	table, err := h.svc.Create(ctx, actor, payload.Number, payload.Capacity)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewTableResponse(table)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.UpdateTableRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if payload.Capacity == nil {
		return b.WithError(errorbank.BadRequest("capacity is required", errorbank.WithDetail("field", "capacity"))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.update", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table, err := h.svc.UpdateCapacity(ctx, actor, id, *payload.Capacity)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewTableResponse(table)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.delete", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, actor, id); err != nil {
		return b.WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}

type toggleFunc func(*service.Service, context.Context, identity.Actor, int64) (*entity.Table, error)

func (h *Handler) toggle(fn toggleFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b := response.New(c)

		actor, err := request.Actor(c)
		if err != nil {
			return b.WithError(err).Build()
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return b.WithError(err).Build()
		}

		ctx, span := httpTracer.Start(c.Request().Context(), "tables.toggle", trace.WithAttributes(
			attribute.Int64("table.id", id),
			attribute.String("http.route", c.Path()),
		))
		defer span.End()

		table, err := fn(h.svc, ctx, actor, id)
		if err != nil {
			return b.WithError(err).Build()
		}
		return b.WithData(dto.NewTableResponse(table)).Build()
	}
}
