package order

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/dto"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	"github.com/Rockthor1106/restaurant-management-api/internal/presentation/http/response"
	service "github.com/Rockthor1106/restaurant-management-api/internal/service/order"
	itemservice "github.com/Rockthor1106/restaurant-management-api/internal/service/orderitem"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/request"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/transport/http/order")

// Module wires HTTP order handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

type transitionFunc func(*service.Service, context.Context, identity.Actor, int64) (*entity.Order, error)

// actions maps the lifecycle verbs accepted under /orders/:id/:action.
var actions = map[string]transitionFunc{
	"prepare": (*service.Service).StartPreparation,
	"ready":   (*service.Service).MarkReady,
	"deliver": (*service.Service).Deliver,
	"pay":     (*service.Service).Pay,
	"cancel":  (*service.Service).Cancel,
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc   *service.Service
	items *itemservice.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, items *itemservice.Service) *Handler {
	return &Handler{svc: svc, items: items}
}

// Register routes on e.
func Register(e *echo.Echo, h *Handler, authn *middleware.Authenticator) {
	admin := middleware.RequireAdmin()

	g := e.Group("/orders", authn.Authenticate())
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.GET("/:id/items", h.listItems)
	g.POST("/:id/status", h.changeStatus, admin)
	g.DELETE("/:id", h.delete, admin)
	g.POST("/:id/:action", h.transition)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponses(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	lines, err := h.items.Lines(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderDetail(order, lines)).Build()
}

func (h *Handler) listItems(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.items", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	items, err := h.items.ListForOrder(ctx, actor, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderItemResponses(items)).WithMeta("count", len(items)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.CreateOrderRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if payload.Table <= 0 {
		return b.WithError(errorbank.BadRequest("table is required", errorbank.WithDetail("field", "table"))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.Int64("table.id", payload.Table)))
	defer span.End()

	order, err := h.svc.Create(ctx, actor, payload.Table)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) transition(c echo.Context) error {
	b := response.New(c)

	action := c.Param("action")
	fn, ok := actions[action]
	if !ok {
		return b.WithError(errorbank.NotFound("unknown order action", errorbank.WithDetail("action", action))).Build()
	}
	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders."+action, trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := fn(h.svc, ctx, actor, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) changeStatus(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.ChangeStatusRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	target := entity.OrderStatus(strings.ToUpper(strings.TrimSpace(payload.Status)))

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.changeStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(target)),
	))
	defer span.End()

	order, err := h.svc.ChangeStatus(ctx, actor, id, target)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
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

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, actor, id); err != nil {
		return b.WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}
