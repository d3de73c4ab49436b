package orderitem

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/dto"
	"github.com/Rockthor1106/restaurant-management-api/internal/presentation/http/response"
	service "github.com/Rockthor1106/restaurant-management-api/internal/service/orderitem"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/request"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/transport/http/orderitem")

// Module wires HTTP order item handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Handler exposes the order item ledger over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order item Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes on e. Every route requires an authenticated caller;
// scoping to the caller's own orders happens in the service.
func Register(e *echo.Echo, h *Handler, authn *middleware.Authenticator) {
	g := e.Group("/order-items", authn.Authenticate())
	g.GET("", h.list)
	g.POST("", h.add)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderItems.list")
	defer span.End()

	items, err := h.svc.List(ctx, actor)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderItemResponses(items)).WithMeta("count", len(items)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderItems.getByID", trace.WithAttributes(attribute.Int64("order_item.id", id)))
	defer span.End()

	item, err := h.svc.Get(ctx, actor, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderItemResponse(item)).Build()
}

// add answers 201 when a new line was written and 200 when the quantity was
// merged into an existing line for the same product.
func (h *Handler) add(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.AddOrderItemRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if payload.Order <= 0 || payload.Product <= 0 {
		return b.WithError(errorbank.BadRequest("order and product are required")).Build()
	}
	quantity := 1
	if payload.Quantity != nil {
		quantity = *payload.Quantity
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderItems.add", trace.WithAttributes(
		attribute.Int64("order.id", payload.Order),
		attribute.Int64("product.id", payload.Product),
		attribute.Int("order_item.quantity", quantity),
	))
	defer span.End()

	item, created, err := h.svc.Add(ctx, actor, payload.Order, payload.Product, quantity)
	if err != nil {
		return b.WithError(err).Build()
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return b.WithStatus(status).WithData(dto.NewOrderItemResponse(item)).Build()
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
	var payload dto.UpdateOrderItemRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if payload.Quantity == nil {
		return b.WithError(errorbank.BadRequest("quantity is required", errorbank.WithDetail("field", "quantity"))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderItems.update", trace.WithAttributes(attribute.Int64("order_item.id", id)))
	defer span.End()

	item, err := h.svc.UpdateQuantity(ctx, actor, id, *payload.Quantity)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderItemResponse(item)).Build()
}

func (h *Handler) remove(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orderItems.remove", trace.WithAttributes(attribute.Int64("order_item.id", id)))
	defer span.End()

	if err := h.svc.Remove(ctx, actor, id); err != nil {
		return b.WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}
