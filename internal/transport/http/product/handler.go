package product

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
	service "github.com/Rockthor1106/restaurant-management-api/internal/service/product"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/request"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/transport/http/product")

// Module wires HTTP product handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Handler exposes catalog endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a product Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes on e.
func Register(e *echo.Echo, h *Handler, authn *middleware.Authenticator) {
	admin := middleware.RequireAdmin()

	g := e.Group("/products", authn.Authenticate())
	g.GET("", h.list(false))
	g.GET("/active", h.list(true))
	g.GET("/:id", h.getByID)
	g.POST("", h.create, admin)
	g.PATCH("/:id", h.update, admin)
	g.DELETE("/:id", h.delete, admin)
	g.POST("/:id/activate", h.toggle((*service.Service).Activate), admin)
	g.POST("/:id/deactivate", h.toggle((*service.Service).Deactivate), admin)
}

func (h *Handler) list(activeOnly bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		b := response.New(c)

		ctx, span := httpTracer.Start(c.Request().Context(), "products.list", trace.WithAttributes(attribute.Bool("product.active_only", activeOnly)))
		defer span.End()

		products, err := h.svc.List(ctx, activeOnly)
		if err != nil {
			return b.WithError(err).Build()
		}
		return b.WithData(dto.NewProductResponses(products)).WithMeta("count", len(products)).Build()
	}
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := request.ID(c, "id")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.getByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewProductResponse(product)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	actor, err := request.Actor(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload dto.CreateProductRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if payload.Price == nil {
		return b.WithError(errorbank.BadRequest("price is required", errorbank.WithDetail("field", "price"))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.create", trace.WithAttributes(attribute.String("product.name", payload.Name)))
	defer span.End()

	product, err := h.svc.Create(ctx, actor, payload.Name, *payload.Price)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewProductResponse(product)).Build()
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
	var payload dto.UpdateProductRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if payload.Name == nil && payload.Price == nil {
		return b.WithError(errorbank.BadRequest("nothing to update")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "products.update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := h.svc.Update(ctx, actor, id, service.Update{Name: payload.Name, Price: payload.Price})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewProductResponse(product)).Build()
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

	ctx, span := httpTracer.Start(c.Request().Context(), "products.delete", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, actor, id); err != nil {
		return b.WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}

type toggleFunc func(*service.Service, context.Context, identity.Actor, int64) (*entity.Product, error)

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

		ctx, span := httpTracer.Start(c.Request().Context(), "products.toggle", trace.WithAttributes(
			attribute.Int64("product.id", id),
			attribute.String("http.route", c.Path()),
		))
		defer span.End()

		product, err := fn(h.svc, ctx, actor, id)
		if err != nil {
			return b.WithError(err).Build()
		}
		return b.WithData(dto.NewProductResponse(product)).Build()
	}
}
