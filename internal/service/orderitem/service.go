package orderitem

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/event"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	orderrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/order"
	repo "github.com/Rockthor1106/restaurant-management-api/internal/repository/orderitem"
	productrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/product"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

const instrumentationName = "github.com/Rockthor1106/restaurant-management-api/service/orderitem"

var serviceTracer = otel.Tracer(instrumentationName)

// Service maintains the item lines of orders. Lines of orders the caller did
// not create are invisible to non-admin callers and reported as missing.
type Service struct {
	db       *database.Connections
	repo     *repo.Repository
	orders   *orderrepo.Repository
	products *productrepo.Repository
	logger   *zap.Logger
	events   *event.Publisher

	added metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Repository  *repo.Repository
	Orders      *orderrepo.Repository
	Products    *productrepo.Repository
	Logger      *zap.Logger
	Events      *event.Publisher
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	added, _ := otel.Meter(instrumentationName).Int64Counter("order_items.added",
		metric.WithDescription("Units added to orders"))

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		db:       p.Connections,
		repo:     p.Repository,
		orders:   p.Orders,
		products: p.Products,
		logger:   logger,
		events:   p.Events,
		added:    added,
	}
}

// List returns every line visible to actor.
func (s *Service) List(ctx context.Context, actor identity.Actor) ([]entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderItemService.List", trace.WithAttributes(attribute.Int64("actor.id", actor.ID)))
	defer span.End()

	filter := repo.Filter{}
	if !actor.IsAdmin() {
		filter.CreatedByID = actor.ID
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list order items", errorbank.WithCause(err))
	}
	return items, nil
}

// ListForOrder returns the lines of orderID. Non-admin actors only see lines
// of their own orders.
func (s *Service) ListForOrder(ctx context.Context, actor identity.Actor, orderID int64) ([]entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderItemService.ListForOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, orderNotFoundOr(err)
	}
	if !actor.CanAccessOrder(order) {
		return nil, errorbank.NotFound("order not found")
	}
	return s.Lines(ctx, orderID)
}

// Lines returns the lines of orderID without any visibility filtering.
func (s *Service) Lines(ctx context.Context, orderID int64) ([]entity.OrderItem, error) {
	items, err := s.repo.List(ctx, repo.Filter{OrderID: orderID})
	if err != nil {
		return nil, errorbank.Internal("failed to list order items", errorbank.WithCause(err))
	}
	return items, nil
}

// Get returns a single line visible to actor.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id int64) (*entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderItemService.Get", trace.WithAttributes(attribute.Int64("order_item.id", id)))
	defer span.End()

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, itemNotFoundOr(err)
	}
	if !actor.CanAccessOrder(item.Order) {
		return nil, errorbank.NotFound("order item not found")
	}
	return item, nil
}

// Find returns the line of orderID referencing productID.
func (s *Service) Find(ctx context.Context, orderID, productID int64) (*entity.OrderItem, error) {
	item, err := s.repo.FindByOrderAndProduct(ctx, orderID, productID)
	if err != nil {
		return nil, itemNotFoundOr(err)
	}
	return item, nil
}

// Add puts quantity units of productID on orderID. An existing line for the
// same product is incremented instead of duplicated, keeping its original
// price snapshot. The boolean result reports whether a new line was created.
func (s *Service) Add(ctx context.Context, actor identity.Actor, orderID, productID int64, quantity int) (*entity.OrderItem, bool, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderItemService.Add", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if !entity.ValidQuantity(quantity) {
		return nil, false, entity.ErrQuantityInvalid
	}

	var (
		item    *entity.OrderItem
		created bool
	)
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		order, err := s.lockOrder(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		if !order.IsActive() {
			return errorbank.BadRequest("cannot assign items to an inactive order",
				errorbank.WithCode(entity.CodeOrderClosed),
				errorbank.WithDetail("status", string(order.Status)),
			)
		}

		product, err := s.products.WithTx(tx).GetForUpdate(ctx, productID)
		if errors.Is(err, productrepo.ErrNotFound) {
			return errorbank.NotFound("product not found", errorbank.WithDetail("product_id", productID))
		}
		if err != nil {
			return errorbank.Internal("failed to load product", errorbank.WithCause(err))
		}
		if !product.IsActive {
			return entity.ErrProductInactive
		}

		items := s.repo.WithTx(tx)
		now := time.Now().UTC()

		existing, err := items.FindByOrderAndProduct(ctx, order.ID, product.ID)
		switch {
		case err == nil:
			if quantity > entity.MaxQuantity-existing.Quantity {
				return entity.ErrQuantityInvalid
			}
			if err := items.AddQuantity(ctx, existing.ID, quantity, now); err != nil {
				return errorbank.Internal("failed to update order item", errorbank.WithCause(err))
			}
			existing.Quantity += quantity
			existing.UpdatedAt = now
			item = existing
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return errorbank.Internal("failed to load order item", errorbank.WithCause(err))
		}

		productRef := product.ID
		item = &entity.OrderItem{
			OrderID:     order.ID,
			ProductID:   &productRef,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    quantity,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := items.Create(ctx, item); err != nil {
			return errorbank.Internal("failed to create order item", errorbank.WithCause(err))
		}
		created = true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add rejected")
		return nil, false, err
	}

	s.added.Add(ctx, int64(quantity))
	s.logger.Info("order item added",
		zap.Int64("order_id", item.OrderID),
		zap.Int64("item_id", item.ID),
		zap.Int("quantity", quantity),
		zap.Bool("merged", !created),
		zap.Int64("actor_id", actor.ID),
	)
	typ := event.OrderItemAdded
	if !created {
		typ = event.OrderItemUpdated
	}
	s.events.Publish(ctx, typ, item.OrderID, actor.ID, event.NewOrderItemPayload(item))
	return item, created, nil
}

// UpdateQuantity overwrites the quantity of a line on an open order.
func (s *Service) UpdateQuantity(ctx context.Context, actor identity.Actor, id int64, quantity int) (*entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderItemService.UpdateQuantity", trace.WithAttributes(
		attribute.Int64("order_item.id", id),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if !entity.ValidQuantity(quantity) {
		return nil, entity.ErrQuantityInvalid
	}

	var item *entity.OrderItem
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		found, err := s.lockItem(ctx, tx, actor, id, "cannot update an item of an inactive order")
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := s.repo.WithTx(tx).SetQuantity(ctx, found.ID, quantity, now); err != nil {
			return errorbank.Internal("failed to update order item", errorbank.WithCause(err))
		}
		found.Quantity = quantity
		found.UpdatedAt = now
		item = found
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update rejected")
		return nil, err
	}

	s.events.Publish(ctx, event.OrderItemUpdated, item.OrderID, actor.ID, event.NewOrderItemPayload(item))
	return item, nil
}

// Remove deletes a line from an open order.
func (s *Service) Remove(ctx context.Context, actor identity.Actor, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderItemService.Remove", trace.WithAttributes(attribute.Int64("order_item.id", id)))
	defer span.End()

	var item *entity.OrderItem
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		found, err := s.lockItem(ctx, tx, actor, id, "cannot remove an item of an inactive order")
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Delete(ctx, found.ID); err != nil {
			return errorbank.Internal("failed to delete order item", errorbank.WithCause(err))
		}
		item = found
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remove rejected")
		return err
	}

	s.events.Publish(ctx, event.OrderItemRemoved, item.OrderID, actor.ID, event.NewOrderItemPayload(item))
	return nil
}

// lockOrder locks orderID and hides it from actors who may not touch it.
func (s *Service) lockOrder(ctx context.Context, tx bun.Tx, actor identity.Actor, orderID int64) (*entity.Order, error) {
	order, err := s.orders.WithTx(tx).GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, orderNotFoundOr(err)
	}
	if !actor.CanAccessOrder(order) {
		return nil, errorbank.NotFound("order not found")
	}
	return order, nil
}

// lockItem loads item id, locks its order and requires the order to be open.
func (s *Service) lockItem(ctx context.Context, tx bun.Tx, actor identity.Actor, id int64, closedMessage string) (*entity.OrderItem, error) {
	item, err := s.repo.WithTx(tx).GetByID(ctx, id)
	if err != nil {
		return nil, itemNotFoundOr(err)
	}
	order, err := s.orders.WithTx(tx).GetForUpdate(ctx, item.OrderID)
	if err != nil {
		return nil, orderNotFoundOr(err)
	}
	if !actor.CanAccessOrder(order) {
		return nil, errorbank.NotFound("order item not found")
	}
	if !order.IsActive() {
		return nil, errorbank.BadRequest(closedMessage,
			errorbank.WithCode(entity.CodeOrderClosed),
			errorbank.WithDetail("status", string(order.Status)),
		)
	}
	item.Order = order
	return item, nil
}

func orderNotFoundOr(err error) error {
	if errors.Is(err, orderrepo.ErrNotFound) {
		return errorbank.NotFound("order not found")
	}
	return errorbank.Internal("failed to load order", errorbank.WithCause(err))
}

func itemNotFoundOr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("order item not found")
	}
	return errorbank.Internal("failed to load order item", errorbank.WithCause(err))
}
