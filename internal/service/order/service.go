package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Rockthor1106/restaurant-management-api/internal/cache"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/event"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	repo "github.com/Rockthor1106/restaurant-management-api/internal/repository/order"
	itemrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/orderitem"
	tablerepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/table"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

const instrumentationName = "github.com/Rockthor1106/restaurant-management-api/service/order"

var serviceTracer = otel.Tracer(instrumentationName)

// Service owns the order lifecycle. Every guard is evaluated inside the same
// transaction as the write it protects.
type Service struct {
	db       *database.Connections
	repo     *repo.Repository
	tables   *tablerepo.Repository
	items    *itemrepo.Repository
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
	events   *event.Publisher
	group    singleflight.Group

	created     metric.Int64Counter
	transitions metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Repository  *repo.Repository
	Tables      *tablerepo.Repository
	Items       *itemrepo.Repository
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
	Events      *event.Publisher
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	meter := otel.Meter(instrumentationName)
	created, _ := meter.Int64Counter("orders.created", metric.WithDescription("Orders opened on a table"))
	transitions, _ := meter.Int64Counter("orders.transitions", metric.WithDescription("Order status changes"))

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		db:          p.Connections,
		repo:        p.Repository,
		tables:      p.Tables,
		items:       p.Items,
		cache:       p.Cache,
		cacheTTL:    p.Config.Cache.DefaultTTL,
		logger:      logger,
		events:      p.Events,
		created:     created,
		transitions: transitions,
	}
}

// List returns every order, newest first.
func (s *Service) List(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	key := cache.OrderKey(id)
	if order, err := cache.GetJSON[entity.Order](ctx, s.cache, key); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	order := v.(*entity.Order)

	if err := cache.SetJSON(ctx, s.cache, key, order, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return order, nil
}

// Create opens a new order on tableID. The table must be active and must not
// already carry an open order.
func (s *Service) Create(ctx context.Context, actor identity.Actor, tableID int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.Int64("table.id", tableID),
		attribute.Int64("actor.id", actor.ID),
	))
	defer span.End()

	now := time.Now().UTC()
	order := &entity.Order{
		TableID:     tableID,
		Status:      entity.OrderStatusCreated,
		CreatedByID: actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		table, err := s.tables.WithTx(tx).GetForUpdate(ctx, tableID)
		if errors.Is(err, tablerepo.ErrNotFound) {
			return errorbank.NotFound("table not found", errorbank.WithDetail("table_id", tableID))
		}
		if err != nil {
			return errorbank.Internal("failed to load table", errorbank.WithCause(err))
		}
		if !table.IsActive {
			return entity.ErrTableInactive
		}

		orders := s.repo.WithTx(tx)
		busy, err := orders.ExistsActiveForTable(ctx, table.ID)
		if err != nil {
			return errorbank.Internal("failed to check table orders", errorbank.WithCause(err))
		}
		if busy {
			return entity.ErrTableHasActiveOrder
		}

		if err := orders.Create(ctx, order); err != nil {
			if database.IsUniqueViolation(err) {
				return entity.ErrTableHasActiveOrder
			}
			return errorbank.Internal("failed to create order", errorbank.WithCause(err))
		}

		table.HasActiveOrder = true
		order.Table = table
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create rejected")
		return nil, err
	}

	order.CreatedBy = &entity.User{ID: actor.ID, Username: actor.Username, IsAdmin: actor.Admin}

	s.created.Add(ctx, 1)
	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("table_id", order.TableID),
		zap.Int64("actor_id", actor.ID),
	)
	s.events.Publish(ctx, event.OrderCreated, order.ID, actor.ID, event.NewOrderPayload(order, ""))
	return order, nil
}

// ChangeStatus moves the order to target when the transition table allows it.
func (s *Service) ChangeStatus(ctx context.Context, actor identity.Actor, id int64, target entity.OrderStatus) (*entity.Order, error) {
	return s.transition(ctx, actor, id, target, nil)
}

// StartPreparation moves a CREATED order into IN_PREPARATION.
func (s *Service) StartPreparation(ctx context.Context, actor identity.Actor, id int64) (*entity.Order, error) {
	return s.transition(ctx, actor, id, entity.OrderStatusInPreparation, openGuard("cannot start preparation, the order is already closed"))
}

// MarkReady moves an IN_PREPARATION order into READY.
func (s *Service) MarkReady(ctx context.Context, actor identity.Actor, id int64) (*entity.Order, error) {
	return s.transition(ctx, actor, id, entity.OrderStatusReady, openGuard("cannot mark as ready, the order is already closed"))
}

// Deliver moves a READY order into DELIVERED.
func (s *Service) Deliver(ctx context.Context, actor identity.Actor, id int64) (*entity.Order, error) {
	return s.transition(ctx, actor, id, entity.OrderStatusDelivered, openGuard("cannot deliver, the order is already closed"))
}

// Pay closes a DELIVERED order.
func (s *Service) Pay(ctx context.Context, actor identity.Actor, id int64) (*entity.Order, error) {
	open := openGuard("cannot pay, the order is already closed")
	return s.transition(ctx, actor, id, entity.OrderStatusPaid, func(o *entity.Order) error {
		if err := open(o); err != nil {
			return err
		}
		if o.Status != entity.OrderStatusDelivered {
			return entity.ErrNotDelivered
		}
		return nil
	})
}

// Cancel closes an order that has not started preparation.
func (s *Service) Cancel(ctx context.Context, actor identity.Actor, id int64) (*entity.Order, error) {
	open := openGuard("cannot cancel, the order is already closed")
	return s.transition(ctx, actor, id, entity.OrderStatusCancelled, func(o *entity.Order) error {
		if err := open(o); err != nil {
			return err
		}
		if o.Status != entity.OrderStatusCreated {
			return entity.ErrNotCancellable
		}
		return nil
	})
}

// Delete removes an order and all of its items.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	var deleted *entity.Order
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		orders := s.repo.WithTx(tx)
		order, err := orders.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "failed to load order")
		}
		if err := s.items.WithTx(tx).DeleteByOrders(ctx, order.ID); err != nil {
			return errorbank.Internal("failed to delete order items", errorbank.WithCause(err))
		}
		if err := orders.Delete(ctx, order.ID); err != nil {
			return errorbank.Internal("failed to delete order", errorbank.WithCause(err))
		}
		deleted = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete rejected")
		return err
	}

	s.Invalidate(ctx, id)
	s.logger.Info("order deleted", zap.Int64("order_id", id), zap.Int64("actor_id", actor.ID))
	s.events.Publish(ctx, event.OrderDeleted, id, actor.ID, event.NewOrderPayload(deleted, ""))
	return nil
}

// Invalidate drops cached copies of the given orders.
func (s *Service) Invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		if err := s.cache.Delete(ctx, cache.OrderKey(id)); err != nil {
			s.logger.Warn("orders cache invalidation failed", zap.Int64("id", id), zap.Error(err))
		}
	}
}

// transition runs guard and the status change against the locked order row.
func (s *Service) transition(ctx context.Context, actor identity.Actor, id int64, target entity.OrderStatus, guard func(*entity.Order) error) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Transition", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status.target", string(target)),
	))
	defer span.End()

	var (
		previous entity.OrderStatus
		order    *entity.Order
	)
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		orders := s.repo.WithTx(tx)
		locked, err := orders.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "failed to load order")
		}
		if guard != nil {
			if err := guard(locked); err != nil {
				return err
			}
		}
		previous = locked.Status
		if err := applyStatus(ctx, orders, locked, target); err != nil {
			return err
		}
		// Reload on the writer so a lagging replica cannot hand back the old status.
		if order, err = orders.GetByID(ctx, id); err != nil {
			return notFoundOr(err, "failed to reload order")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition rejected")
		return nil, err
	}

	s.Invalidate(ctx, id)

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(previous)),
		attribute.String("to", string(target)),
	))
	s.logger.Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
		zap.Int64("actor_id", actor.ID),
	)
	s.events.Publish(ctx, event.OrderStatusChanged, id, actor.ID, event.NewOrderPayload(order, previous))
	return order, nil
}

// applyStatus validates from -> target against the transition table and
// writes it with a compare-and-set on the current status.
func applyStatus(ctx context.Context, orders *repo.Repository, order *entity.Order, target entity.OrderStatus) error {
	if !order.Status.CanTransitionTo(target) {
		return entity.InvalidTransition(order.Status, target)
	}

	now := time.Now().UTC()
	affected, err := orders.UpdateStatus(ctx, order.ID, order.Status, target, now)
	if err != nil {
		return errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}
	if affected == 0 {
		return errorbank.Conflict(fmt.Sprintf("order %d changed concurrently", order.ID))
	}

	order.Status = target
	order.UpdatedAt = now
	return nil
}

// openGuard rejects orders already in a terminal status with message.
func openGuard(message string) func(*entity.Order) error {
	return func(o *entity.Order) error {
		if !o.IsActive() {
			return errorbank.BadRequest(message,
				errorbank.WithCode(entity.CodeOrderClosed),
				errorbank.WithDetail("status", string(o.Status)),
			)
		}
		return nil
	}
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("order not found")
	}
	return errorbank.Internal(message, errorbank.WithCause(err))
}
