package table

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	orderrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/order"
	itemrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/orderitem"
	repo "github.com/Rockthor1106/restaurant-management-api/internal/repository/table"
	ordersvc "github.com/Rockthor1106/restaurant-management-api/internal/service/order"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/service/table")

// Service manages dining tables.
type Service struct {
	db     *database.Connections
	repo   *repo.Repository
	orders *orderrepo.Repository
	items  *itemrepo.Repository
	cached *ordersvc.Service
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Repository  *repo.Repository
	Orders      *orderrepo.Repository
	Items       *itemrepo.Repository
	OrderCache  *ordersvc.Service
	Logger      *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     p.Connections,
		repo:   p.Repository,
		orders: p.Orders,
		items:  p.Items,
		cached: p.OrderCache,
		logger: logger,
	}
}

// List returns every table.
func (s *Service) List(ctx context.Context) ([]entity.Table, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.List")
	defer span.End()

	tables, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list tables", errorbank.WithCause(err))
	}
	return tables, nil
}

// ListAvailable returns active tables without an open order.
func (s *Service) ListAvailable(ctx context.Context) ([]entity.Table, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.ListAvailable")
	defer span.End()

	tables, err := s.repo.ListAvailable(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list available tables", errorbank.WithCause(err))
	}
	return tables, nil
}

// Get returns a table by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Table, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.Get", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return table, nil
}

// Create registers a new active table.
func (s *Service) Create(ctx context.Context, actor identity.Actor, number, capacity int) (*entity.Table, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.Create", trace.WithAttributes(attribute.Int("table.number", number)))
	defer span.End()

	if number < 1 {
		return nil, errorbank.BadRequest("table number must be a positive integer", errorbank.WithDetail("field", "number"))
	}
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	table := &entity.Table{
		Number:       number,
		Capacity:     capacity,
		IsActive:     true,
		ModifiedByID: actor.Ref(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	taken, err := s.repo.NumberTaken(ctx, number, 0)
	if err != nil {
		return nil, errorbank.Internal("failed to check table number", errorbank.WithCause(err))
	}
	if taken {
		return nil, numberTaken(number)
	}
	if err := s.repo.Create(ctx, table); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, numberTaken(number)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create table", errorbank.WithCause(err))
	}

	s.logger.Info("table created", zap.Int64("table_id", table.ID), zap.Int("number", number), zap.Int64("actor_id", actor.ID))
	return table, nil
}

// UpdateCapacity changes the seating capacity of a table. The number is
// immutable once assigned.
func (s *Service) UpdateCapacity(ctx context.Context, actor identity.Actor, id int64, capacity int) (*entity.Table, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.UpdateCapacity", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}

	var updated *entity.Table
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		tables := s.repo.WithTx(tx)
		table, err := tables.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		table.Capacity = capacity
		table.ModifiedByID = actor.Ref()
		table.UpdatedAt = time.Now().UTC()
		if err := tables.Update(ctx, table, "capacity", "modified_by_id", "updated_at"); err != nil {
			return errorbank.Internal("failed to update table", errorbank.WithCause(err))
		}
		if updated, err = tables.GetByID(ctx, id); err != nil {
			return notFoundOr(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update rejected")
		return nil, err
	}
	return updated, nil
}

// Activate marks an inactive table as usable again.
func (s *Service) Activate(ctx context.Context, actor identity.Actor, id int64) (*entity.Table, error) {
	return s.setActive(ctx, actor, id, true)
}

// Deactivate takes a table out of service. Tables with an open order cannot
// be deactivated.
func (s *Service) Deactivate(ctx context.Context, actor identity.Actor, id int64) (*entity.Table, error) {
	return s.setActive(ctx, actor, id, false)
}

// Delete removes a table together with its orders and their items.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "TableService.Delete", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	var orderIDs []int64
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		tables := s.repo.WithTx(tx)
		table, err := tables.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}

		orders := s.orders.WithTx(tx)
		orderIDs, err = orders.IDsByTable(ctx, table.ID)
		if err != nil {
			return errorbank.Internal("failed to list table orders", errorbank.WithCause(err))
		}
		if err := s.items.WithTx(tx).DeleteByOrders(ctx, orderIDs...); err != nil {
			return errorbank.Internal("failed to delete order items", errorbank.WithCause(err))
		}
		if err := orders.DeleteByTable(ctx, table.ID); err != nil {
			return errorbank.Internal("failed to delete table orders", errorbank.WithCause(err))
		}
		if err := tables.Delete(ctx, table.ID); err != nil {
			return errorbank.Internal("failed to delete table", errorbank.WithCause(err))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete rejected")
		return err
	}

	if s.cached != nil {
		s.cached.Invalidate(ctx, orderIDs...)
	}
	s.logger.Info("table deleted",
		zap.Int64("table_id", id),
		zap.Int("orders_removed", len(orderIDs)),
		zap.Int64("actor_id", actor.ID),
	)
	return nil
}

func (s *Service) setActive(ctx context.Context, actor identity.Actor, id int64, active bool) (*entity.Table, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.SetActive", trace.WithAttributes(
		attribute.Int64("table.id", id),
		attribute.Bool("table.active", active),
	))
	defer span.End()

	var updated *entity.Table
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		tables := s.repo.WithTx(tx)
		table, err := tables.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}

		if active && table.IsActive {
			return errorbank.BadRequest("this table is already active", errorbank.WithCode(entity.CodeAlreadyActive))
		}
		if !active {
			if !table.IsActive {
				return errorbank.BadRequest("this table is already deactivated", errorbank.WithCode(entity.CodeAlreadyInactive))
			}
			busy, err := s.orders.WithTx(tx).ExistsActiveForTable(ctx, table.ID)
			if err != nil {
				return errorbank.Internal("failed to check table orders", errorbank.WithCause(err))
			}
			if busy {
				return entity.ErrHasActiveOrder
			}
		}

		table.IsActive = active
		table.ModifiedByID = actor.Ref()
		table.UpdatedAt = time.Now().UTC()
		if err := tables.Update(ctx, table, "is_active", "modified_by_id", "updated_at"); err != nil {
			return errorbank.Internal("failed to update table", errorbank.WithCause(err))
		}
		if updated, err = tables.GetByID(ctx, id); err != nil {
			return notFoundOr(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "activation rejected")
		return nil, err
	}

	s.logger.Info("table activation changed", zap.Int64("table_id", id), zap.Bool("active", active), zap.Int64("actor_id", actor.ID))
	return updated, nil
}

func validateCapacity(capacity int) error {
	if capacity < 1 {
		return errorbank.BadRequest("capacity must be a positive integer", errorbank.WithDetail("field", "capacity"))
	}
	return nil
}

func numberTaken(number int) error {
	return errorbank.Conflict("table with this number already exists",
		errorbank.WithCode("table_number_taken"),
		errorbank.WithDetail("number", number),
	)
}

func notFoundOr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("table not found")
	}
	return errorbank.Internal("failed to load table", errorbank.WithCause(err))
}
